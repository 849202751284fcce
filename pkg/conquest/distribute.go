package conquest

import (
	"fmt"
	"math/rand/v2"
)

// Distribution selects how territories are handed out before SETUP.
type Distribution int

const (
	// DistributeDeal shuffles the board and deals territories round-robin,
	// one army each.
	DistributeDeal Distribution = iota
	// DistributeClaim leaves the board empty; players claim territories one
	// placement at a time during SETUP.
	DistributeClaim
)

// Options configures a new game.
type Options struct {
	StartingArmies int
	Distribution   Distribution
	// DealtArmiesFree gives dealt armies on top of StartingArmies instead of
	// drawing them from the pool.
	DealtArmiesFree bool
	FirstPlayer     PlayerID
	RandomFirst     bool
	Roller          Roller
	Rand            *rand.Rand // shuffle and first-player source; nil uses the global source
}

// Starting-army presets.
const (
	LobbyStartingArmies = 40
	MatchStartingArmies = 20
)

// LobbyOptions are the hosted-lobby defaults: dealt armies come out of a
// 40-army pool and the host's seat moves first.
func LobbyOptions() Options {
	return Options{StartingArmies: LobbyStartingArmies}
}

// MatchOptions are the paired-match defaults: dealing is free, each player
// gets 20 more armies and the first player is random.
func MatchOptions() Options {
	return Options{StartingArmies: MatchStartingArmies, DealtArmiesFree: true, RandomFirst: true}
}

func (o Options) withDefaults() Options {
	if o.Roller == nil {
		o.Roller = RandomRoller{}
	}
	return o
}

func (o Options) intN(n int) int {
	if o.Rand != nil {
		return o.Rand.IntN(n)
	}
	return rand.IntN(n)
}

func (o Options) shuffle(n int, swap func(i, j int)) {
	if o.Rand != nil {
		o.Rand.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

func (g *Game) distribute(opts Options) error {
	size := g.board.Size()
	n := len(g.players)

	if opts.Distribution == DistributeClaim {
		if opts.StartingArmies*n < size {
			return fmt.Errorf("%w: %d players with %d armies each cannot claim %d territories",
				ErrTooFewArmies, n, opts.StartingArmies, size)
		}
		return nil
	}

	perPlayer := (size + n - 1) / n
	if !opts.DealtArmiesFree && opts.StartingArmies < perPlayer {
		return fmt.Errorf("%w: %d armies each, up to %d territories dealt",
			ErrTooFewArmies, opts.StartingArmies, perPlayer)
	}

	order := make([]int, size)
	for i := range order {
		order[i] = i
	}
	opts.shuffle(size, func(i, j int) { order[i], order[j] = order[j], order[i] })

	for k, idx := range order {
		p := g.players[k%n]
		g.owner[idx] = p.ID
		g.armies[idx] = 1
		p.AddTerritory(g.board.At(idx))
		if !opts.DealtArmiesFree {
			p.RemoveSoldiers(1)
		}
	}
	return nil
}
