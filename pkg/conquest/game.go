package conquest

import (
	"errors"
	"fmt"
)

// Player count limits.
const (
	MinPlayers = 2
	MaxPlayers = 6
)

// Colors are assigned to players in seat order.
var Colors = []string{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE", "ORANGE"}

var (
	ErrPlayerCount   = errors.New("player count out of range")
	ErrDuplicateName = errors.New("duplicate player name")
	ErrTooFewArmies  = errors.New("starting armies cannot cover the board")
)

// Game is the authoritative state of one match: a board, the players in turn
// order, per-territory ownership and army counts, the current player and the
// current phase. A Game is not safe for concurrent use; callers serialize
// access to it.
type Game struct {
	ID string

	board   *Board
	roller  Roller
	players []*Player
	owner   []PlayerID // by territory index
	armies  []int      // by territory index

	first    PlayerID
	current  PlayerID
	phase    Phase
	turn     int
	gameOver bool
	winner   PlayerID
}

// NewGame seats the named players in order, deals territories according to
// opts, and leaves the game in SETUP with the first player to place.
func NewGame(id string, board *Board, names []string, opts Options) (*Game, error) {
	if len(names) < MinPlayers || len(names) > MaxPlayers {
		return nil, fmt.Errorf("%w: %d players, need %d-%d", ErrPlayerCount, len(names), MinPlayers, MaxPlayers)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, n)
		}
		seen[n] = true
	}
	opts = opts.withDefaults()

	g := &Game{
		ID:      id,
		board:   board,
		roller:  opts.Roller,
		players: make([]*Player, len(names)),
		owner:   make([]PlayerID, board.Size()),
		armies:  make([]int, board.Size()),
		phase:   PhaseSetup,
		winner:  NoPlayer,
	}
	for i := range g.owner {
		g.owner[i] = NoPlayer
	}
	for i, n := range names {
		g.players[i] = newPlayer(PlayerID(i), n, Colors[i])
		g.players[i].AddSoldiers(opts.StartingArmies)
	}
	if err := g.distribute(opts); err != nil {
		return nil, err
	}

	g.first = opts.FirstPlayer
	if opts.RandomFirst {
		g.first = PlayerID(opts.intN(len(names)))
	}
	if g.first < 0 || int(g.first) >= len(names) {
		g.first = 0
	}
	g.current = g.first
	if g.players[g.current].Available == 0 {
		g.current = g.nextSetupPlayer(g.current)
	}
	return g, nil
}

// Board returns the static territory graph.
func (g *Game) Board() *Board { return g.board }

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// Turn returns the turn counter; zero during SETUP.
func (g *Game) Turn() int { return g.turn }

// Current returns the player whose move it is.
func (g *Game) Current() *Player { return g.players[g.current] }

// CurrentID returns the seat of the player whose move it is.
func (g *Game) CurrentID() PlayerID { return g.current }

// IsOver reports whether the game has ended.
func (g *Game) IsOver() bool { return g.gameOver }

// Winner returns the winning player once the game is over.
func (g *Game) Winner() (*Player, bool) {
	if !g.gameOver || g.winner == NoPlayer {
		return nil, false
	}
	return g.players[g.winner], true
}

// Players returns the players in turn order.
func (g *Game) Players() []*Player { return g.players }

// Player returns the player seated at id.
func (g *Game) Player(id PlayerID) (*Player, bool) {
	if id < 0 || int(id) >= len(g.players) {
		return nil, false
	}
	return g.players[id], true
}

// PlayerByName looks up a player by display name.
func (g *Game) PlayerByName(name string) (*Player, bool) {
	for _, p := range g.players {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Owner returns the owner of the named territory, or NoPlayer.
func (g *Game) Owner(territory string) PlayerID {
	idx := g.board.Index(territory)
	if idx < 0 {
		return NoPlayer
	}
	return g.owner[idx]
}

// Armies returns the army count on the named territory.
func (g *Game) Armies(territory string) int {
	idx := g.board.Index(territory)
	if idx < 0 {
		return 0
	}
	return g.armies[idx]
}

// TotalArmies returns pid's armies on the board plus its unplaced pool.
func (g *Game) TotalArmies(pid PlayerID) int {
	p, ok := g.Player(pid)
	if !ok {
		return 0
	}
	total := p.Available
	for idx := range p.owned {
		total += g.armies[idx]
	}
	return total
}

// ContinentFullyControlledBy reports whether pid owns every territory of c.
func (g *Game) ContinentFullyControlledBy(c Continent, pid PlayerID) bool {
	p, ok := g.Player(pid)
	if !ok {
		return false
	}
	return p.Controls(g.board, c)
}

// SelectTerritory validates a territory selection by pid. It changes nothing.
func (g *Game) SelectTerritory(pid PlayerID, territory string) (*Territory, error) {
	if err := g.checkActor(pid); err != nil {
		return nil, err
	}
	t, ok := g.board.Territory(territory)
	if !ok {
		return nil, reject(ErrUnknownTerritory, "no territory named %q", territory)
	}
	return t, nil
}

// PlaceSoldiers puts count armies from pid's pool onto territory.
//
// In SETUP, while any territory is unowned the placement must claim one; once
// the board is fully claimed, SETUP placements go onto pid's own territories.
// After each SETUP placement the move passes to the next player who still has
// armies to place. In REINFORCEMENT the territory must be pid's.
func (g *Game) PlaceSoldiers(pid PlayerID, territory string, count int) error {
	if err := g.checkActor(pid); err != nil {
		return err
	}
	if g.phase != PhaseSetup && g.phase != PhaseReinforcement {
		return reject(ErrWrongPhase, "armies can only be placed during setup or reinforcement, not %s", g.phase)
	}
	t, ok := g.board.Territory(territory)
	if !ok {
		return reject(ErrUnknownTerritory, "no territory named %q", territory)
	}
	p := g.players[pid]
	if count < 1 {
		return reject(ErrInvalidCount, "must place at least 1 army")
	}
	if count > p.Available {
		return reject(ErrInsufficientArmies, "only %d armies available to place", p.Available)
	}

	owner := g.owner[t.Index]
	claiming := false
	if g.phase == PhaseSetup && g.hasUnowned() {
		if owner != NoPlayer {
			return reject(ErrTerritoryOwned, "%s is already claimed; claim an unowned territory", t.Name)
		}
		claiming = true
	} else if owner != pid {
		return reject(ErrNotYourTerritory, "you do not own %s", t.Name)
	}

	if claiming {
		g.owner[t.Index] = pid
		p.AddTerritory(t)
	}
	g.armies[t.Index] += count
	p.RemoveSoldiers(count)

	if g.phase == PhaseSetup {
		g.current = g.nextSetupPlayer(g.current)
	}
	return nil
}

// AttackResult reports the outcome of one attack.
type AttackResult struct {
	Battle
	From       string   `json:"from"`
	To         string   `json:"to"`
	Captured   bool     `json:"captured"`
	MovedIn    int      `json:"moved_in"`
	Defender   PlayerID `json:"-"`
	Eliminated bool     `json:"eliminated"`
	GameOver   bool     `json:"game_over"`
}

// Attack rolls n attacking dice from one of pid's territories against an
// adjacent enemy territory. The defender rolls min(2, defending armies).
// On capture, ownership transfers and between 1 and n minus attacker losses
// armies move in, always leaving at least one behind.
func (g *Game) Attack(pid PlayerID, from, to string, n int) (*AttackResult, error) {
	if err := g.checkActor(pid); err != nil {
		return nil, err
	}
	if g.phase != PhaseAttack {
		return nil, reject(ErrWrongPhase, "attacks are only allowed during the attack phase, not %s", g.phase)
	}
	src, dst, err := g.lookupPair(from, to)
	if err != nil {
		return nil, err
	}
	if g.owner[src.Index] != pid {
		return nil, reject(ErrNotYourTerritory, "you do not own %s", src.Name)
	}
	defender := g.owner[dst.Index]
	if defender == pid {
		return nil, reject(ErrNotYourTerritory, "you cannot attack your own territory %s", dst.Name)
	}
	if defender == NoPlayer {
		return nil, reject(ErrNotYourTerritory, "%s has no owner to attack", dst.Name)
	}
	if !g.board.adjacentIdx(src.Index, dst.Index) {
		return nil, reject(ErrNotAdjacent, "%s does not border %s", src.Name, dst.Name)
	}
	srcArmies := g.armies[src.Index]
	maxDice := min(MaxAttackDice, srcArmies-1)
	if maxDice < 1 {
		return nil, reject(ErrInsufficientArmies, "%s needs at least 2 armies to attack", src.Name)
	}
	if n < 1 || n > maxDice {
		return nil, reject(ErrInvalidCount, "attack with 1 to %d dice from %s", maxDice, src.Name)
	}

	defDice := min(MaxDefenseDice, g.armies[dst.Index])
	battle := Resolve(g.roller, n, defDice)
	g.armies[src.Index] -= battle.AttackerLosses
	g.armies[dst.Index] -= battle.DefenderLosses

	res := &AttackResult{Battle: battle, From: src.Name, To: dst.Name, Defender: defender}
	if g.armies[dst.Index] > 0 {
		return res, nil
	}

	moveIn := max(1, min(n-battle.AttackerLosses, g.armies[src.Index]-1))
	loser := g.players[defender]
	loser.RemoveTerritory(dst)
	g.players[pid].AddTerritory(dst)
	g.owner[dst.Index] = pid
	g.armies[src.Index] -= moveIn
	g.armies[dst.Index] = moveIn

	res.Captured = true
	res.MovedIn = moveIn
	if loser.TerritoryCount() == 0 && loser.Active {
		loser.Active = false
		loser.Available = 0
		res.Eliminated = true
	}
	res.GameOver = g.CheckGameEnd()
	return res, nil
}

// Fortify moves count armies between two adjacent territories owned by pid,
// leaving at least one behind.
func (g *Game) Fortify(pid PlayerID, from, to string, count int) error {
	if err := g.checkActor(pid); err != nil {
		return err
	}
	if g.phase != PhaseFortification {
		return reject(ErrWrongPhase, "fortifying is only allowed during the fortification phase, not %s", g.phase)
	}
	src, dst, err := g.lookupPair(from, to)
	if err != nil {
		return err
	}
	if g.owner[src.Index] != pid {
		return reject(ErrNotYourTerritory, "you do not own %s", src.Name)
	}
	if g.owner[dst.Index] != pid {
		return reject(ErrNotYourTerritory, "you do not own %s", dst.Name)
	}
	if !g.board.adjacentIdx(src.Index, dst.Index) {
		return reject(ErrNotAdjacent, "%s does not border %s", src.Name, dst.Name)
	}
	if count < 1 {
		return reject(ErrInvalidCount, "must move at least 1 army")
	}
	if count >= g.armies[src.Index] {
		return reject(ErrInsufficientArmies, "%s has %d armies; at least 1 must stay", src.Name, g.armies[src.Index])
	}
	g.armies[src.Index] -= count
	g.armies[dst.Index] += count
	return nil
}

// CheckGameEnd ends the game when one player owns every territory, or when
// only one player is still active. Once over, the result never changes.
func (g *Game) CheckGameEnd() bool {
	if g.gameOver {
		return true
	}
	if first := g.owner[0]; first != NoPlayer {
		all := true
		for _, o := range g.owner[1:] {
			if o != first {
				all = false
				break
			}
		}
		if all {
			g.finish(first)
			return true
		}
	}
	if last, ok := g.lastActive(); ok {
		g.finish(last)
		return true
	}
	return false
}

// Forfeit withdraws pid from the game. The player keeps its territories as
// inert holdings but never moves again. If it was pid's move, play passes on.
// Unplaced setup armies are dealt out to the remaining players so setup can
// still complete. The returned transition is non-nil when a turn was passed.
func (g *Game) Forfeit(pid PlayerID) (*Transition, error) {
	p, ok := g.Player(pid)
	if !ok {
		return nil, reject(ErrUnknownPlayer, "no player in seat %d", pid)
	}
	if g.gameOver {
		return nil, reject(ErrGameOver, "the game is already over")
	}
	if !p.Active {
		return nil, nil
	}
	p.Active = false
	if g.phase == PhaseSetup {
		g.redistributePool(p)
	}
	p.Available = 0

	if g.CheckGameEnd() {
		return nil, nil
	}
	if g.current != pid {
		return nil, nil
	}
	if g.phase == PhaseSetup {
		g.current = g.nextSetupPlayer(pid)
		return nil, nil
	}
	t := Transition{Player: pid, From: g.phase, To: PhaseReinforcement, Ended: pid}
	t.Started = g.passTurn()
	t.Reinforcements = g.players[t.Started].ReinforcementsPerTurn
	return &t, nil
}

func (g *Game) finish(winner PlayerID) {
	g.gameOver = true
	g.winner = winner
}

// checkActor rejects moves once the game is over or when pid is not current.
func (g *Game) checkActor(pid PlayerID) error {
	if g.gameOver {
		return reject(ErrGameOver, "the game is over")
	}
	p, ok := g.Player(pid)
	if !ok {
		return reject(ErrUnknownPlayer, "no player in seat %d", pid)
	}
	if pid != g.current {
		return reject(ErrNotYourTurn, "it is %s's turn, not %s's", g.players[g.current].Name, p.Name)
	}
	return nil
}

func (g *Game) lookupPair(from, to string) (*Territory, *Territory, error) {
	src, ok := g.board.Territory(from)
	if !ok {
		return nil, nil, reject(ErrUnknownTerritory, "no territory named %q", from)
	}
	dst, ok := g.board.Territory(to)
	if !ok {
		return nil, nil, reject(ErrUnknownTerritory, "no territory named %q", to)
	}
	if src.Index == dst.Index {
		return nil, nil, reject(ErrSameTerritory, "%s cannot target itself", src.Name)
	}
	return src, dst, nil
}

func (g *Game) hasUnowned() bool {
	for _, o := range g.owner {
		if o == NoPlayer {
			return true
		}
	}
	return false
}

// nextActive returns the next active player after from in turn order.
func (g *Game) nextActive(from PlayerID) PlayerID {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		id := PlayerID((int(from) + i) % n)
		if g.players[id].Active {
			return id
		}
	}
	return from
}

// firstActiveFrom returns from if active, otherwise the next active player.
func (g *Game) firstActiveFrom(from PlayerID) PlayerID {
	if g.players[from].Active {
		return from
	}
	return g.nextActive(from)
}

// nextSetupPlayer returns the next active player after from with armies left
// to place. When nobody has any, the first player takes the move so they can
// open the first turn.
func (g *Game) nextSetupPlayer(from PlayerID) PlayerID {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		id := PlayerID((int(from) + i) % n)
		if p := g.players[id]; p.Active && p.Available > 0 {
			return id
		}
	}
	return g.firstActiveFrom(g.first)
}

func (g *Game) lastActive() (PlayerID, bool) {
	last := NoPlayer
	for _, p := range g.players {
		if !p.Active {
			continue
		}
		if last != NoPlayer {
			return NoPlayer, false
		}
		last = p.ID
	}
	return last, last != NoPlayer
}

// redistributePool deals a leaving player's unplaced armies one at a time to
// the remaining active players in turn order.
func (g *Game) redistributePool(leaving *Player) {
	left := leaving.Available
	id := leaving.ID
	for left > 0 {
		next := g.nextActive(id)
		if next == leaving.ID {
			return
		}
		g.players[next].AddSoldiers(1)
		left--
		id = next
	}
}
