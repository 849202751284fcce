package conquest

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// PlayerID is a player's seat index in turn order.
type PlayerID int

// NoPlayer marks an unowned territory.
const NoPlayer PlayerID = -1

// MinReinforcements is the floor on armies granted at the start of a turn.
const MinReinforcements = 3

// Player is the per-player ledger. The owned set is an index of territory
// ownership held on the Game; Game keeps both sides in step.
type Player struct {
	ID                    PlayerID
	Name                  string
	Color                 string
	Available             int // unplaced armies
	ReinforcementsPerTurn int
	Active                bool
	TurnCount             int

	owned      map[int]struct{}
	continents map[Continent]int
}

func newPlayer(id PlayerID, name, color string) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Color:      color,
		Active:     true,
		owned:      make(map[int]struct{}),
		continents: make(map[Continent]int),
	}
}

// AddSoldiers credits n armies to the unplaced pool.
func (p *Player) AddSoldiers(n int) {
	if n > 0 {
		p.Available += n
	}
}

// RemoveSoldiers debits up to n armies from the unplaced pool and returns the
// number actually removed. The pool never goes negative; an overdraft is
// clamped and logged.
func (p *Player) RemoveSoldiers(n int) int {
	if n <= 0 {
		return 0
	}
	removed := min(n, p.Available)
	if removed < n {
		log.Warn().Str("player", p.Name).Int("requested", n).Int("available", p.Available).
			Msg("Army pool overdraft clamped to available armies")
	}
	p.Available -= removed
	return removed
}

// AddTerritory records ownership of the territory t.
func (p *Player) AddTerritory(t *Territory) {
	if _, ok := p.owned[t.Index]; ok {
		return
	}
	p.owned[t.Index] = struct{}{}
	p.continents[t.Continent]++
}

// RemoveTerritory drops ownership of the territory t.
func (p *Player) RemoveTerritory(t *Territory) {
	if _, ok := p.owned[t.Index]; !ok {
		return
	}
	delete(p.owned, t.Index)
	p.continents[t.Continent]--
	if p.continents[t.Continent] == 0 {
		delete(p.continents, t.Continent)
	}
}

// Owns reports whether the player holds the territory at idx.
func (p *Player) Owns(idx int) bool {
	_, ok := p.owned[idx]
	return ok
}

// TerritoryCount returns the number of territories the player holds.
func (p *Player) TerritoryCount() int { return len(p.owned) }

// ContinentCount returns how many territories of c the player holds.
func (p *Player) ContinentCount(c Continent) int { return p.continents[c] }

// Controls reports whether the player holds every territory of c.
func (p *Player) Controls(b *Board, c Continent) bool {
	size := b.ContinentSize(c)
	return size > 0 && p.continents[c] == size
}

// Reinforcements computes max(3, territories/3) plus the bonus of every
// fully controlled continent.
func (p *Player) Reinforcements(b *Board) int {
	n := max(MinReinforcements, p.TerritoryCount()/3)
	for _, c := range b.Continents() {
		if p.Controls(b, c) {
			n += b.ContinentBonus(c)
		}
	}
	return n
}

// StartTurn bumps the turn counter, recomputes the reinforcement grant, and
// credits it to the unplaced pool.
func (p *Player) StartTurn(b *Board) {
	p.TurnCount++
	p.ReinforcementsPerTurn = p.Reinforcements(b)
	p.AddSoldiers(p.ReinforcementsPerTurn)
}

// EndTurn forfeits any unplaced armies.
func (p *Player) EndTurn() {
	p.Available = 0
}

// ownedIndexes returns the owned territory indexes in ascending order.
func (p *Player) ownedIndexes() []int {
	out := make([]int, 0, len(p.owned))
	for idx := range p.owned {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
