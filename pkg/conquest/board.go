package conquest

import (
	"fmt"
	"sort"
)

// Continent groups territories for reinforcement bonuses.
type Continent string

const (
	NorthAmerica Continent = "north_america"
	SouthAmerica Continent = "south_america"
	Europe       Continent = "europe"
	Africa       Continent = "africa"
	Asia         Continent = "asia"
	Oceania      Continent = "oceania"
)

// Territory is a node of the static board graph. Ownership and army counts
// live on the Game, never here.
type Territory struct {
	Name      string
	Continent Continent
	Index     int
	Adjacent  []string // sorted territory names
}

// ContinentDef declares a continent, its bonus, and its member territories.
type ContinentDef struct {
	Continent   Continent
	Bonus       int
	Territories []string
}

// Board holds the immutable territory graph. Built once, read concurrently.
type Board struct {
	territories []*Territory
	index       map[string]int
	adj         [][]bool
	continents  []Continent
	members     map[Continent][]int
	bonus       map[Continent]int
}

// NewBoard builds a board from continent declarations and undirected edges.
// Each edge is declared once; adjacency is made symmetric.
func NewBoard(continents []ContinentDef, edges [][2]string) (*Board, error) {
	b := &Board{
		index:   make(map[string]int),
		members: make(map[Continent][]int, len(continents)),
		bonus:   make(map[Continent]int, len(continents)),
	}
	for _, c := range continents {
		if _, dup := b.bonus[c.Continent]; dup {
			return nil, fmt.Errorf("duplicate continent %q", c.Continent)
		}
		b.continents = append(b.continents, c.Continent)
		b.bonus[c.Continent] = c.Bonus
		for _, name := range c.Territories {
			if _, dup := b.index[name]; dup {
				return nil, fmt.Errorf("duplicate territory %q", name)
			}
			idx := len(b.territories)
			b.index[name] = idx
			b.territories = append(b.territories, &Territory{Name: name, Continent: c.Continent, Index: idx})
			b.members[c.Continent] = append(b.members[c.Continent], idx)
		}
	}

	n := len(b.territories)
	b.adj = make([][]bool, n)
	for i := range b.adj {
		b.adj[i] = make([]bool, n)
	}
	for _, e := range edges {
		a, ok := b.index[e[0]]
		if !ok {
			return nil, fmt.Errorf("edge %s-%s: unknown territory %q", e[0], e[1], e[0])
		}
		c, ok := b.index[e[1]]
		if !ok {
			return nil, fmt.Errorf("edge %s-%s: unknown territory %q", e[0], e[1], e[1])
		}
		if a == c {
			return nil, fmt.Errorf("territory %q cannot border itself", e[0])
		}
		b.adj[a][c] = true
		b.adj[c][a] = true
	}
	for i, t := range b.territories {
		for j := range b.territories {
			if b.adj[i][j] {
				t.Adjacent = append(t.Adjacent, b.territories[j].Name)
			}
		}
		sort.Strings(t.Adjacent)
	}
	return b, nil
}

// Size returns the number of territories on the board.
func (b *Board) Size() int { return len(b.territories) }

// Territory looks up a territory by name.
func (b *Board) Territory(name string) (*Territory, bool) {
	idx, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.territories[idx], true
}

// Index returns the dense index for a territory name, or -1 if unknown.
func (b *Board) Index(name string) int {
	idx, ok := b.index[name]
	if !ok {
		return -1
	}
	return idx
}

// At returns the territory at a dense index.
func (b *Board) At(idx int) *Territory { return b.territories[idx] }

// Territories returns all territories in declaration order.
func (b *Board) Territories() []*Territory { return b.territories }

// Adjacent reports whether a and b share a border. Unknown names and a
// territory paired with itself are never adjacent.
func (b *Board) Adjacent(a, c string) bool {
	i, ok := b.index[a]
	if !ok {
		return false
	}
	j, ok := b.index[c]
	if !ok {
		return false
	}
	return b.adj[i][j]
}

func (b *Board) adjacentIdx(i, j int) bool { return b.adj[i][j] }

// Neighbors returns the names of all territories bordering name.
func (b *Board) Neighbors(name string) []string {
	t, ok := b.Territory(name)
	if !ok {
		return nil
	}
	return t.Adjacent
}

// Continents returns the continents in declaration order.
func (b *Board) Continents() []Continent { return b.continents }

// ContinentBonus returns the reinforcement bonus for fully controlling c.
func (b *Board) ContinentBonus(c Continent) int { return b.bonus[c] }

// ContinentSize returns the number of territories in c.
func (b *Board) ContinentSize(c Continent) int { return len(b.members[c]) }

// ContinentTerritories returns the names of the territories in c.
func (b *Board) ContinentTerritories(c Continent) []string {
	names := make([]string, 0, len(b.members[c]))
	for _, idx := range b.members[c] {
		names = append(names, b.territories[idx].Name)
	}
	return names
}
