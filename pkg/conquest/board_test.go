package conquest

import (
	"strings"
	"testing"
)

// Six territories in two continents:
//
//	A1 - A2 - A3 - B1 - B2 - B3, plus A1 - A3.
func testBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard([]ContinentDef{
		{Continent("alpha"), 2, []string{"A1", "A2", "A3"}},
		{Continent("beta"), 1, []string{"B1", "B2", "B3"}},
	}, [][2]string{
		{"A1", "A2"}, {"A2", "A3"}, {"A1", "A3"},
		{"A3", "B1"},
		{"B1", "B2"}, {"B2", "B3"},
	})
	if err != nil {
		t.Fatalf("building test board: %v", err)
	}
	return b
}

func TestStandardBoardTerritoryCount(t *testing.T) {
	b := StandardBoard()
	if b.Size() != 42 {
		t.Errorf("expected 42 territories, got %d", b.Size())
	}
	if len(b.Continents()) != 6 {
		t.Errorf("expected 6 continents, got %d", len(b.Continents()))
	}
}

func TestStandardBoardContinents(t *testing.T) {
	b := StandardBoard()
	cases := []struct {
		c     Continent
		size  int
		bonus int
	}{
		{NorthAmerica, 9, 5},
		{SouthAmerica, 4, 2},
		{Europe, 7, 5},
		{Africa, 6, 3},
		{Asia, 12, 7},
		{Oceania, 4, 2},
	}
	for _, tc := range cases {
		if got := b.ContinentSize(tc.c); got != tc.size {
			t.Errorf("%s: expected %d territories, got %d", tc.c, tc.size, got)
		}
		if got := b.ContinentBonus(tc.c); got != tc.bonus {
			t.Errorf("%s: expected bonus %d, got %d", tc.c, tc.bonus, got)
		}
	}
}

func TestStandardBoardAdjacencySymmetric(t *testing.T) {
	b := StandardBoard()
	for _, a := range b.Territories() {
		if len(a.Adjacent) == 0 {
			t.Errorf("%s has no neighbors", a.Name)
		}
		if b.Adjacent(a.Name, a.Name) {
			t.Errorf("%s is adjacent to itself", a.Name)
		}
		for _, n := range a.Adjacent {
			if !b.Adjacent(n, a.Name) {
				t.Errorf("adjacency %s -> %s has no reverse", a.Name, n)
			}
		}
	}
}

func TestStandardBoardCrossContinentEdges(t *testing.T) {
	b := StandardBoard()
	cases := [][2]string{
		{"Alaska", "Kamchatka"},
		{"Brazil", "North Africa"},
		{"Greenland", "Iceland"},
		{"Siam", "Indonesia"},
		{"Egypt", "Middle East"},
	}
	for _, e := range cases {
		if !b.Adjacent(e[0], e[1]) || !b.Adjacent(e[1], e[0]) {
			t.Errorf("expected %s and %s to border each other", e[0], e[1])
		}
	}
	if b.Adjacent("Alaska", "Argentina") {
		t.Error("Alaska should not border Argentina")
	}
}

func TestAdjacentUnknownTerritory(t *testing.T) {
	b := testBoard(t)
	if b.Adjacent("A1", "Atlantis") || b.Adjacent("Atlantis", "A1") {
		t.Error("unknown territory should never be adjacent")
	}
	if b.Neighbors("Atlantis") != nil {
		t.Error("unknown territory should have no neighbors")
	}
	if b.Index("Atlantis") != -1 {
		t.Error("unknown territory should have index -1")
	}
}

func TestNeighborsSorted(t *testing.T) {
	b := testBoard(t)
	got := strings.Join(b.Neighbors("A3"), ",")
	if got != "A1,A2,B1" {
		t.Errorf("expected A1,A2,B1, got %s", got)
	}
}

func TestNewBoardRejectsBadTables(t *testing.T) {
	cases := []struct {
		name       string
		continents []ContinentDef
		edges      [][2]string
		want       string
	}{
		{
			name:       "duplicate territory",
			continents: []ContinentDef{{"x", 1, []string{"T", "T"}}},
			want:       "duplicate territory",
		},
		{
			name:       "duplicate continent",
			continents: []ContinentDef{{"x", 1, []string{"T"}}, {"x", 1, []string{"U"}}},
			want:       "duplicate continent",
		},
		{
			name:       "unknown edge endpoint",
			continents: []ContinentDef{{"x", 1, []string{"T"}}},
			edges:      [][2]string{{"T", "U"}},
			want:       "unknown territory",
		},
		{
			name:       "self loop",
			continents: []ContinentDef{{"x", 1, []string{"T"}}},
			edges:      [][2]string{{"T", "T"}},
			want:       "cannot border itself",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBoard(tc.continents, tc.edges)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestContinentTerritories(t *testing.T) {
	b := testBoard(t)
	got := strings.Join(b.ContinentTerritories("beta"), ",")
	if got != "B1,B2,B3" {
		t.Errorf("expected B1,B2,B3, got %s", got)
	}
}
