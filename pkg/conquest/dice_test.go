package conquest

import "testing"

// scriptedRoller returns canned rolls in order and records the dice counts
// it was asked for.
type scriptedRoller struct {
	rolls [][]int
	asked []int
}

func (s *scriptedRoller) Roll(n int) []int {
	s.asked = append(s.asked, n)
	if len(s.rolls) == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = 1
		}
		return out
	}
	r := s.rolls[0]
	s.rolls = s.rolls[1:]
	return r
}

func script(rolls ...[]int) *scriptedRoller {
	return &scriptedRoller{rolls: rolls}
}

func TestCompareRolls(t *testing.T) {
	cases := []struct {
		name         string
		att, def     []int
		aLoss, dLoss int
	}{
		{"attacker sweeps", []int{6, 4, 2}, []int{5, 3}, 0, 2},
		{"split", []int{3, 2}, []int{5, 1}, 1, 1},
		{"tie favors defender", []int{4}, []int{4}, 1, 0},
		{"unsorted input", []int{2, 6, 4}, []int{3, 5}, 0, 2},
		{"single vs two", []int{6}, []int{6, 6}, 1, 0},
		{"defender sweeps", []int{1, 1, 1}, []int{1, 1}, 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, d := CompareRolls(tc.att, tc.def)
			if a != tc.aLoss || d != tc.dLoss {
				t.Errorf("expected losses %d/%d, got %d/%d", tc.aLoss, tc.dLoss, a, d)
			}
		})
	}
}

func TestCompareRollsDoesNotMutate(t *testing.T) {
	att := []int{1, 6, 3}
	CompareRolls(att, []int{2})
	if att[0] != 1 || att[1] != 6 || att[2] != 3 {
		t.Errorf("input slice was reordered: %v", att)
	}
}

func TestResolveSortsReportedRolls(t *testing.T) {
	r := script([]int{2, 6, 4}, []int{3, 5})
	b := Resolve(r, 3, 2)
	if b.AttackerRolls[0] != 6 || b.AttackerRolls[2] != 2 {
		t.Errorf("attacker rolls not sorted descending: %v", b.AttackerRolls)
	}
	if b.DefenderRolls[0] != 5 {
		t.Errorf("defender rolls not sorted descending: %v", b.DefenderRolls)
	}
	if b.AttackerLosses != 0 || b.DefenderLosses != 2 {
		t.Errorf("expected 0/2 losses, got %d/%d", b.AttackerLosses, b.DefenderLosses)
	}
	if len(r.asked) != 2 || r.asked[0] != 3 || r.asked[1] != 2 {
		t.Errorf("expected dice requests [3 2], got %v", r.asked)
	}
}

func TestRandomRollerRange(t *testing.T) {
	var r RandomRoller
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		for _, v := range r.Roll(3) {
			if v < 1 || v > DieFaces {
				t.Fatalf("roll %d out of range", v)
			}
			seen[v] = true
		}
	}
	if len(seen) != DieFaces {
		t.Errorf("expected all %d faces over 1500 rolls, saw %d", DieFaces, len(seen))
	}
}

func TestResolveLossesBounded(t *testing.T) {
	var r RandomRoller
	for att := 1; att <= MaxAttackDice; att++ {
		for def := 1; def <= MaxDefenseDice; def++ {
			for i := 0; i < 50; i++ {
				b := Resolve(r, att, def)
				if b.AttackerLosses+b.DefenderLosses != min(att, def) {
					t.Fatalf("%dv%d: losses %d+%d do not sum to %d",
						att, def, b.AttackerLosses, b.DefenderLosses, min(att, def))
				}
			}
		}
	}
}
