package conquest

import (
	"math/rand/v2"
	"sort"
)

// Dice limits.
const (
	MaxAttackDice  = 3
	MaxDefenseDice = 2
	DieFaces       = 6
)

// Roller produces die rolls. Each value must be in 1..DieFaces.
type Roller interface {
	Roll(n int) []int
}

// RandomRoller rolls independent uniform dice from the runtime's random source.
type RandomRoller struct{}

// Roll returns n independent rolls.
func (RandomRoller) Roll(n int) []int {
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = rand.IntN(DieFaces) + 1
	}
	return rolls
}

// RollerFunc adapts a function to a Roller.
type RollerFunc func(n int) []int

func (f RollerFunc) Roll(n int) []int { return f(n) }

// Battle is the outcome of one combat round.
type Battle struct {
	AttackerRolls  []int `json:"attacker_rolls"`
	DefenderRolls  []int `json:"defender_rolls"`
	AttackerLosses int   `json:"attacker_losses"`
	DefenderLosses int   `json:"defender_losses"`
}

// Resolve rolls attackerDice and defenderDice independently and compares them.
// Dice counts must already be legal; Resolve does not validate them.
func Resolve(r Roller, attackerDice, defenderDice int) Battle {
	att := r.Roll(attackerDice)
	def := r.Roll(defenderDice)
	aLoss, dLoss := CompareRolls(att, def)
	return Battle{
		AttackerRolls:  sortedDesc(att),
		DefenderRolls:  sortedDesc(def),
		AttackerLosses: aLoss,
		DefenderLosses: dLoss,
	}
}

// CompareRolls sorts both sides descending and compares them pairwise. The
// higher die wins each pair; ties go to the defender. Unpaired dice are ignored.
func CompareRolls(attacker, defender []int) (attackerLosses, defenderLosses int) {
	att := sortedDesc(attacker)
	def := sortedDesc(defender)
	pairs := min(len(att), len(def))
	for i := 0; i < pairs; i++ {
		if att[i] > def[i] {
			defenderLosses++
		} else {
			attackerLosses++
		}
	}
	return attackerLosses, defenderLosses
}

func sortedDesc(rolls []int) []int {
	out := make([]int, len(rolls))
	copy(out, rolls)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
