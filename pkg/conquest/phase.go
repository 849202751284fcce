package conquest

// Phase is a step of a player's turn.
type Phase string

const (
	PhaseSetup         Phase = "SETUP"
	PhaseReinforcement Phase = "REINFORCEMENT"
	PhaseAttack        Phase = "ATTACK"
	PhaseFortification Phase = "FORTIFICATION"
)

// NextPhase returns the only phase reachable from p.
// SETUP -> REINFORCEMENT -> ATTACK -> FORTIFICATION -> REINFORCEMENT.
func NextPhase(p Phase) Phase {
	switch p {
	case PhaseSetup:
		return PhaseReinforcement
	case PhaseReinforcement:
		return PhaseAttack
	case PhaseAttack:
		return PhaseFortification
	case PhaseFortification:
		return PhaseReinforcement
	}
	return PhaseReinforcement
}

// Transition describes one validated phase change.
type Transition struct {
	Player         PlayerID `json:"-"`
	From           Phase    `json:"from"`
	To             Phase    `json:"to"`
	Ended          PlayerID `json:"-"` // player whose turn ended, or NoPlayer
	Started        PlayerID `json:"-"` // player whose turn began, or NoPlayer
	Reinforcements int      `json:"reinforcements,omitempty"`
}

// StartsTurn reports whether a new turn began on this transition.
func (t Transition) StartsTurn() bool { return t.Started != NoPlayer }

// AdvancePhase moves the game to the next phase on behalf of pid.
//
//	SETUP -> REINFORCEMENT:         every territory owned, every pool empty
//	REINFORCEMENT -> ATTACK:        current pool empty
//	ATTACK -> FORTIFICATION:        always
//	FORTIFICATION -> REINFORCEMENT: ends the turn and starts the next player's
func (g *Game) AdvancePhase(pid PlayerID) (Transition, error) {
	if err := g.checkActor(pid); err != nil {
		return Transition{}, err
	}
	t := Transition{Player: pid, From: g.phase, To: NextPhase(g.phase), Ended: NoPlayer, Started: NoPlayer}

	switch g.phase {
	case PhaseSetup:
		for idx, owner := range g.owner {
			if owner == NoPlayer {
				return Transition{}, reject(ErrSetupIncomplete, "%s is still unclaimed", g.board.At(idx).Name)
			}
		}
		for _, p := range g.players {
			if p.Available > 0 {
				return Transition{}, reject(ErrUnplacedArmies, "%s still has %d armies to place", p.Name, p.Available)
			}
		}
		g.phase = PhaseReinforcement
		first := g.firstActiveFrom(g.first)
		g.current = first
		g.turn = 1
		g.players[first].StartTurn(g.board)
		t.Started = first
		t.Reinforcements = g.players[first].ReinforcementsPerTurn

	case PhaseReinforcement:
		if p := g.players[pid]; p.Available > 0 {
			return Transition{}, reject(ErrUnplacedArmies, "place your remaining %d armies before attacking", p.Available)
		}
		g.phase = PhaseAttack

	case PhaseAttack:
		g.phase = PhaseFortification

	case PhaseFortification:
		next := g.passTurn()
		t.Ended = pid
		t.Started = next
		t.Reinforcements = g.players[next].ReinforcementsPerTurn
	}
	return t, nil
}

// EndTurn walks the remaining phases of pid's turn through AdvancePhase until
// the next player's turn begins. No phase is skipped.
func (g *Game) EndTurn(pid PlayerID) ([]Transition, error) {
	if err := g.checkActor(pid); err != nil {
		return nil, err
	}
	switch g.phase {
	case PhaseSetup:
		return nil, reject(ErrWrongPhase, "setup has no turns to end; finish placing armies")
	case PhaseReinforcement:
		if p := g.players[pid]; p.Available > 0 {
			return nil, reject(ErrUnplacedArmies, "place your remaining %d armies before ending the turn", p.Available)
		}
	}
	var out []Transition
	for {
		t, err := g.AdvancePhase(pid)
		if err != nil {
			return out, err
		}
		out = append(out, t)
		if t.StartsTurn() {
			return out, nil
		}
	}
}

// passTurn ends the current player's turn and starts the next active player's.
func (g *Game) passTurn() PlayerID {
	g.players[g.current].EndTurn()
	next := g.nextActive(g.current)
	g.current = next
	g.phase = PhaseReinforcement
	g.turn++
	g.players[next].StartTurn(g.board)
	return next
}
