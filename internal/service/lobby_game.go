package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/pkg/conquest"
)

// beginGame seats everyone in the current seat order, deals the board and
// announces the first move.
func (l *Lobby) beginGame(opts conquest.Options) error {
	names := make([]string, len(l.seats))
	for i, s := range l.seats {
		names[i] = s.name
	}
	if l.mgr.settings.Roller != nil {
		opts.Roller = l.mgr.settings.Roller
	}
	g, err := conquest.NewGame(uuid.NewString(), l.mgr.settings.Board, names, opts)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to create game")
		return err
	}
	for i, s := range l.seats {
		s.player = conquest.PlayerID(i)
		s.rematch = false
	}
	l.game = g
	l.overAnnounce = false

	l.broadcast(protocol.New(protocol.KindGameStarted, protocol.GameStarted{
		GameID:  g.ID,
		Players: names,
		First:   g.Current().Name,
	}))
	l.publishState()
	l.broadcast(protocol.New(protocol.KindTurnStarted, protocol.TurnPayload{
		Player: g.Current().Name,
		Turn:   g.Turn(),
	}))
	l.mgr.rec.Roster(l.roster())
	l.record(model.EventGameStarted, "", "", map[string]any{"game_id": g.ID, "players": names})
	l.log.Info().Str("gameId", g.ID).Strs("players", names).Str("first", g.Current().Name).Msg("Game started")
	return nil
}

// act validates and applies one player action, then pushes the result to
// every seat before returning.
func (l *Lobby) act(s *seat, msg protocol.Message) {
	g := l.game
	if g == nil || s.player == conquest.NoPlayer {
		reply(s.conn, protocol.KindErrorMessage, ErrNoGame)
		return
	}
	pid := s.player

	switch msg.Kind {
	case protocol.KindTerritorySelected:
		var p protocol.TerritoryPayload
		if err := msg.Decode(&p); err != nil {
			reply(s.conn, protocol.KindErrorMessage, err)
			return
		}
		t, err := g.SelectTerritory(pid, p.Territory)
		if err != nil {
			l.rejectMove(s, err, protocol.KindInvalidMove)
			return
		}
		l.broadcast(protocol.New(protocol.KindTerritorySelected, protocol.TerritoryPayload{Territory: t.Name}).From(s.name))

	case protocol.KindSoldiersPlaced:
		var p protocol.PlacePayload
		if err := msg.Decode(&p); err != nil {
			reply(s.conn, protocol.KindErrorMessage, err)
			return
		}
		if err := g.PlaceSoldiers(pid, p.Territory, p.Count); err != nil {
			l.rejectMove(s, err, protocol.KindInvalidMove)
			return
		}
		l.broadcast(protocol.New(protocol.KindSoldiersPlaced, p).From(s.name))
		l.publishState()

	case protocol.KindAttackMade:
		var p protocol.MovePayload
		if err := msg.Decode(&p); err != nil {
			reply(s.conn, protocol.KindErrorMessage, err)
			return
		}
		res, err := g.Attack(pid, p.From, p.To, p.Count)
		if err != nil {
			l.rejectMove(s, err, protocol.KindInvalidMove)
			return
		}
		report := protocol.AttackReport{AttackResult: *res, Dice: p.Count}
		if d, ok := g.Player(res.Defender); ok {
			report.Defender = d.Name
		}
		l.broadcast(protocol.New(protocol.KindAttackMade, report).From(s.name))
		l.publishState()
		l.announceGameOver("conquest")

	case protocol.KindFortificationMade:
		var p protocol.MovePayload
		if err := msg.Decode(&p); err != nil {
			reply(s.conn, protocol.KindErrorMessage, err)
			return
		}
		if err := g.Fortify(pid, p.From, p.To, p.Count); err != nil {
			l.rejectMove(s, err, protocol.KindInvalidMove)
			return
		}
		l.broadcast(protocol.New(protocol.KindFortificationMade, p).From(s.name))
		l.publishState()

	case protocol.KindEndPhase:
		t, err := g.AdvancePhase(pid)
		if err != nil {
			l.rejectMove(s, err, protocol.KindPhaseChangeFailed)
			return
		}
		l.announce(t)
		l.publishState()

	case protocol.KindEndTurn:
		ts, err := g.EndTurn(pid)
		for _, t := range ts {
			l.announce(t)
		}
		if err != nil {
			l.rejectMove(s, err, protocol.KindPhaseChangeFailed)
		}
		if len(ts) > 0 {
			l.publishState()
		}
	}
}

// rejectMove tells only the sender why its action failed. NOT_YOUR_TURN has
// its own kind; other rule violations use kind.
func (l *Lobby) rejectMove(s *seat, err error, kind protocol.Kind) {
	var ve *conquest.ValidationError
	if !errors.As(err, &ve) {
		reply(s.conn, protocol.KindErrorMessage, err)
		return
	}
	if errors.Is(err, conquest.ErrNotYourTurn) {
		kind = protocol.KindNotYourTurn
	}
	send(s.conn, protocol.New(kind, protocol.ReasonPayload{Reason: ve.Error(), Code: ve.Code()}))
	l.log.Debug().Str("player", s.name).Str("code", ve.Code()).Str("reason", ve.Reason).Msg("Move rejected")
}

// announce broadcasts one phase transition and any turn boundary on it.
func (l *Lobby) announce(t conquest.Transition) {
	l.broadcast(protocol.New(protocol.KindPhaseChanged, protocol.PhasePayload{
		Player: l.playerName(t.Player),
		From:   t.From,
		To:     t.To,
	}))
	if t.Ended != conquest.NoPlayer {
		l.broadcast(protocol.New(protocol.KindTurnEnded, protocol.TurnPayload{
			Player: l.playerName(t.Ended),
			Turn:   l.game.Turn() - 1,
		}))
	}
	if t.StartsTurn() {
		l.broadcast(protocol.New(protocol.KindTurnStarted, protocol.TurnPayload{
			Player:         l.playerName(t.Started),
			Turn:           l.game.Turn(),
			Reinforcements: t.Reinforcements,
		}))
	}
}

func (l *Lobby) publishState() {
	snap := l.game.Snapshot()
	l.broadcast(protocol.New(protocol.KindGameStateUpdate, snap))
	l.mgr.rec.Snapshot(l.ID, snap)
}

// announceGameOver broadcasts GAME_OVER once per game.
func (l *Lobby) announceGameOver(reason string) {
	if l.game == nil || !l.game.IsOver() || l.overAnnounce {
		return
	}
	l.overAnnounce = true
	winner := ""
	if w, ok := l.game.Winner(); ok {
		winner = w.Name
	}
	l.broadcast(protocol.New(protocol.KindGameOver, protocol.GameOverPayload{Winner: winner, Reason: reason}))
	l.record(model.EventGameOver, winner, "", map[string]string{"game_id": l.game.ID, "reason": reason})
	l.log.Info().Str("gameId", l.game.ID).Str("winner", winner).Str("reason", reason).Msg("Game over")
}

// forfeit withdraws s from the running game and settles the turn.
func (l *Lobby) forfeit(s *seat) {
	t, err := l.game.Forfeit(s.player)
	if err != nil {
		l.log.Warn().Err(err).Str("player", s.name).Msg("Forfeit rejected")
		return
	}
	if t != nil {
		l.announce(*t)
	}
	l.publishState()
	l.announceGameOver("forfeit")
}

func (l *Lobby) playerName(id conquest.PlayerID) string {
	if p, ok := l.game.Player(id); ok {
		return p.Name
	}
	return ""
}
