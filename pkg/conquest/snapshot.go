package conquest

// Snapshot is a self-contained view of a game for clients. Adjacency is given
// as territory names resolved against the static board.
type Snapshot struct {
	GameID        string          `json:"game_id"`
	Phase         Phase           `json:"phase"`
	Turn          int             `json:"turn"`
	CurrentPlayer string          `json:"current_player"`
	GameOver      bool            `json:"game_over"`
	Winner        string          `json:"winner,omitempty"`
	Players       []PlayerView    `json:"players"`
	Territories   []TerritoryView `json:"territories"`
}

// PlayerView is one player's public ledger.
type PlayerView struct {
	Name                  string   `json:"name"`
	Color                 string   `json:"color"`
	TurnOrder             int      `json:"turn_order"`
	Available             int      `json:"available"`
	TotalArmies           int      `json:"total_armies"`
	ReinforcementsPerTurn int      `json:"reinforcements_per_turn"`
	Territories           []string `json:"territories"`
	Active                bool     `json:"active"`
	TurnCount             int      `json:"turn_count"`
}

// TerritoryView is one territory's owner and army count.
type TerritoryView struct {
	Name      string    `json:"name"`
	Continent Continent `json:"continent"`
	Owner     string    `json:"owner,omitempty"`
	Armies    int       `json:"armies"`
	Adjacent  []string  `json:"adjacent"`
}

// Snapshot captures the full current state. The result shares no mutable
// memory with the game.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		GameID:        g.ID,
		Phase:         g.phase,
		Turn:          g.turn,
		CurrentPlayer: g.players[g.current].Name,
		GameOver:      g.gameOver,
		Players:       make([]PlayerView, len(g.players)),
		Territories:   make([]TerritoryView, g.board.Size()),
	}
	if w, ok := g.Winner(); ok {
		s.Winner = w.Name
	}
	for i, p := range g.players {
		owned := p.ownedIndexes()
		names := make([]string, len(owned))
		for j, idx := range owned {
			names[j] = g.board.At(idx).Name
		}
		s.Players[i] = PlayerView{
			Name:                  p.Name,
			Color:                 p.Color,
			TurnOrder:             int(p.ID),
			Available:             p.Available,
			TotalArmies:           g.TotalArmies(p.ID),
			ReinforcementsPerTurn: p.ReinforcementsPerTurn,
			Territories:           names,
			Active:                p.Active,
			TurnCount:             p.TurnCount,
		}
	}
	for i, t := range g.board.Territories() {
		v := TerritoryView{
			Name:      t.Name,
			Continent: t.Continent,
			Armies:    g.armies[i],
			Adjacent:  append([]string(nil), t.Adjacent...),
		}
		if o := g.owner[i]; o != NoPlayer {
			v.Owner = g.players[o].Name
		}
		s.Territories[i] = v
	}
	return s
}
