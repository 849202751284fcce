package conquest

import "sync"

var (
	stdBoardOnce sync.Once
	stdBoardInst *Board
)

// StandardBoard returns the classic 42-territory world board. The board is
// built once and cached; callers must not mutate it.
func StandardBoard() *Board {
	stdBoardOnce.Do(func() {
		b, err := NewBoard(standardContinents, standardEdges)
		if err != nil {
			panic("conquest: invalid standard board: " + err.Error())
		}
		stdBoardInst = b
	})
	return stdBoardInst
}

var standardContinents = []ContinentDef{
	{NorthAmerica, 5, []string{
		"Alaska", "Northwest Territory", "Greenland", "Alberta", "Ontario",
		"Quebec", "Western United States", "Eastern United States", "Central America",
	}},
	{SouthAmerica, 2, []string{"Venezuela", "Peru", "Brazil", "Argentina"}},
	{Europe, 5, []string{
		"Iceland", "Scandinavia", "Ukraine", "Great Britain",
		"Northern Europe", "Western Europe", "Southern Europe",
	}},
	{Africa, 3, []string{"North Africa", "Egypt", "East Africa", "Congo", "South Africa", "Madagascar"}},
	{Asia, 7, []string{
		"Ural", "Siberia", "Yakutsk", "Kamchatka", "Irkutsk", "Mongolia",
		"Japan", "Afghanistan", "China", "Middle East", "India", "Siam",
	}},
	{Oceania, 2, []string{"Indonesia", "New Guinea", "Western Australia", "Eastern Australia"}},
}

var standardEdges = [][2]string{
	// North America
	{"Alaska", "Northwest Territory"},
	{"Alaska", "Alberta"},
	{"Alaska", "Kamchatka"},
	{"Northwest Territory", "Alberta"},
	{"Northwest Territory", "Ontario"},
	{"Northwest Territory", "Greenland"},
	{"Greenland", "Ontario"},
	{"Greenland", "Quebec"},
	{"Greenland", "Iceland"},
	{"Alberta", "Ontario"},
	{"Alberta", "Western United States"},
	{"Ontario", "Quebec"},
	{"Ontario", "Western United States"},
	{"Ontario", "Eastern United States"},
	{"Quebec", "Eastern United States"},
	{"Western United States", "Eastern United States"},
	{"Western United States", "Central America"},
	{"Eastern United States", "Central America"},
	{"Central America", "Venezuela"},

	// South America
	{"Venezuela", "Peru"},
	{"Venezuela", "Brazil"},
	{"Peru", "Brazil"},
	{"Peru", "Argentina"},
	{"Brazil", "Argentina"},
	{"Brazil", "North Africa"},

	// Europe
	{"Iceland", "Scandinavia"},
	{"Iceland", "Great Britain"},
	{"Scandinavia", "Great Britain"},
	{"Scandinavia", "Northern Europe"},
	{"Scandinavia", "Ukraine"},
	{"Great Britain", "Northern Europe"},
	{"Great Britain", "Western Europe"},
	{"Northern Europe", "Western Europe"},
	{"Northern Europe", "Southern Europe"},
	{"Northern Europe", "Ukraine"},
	{"Western Europe", "Southern Europe"},
	{"Western Europe", "North Africa"},
	{"Southern Europe", "Ukraine"},
	{"Southern Europe", "North Africa"},
	{"Southern Europe", "Egypt"},
	{"Southern Europe", "Middle East"},
	{"Ukraine", "Ural"},
	{"Ukraine", "Afghanistan"},
	{"Ukraine", "Middle East"},

	// Africa
	{"North Africa", "Egypt"},
	{"North Africa", "East Africa"},
	{"North Africa", "Congo"},
	{"Egypt", "East Africa"},
	{"Egypt", "Middle East"},
	{"East Africa", "Congo"},
	{"East Africa", "South Africa"},
	{"East Africa", "Madagascar"},
	{"East Africa", "Middle East"},
	{"Congo", "South Africa"},
	{"South Africa", "Madagascar"},

	// Asia
	{"Ural", "Siberia"},
	{"Ural", "China"},
	{"Ural", "Afghanistan"},
	{"Siberia", "Yakutsk"},
	{"Siberia", "Irkutsk"},
	{"Siberia", "Mongolia"},
	{"Siberia", "China"},
	{"Yakutsk", "Irkutsk"},
	{"Yakutsk", "Kamchatka"},
	{"Kamchatka", "Irkutsk"},
	{"Kamchatka", "Mongolia"},
	{"Kamchatka", "Japan"},
	{"Irkutsk", "Mongolia"},
	{"Mongolia", "China"},
	{"Mongolia", "Japan"},
	{"Afghanistan", "China"},
	{"Afghanistan", "India"},
	{"Afghanistan", "Middle East"},
	{"China", "India"},
	{"China", "Siam"},
	{"Middle East", "India"},
	{"India", "Siam"},
	{"Siam", "Indonesia"},

	// Oceania
	{"Indonesia", "New Guinea"},
	{"Indonesia", "Western Australia"},
	{"New Guinea", "Western Australia"},
	{"New Guinea", "Eastern Australia"},
	{"Western Australia", "Eastern Australia"},
}
