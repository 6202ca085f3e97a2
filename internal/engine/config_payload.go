package engine

import "sort"

// Static game configuration served to clients at game init.
type LineWinEntry struct {
	Symbol string  `json:"symbol"`
	X3     float64 `json:"x3"`
	X4     float64 `json:"x4"`
	X5     float64 `json:"x5"`
}

type ScatterAwardEntry struct {
	Count     int `json:"count"`
	FreeSpins int `json:"free_spins"`
}

type PaytablePayload struct {
	LineWins []LineWinEntry `json:"line_wins"`
	Scatter  struct {
		Symbol string              `json:"symbol"`
		Awards []ScatterAwardEntry `json:"awards"`
	} `json:"scatter"`
	Wild struct {
		Symbol         string   `json:"symbol"`
		SubstitutesFor []string `json:"substitutes_for"`
	} `json:"wild"`
}

type GameConfig struct {
	GameID       string          `json:"game_id"`
	Reels        int             `json:"reels"`
	Rows         int             `json:"rows"`
	Paylines     int             `json:"paylines"`
	Currencies   []string        `json:"currencies"`
	MinBet       float64         `json:"min_bet"`
	MaxBet       float64         `json:"max_bet"`
	MinLines     int             `json:"min_lines"`
	MaxLines     int             `json:"max_lines"`
	DefaultLines int             `json:"default_lines"`
	LineDefs     [][]int         `json:"line_defs"`
	BetLevels    []float64       `json:"bet_levels"`
	Paytable     PaytablePayload `json:"paytable"`
	RTP          float64         `json:"rtp"`
	Volatility   string          `json:"volatility"`
	Features     []string        `json:"features"`
}

// ConfigPayload builds the static config block for /game/init.
func ConfigPayload() GameConfig {
	var lineWins []LineWinEntry
	for _, symbol := range Symbols {
		pay, ok := Paytable[symbol]
		if !ok {
			continue
		}
		x3, _ := pay[0].Float64()
		x4, _ := pay[1].Float64()
		x5, _ := pay[2].Float64()
		if x3 <= 0 && x4 <= 0 && x5 <= 0 {
			continue
		}
		lineWins = append(lineWins, LineWinEntry{Symbol: symbol, X3: x3, X4: x4, X5: x5})
	}
	sort.Slice(lineWins, func(i, j int) bool { return lineWins[i].X5 > lineWins[j].X5 })

	var paytable PaytablePayload
	paytable.LineWins = lineWins
	paytable.Scatter.Symbol = SymbolScatter
	for _, award := range ScatterFreeSpins {
		paytable.Scatter.Awards = append(paytable.Scatter.Awards, ScatterAwardEntry{
			Count:     award.Count,
			FreeSpins: award.FreeSpins,
		})
	}
	paytable.Wild.Symbol = SymbolWild
	for _, item := range lineWins {
		paytable.Wild.SubstitutesFor = append(paytable.Wild.SubstitutesFor, item.Symbol)
	}

	lineDefs := make([][]int, len(LineDefs))
	for i, def := range LineDefs {
		row := make([]int, len(def))
		copy(row, def[:])
		lineDefs[i] = row
	}

	betLevels := make([]float64, len(BetLevelsCents))
	for i, cents := range BetLevelsCents {
		betLevels[i] = float64(cents) / 100
	}

	return GameConfig{
		GameID:       GameID,
		Reels:        Reels,
		Rows:         Rows,
		Paylines:     Paylines,
		Currencies:   []string{Currency},
		MinBet:       float64(MinBetCents) / 100,
		MaxBet:       float64(MaxBetCents) / 100,
		MinLines:     1,
		MaxLines:     Paylines,
		DefaultLines: Paylines,
		LineDefs:     lineDefs,
		BetLevels:    betLevels,
		Paytable:     paytable,
		RTP:          RTP,
		Volatility:   Volatility,
		Features:     []string{"free_spins", "multipliers", "scatter"},
	}
}
