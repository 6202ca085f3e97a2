package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineWin is one winning payline in a spin outcome.
type LineWin struct {
	Type      string          `json:"type"`
	LineIndex int             `json:"line_index"`
	Symbol    string          `json:"symbol"`
	Count     int             `json:"count"`
	Payout    decimal.Decimal `json:"payout"`
}

// Bonus describes a free-spins bonus triggered by scatters.
type Bonus struct {
	Type           string `json:"type"`
	FreeSpinsCount int    `json:"free_spins_count"`
	BonusRoundID   string `json:"bonus_round_id"`
	Multiplier     int    `json:"multiplier"`
}

// Outcome is the full result of one spin. WinCents is the total win
// rounded to minor units; Breakdown carries the unrounded per-line
// payouts in major units for display and audit.
type Outcome struct {
	ReelMatrix [][]string
	Currency   string
	WinCents   int64
	Breakdown  []LineWin
	Bonus      *Bonus
}

var hundred = decimal.NewFromInt(100)

// Spin computes the outcome for a bet and seed. It is a pure function:
// the same inputs always produce the same outcome.
func Spin(betCents int64, currency string, activeLines int, seed uint32) Outcome {
	rng := NewRNG(seed)

	lines := clampLines(activeLines)
	matrix := buildReelMatrix(rng)

	bet := decimal.NewFromInt(betCents).Div(hundred)
	betPerLine := bet.Div(decimal.NewFromInt(int64(lines)))

	var breakdown []LineWin
	totalWin := decimal.Zero

	for lineIndex := 0; lineIndex < lines && lineIndex < len(LineDefs); lineIndex++ {
		symbol, count, ok := evaluateLine(matrix, LineDefs[lineIndex])
		if !ok {
			continue
		}
		pay, exists := Paytable[symbol]
		if !exists {
			continue
		}
		mult := pay[count-3]
		if !mult.IsPositive() {
			continue
		}
		payout := betPerLine.Mul(mult)
		totalWin = totalWin.Add(payout)
		breakdown = append(breakdown, LineWin{
			Type:      "line",
			LineIndex: lineIndex,
			Symbol:    symbol,
			Count:     count,
			Payout:    payout,
		})
	}

	var bonus *Bonus
	if freeSpins := FreeSpinsForScatters(countScatters(matrix)); freeSpins > 0 {
		bonus = &Bonus{
			Type:           "free_spins",
			FreeSpinsCount: freeSpins,
			BonusRoundID:   fmt.Sprintf("br_%d", seed),
			Multiplier:     1,
		}
	}

	return Outcome{
		ReelMatrix: matrix,
		Currency:   currency,
		WinCents:   totalWin.Round(2).Mul(hundred).IntPart(),
		Breakdown:  breakdown,
		Bonus:      bonus,
	}
}

// IdleMatrix builds a display-only matrix for game init; no lines are
// evaluated and no money moves.
func IdleMatrix(seed uint32) [][]string {
	return buildReelMatrix(NewRNG(seed))
}

func clampLines(lines int) int {
	if lines < 1 {
		return 1
	}
	if lines > Paylines {
		return Paylines
	}
	return lines
}

// buildReelMatrix stops each reel at a random strip position and reads
// Rows consecutive symbols, wrapping around the strip.
func buildReelMatrix(rng *RNG) [][]string {
	matrix := make([][]string, Reels)
	for r := 0; r < Reels; r++ {
		strip := ReelStrips[r]
		pos := int(rng.Next() * float64(len(strip)))
		col := make([]string, Rows)
		for row := 0; row < Rows; row++ {
			col[row] = strip[(pos+row)%len(strip)]
		}
		matrix[r] = col
	}
	return matrix
}

// evaluateLine counts the longest run of identical symbols from reel 0,
// with Wild matching anything. Runs shorter than 3 pay nothing.
func evaluateLine(matrix [][]string, line [Reels]int) (string, int, bool) {
	count := 0
	symbol := ""
	for r := 0; r < Reels; r++ {
		sym := matrix[r][line[r]]
		if sym == SymbolWild {
			count++
			continue
		}
		if symbol == "" {
			symbol = sym
		}
		if sym != symbol {
			break
		}
		count++
	}
	if count < 3 || symbol == "" {
		return "", 0, false
	}
	return symbol, count, true
}

func countScatters(matrix [][]string) int {
	n := 0
	for _, col := range matrix {
		for _, sym := range col {
			if sym == SymbolScatter {
				n++
			}
		}
	}
	return n
}

// FreeSpinsForScatters looks up the free-spin award for a scatter count;
// the highest satisfied threshold wins.
func FreeSpinsForScatters(count int) int {
	for i := len(ScatterFreeSpins) - 1; i >= 0; i-- {
		if count >= ScatterFreeSpins[i].Count {
			return ScatterFreeSpins[i].FreeSpins
		}
	}
	return 0
}
