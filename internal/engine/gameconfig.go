package engine

import "github.com/shopspring/decimal"

const (
	GameID = "slot_mega_fortune_001"

	Reels    = 5
	Rows     = 3
	Paylines = 20

	SymbolScatter = "Scatter"
	SymbolWild    = "Wild"

	Currency = "USD"

	MinBetCents         = 10    // 0.10
	MaxBetCents         = 10000 // 100.00
	DefaultBalanceCents = 100000

	RTP        = 96.5
	Volatility = "high"
)

var Symbols = []string{"10", "J", "Q", "K", "A", "Star", "Scatter", "Wild"}

var BetLevelsCents = []int64{10, 20, 50, 100, 200, 500, 1000, 2500, 5000, 10000}

// ReelStrips holds the weighted symbol strip for each reel. A spin picks
// a stop position per reel and reads Rows consecutive symbols, wrapping.
var ReelStrips = [Reels][]string{
	{"10", "J", "Q", "K", "A", "10", "J", "Star", "Q", "K", "A", "10", "J", "Q", "K", "Scatter", "A", "10", "J", "Q", "Wild", "K", "A"},
	{"J", "Q", "K", "A", "10", "J", "Q", "K", "Star", "A", "10", "J", "Q", "K", "A", "10", "J", "Scatter", "Q", "K", "A", "10", "J"},
	{"Q", "K", "A", "10", "J", "Q", "K", "A", "10", "J", "Star", "Q", "K", "A", "10", "J", "Q", "K", "Scatter", "A", "10", "J", "Q"},
	{"K", "A", "10", "J", "Q", "K", "A", "10", "J", "Q", "K", "Star", "A", "10", "J", "Q", "K", "A", "10", "Scatter", "J", "Q", "K"},
	{"A", "10", "J", "Q", "K", "A", "10", "J", "Q", "K", "A", "10", "J", "Star", "Q", "K", "A", "10", "J", "Q", "Scatter", "K", "A"},
}

// Paytable maps a symbol to its per-line multipliers for runs of 3, 4
// and 5. The multiplier applies to bet / active_lines, which is the
// fixed configuration contract for this game.
var Paytable = map[string][3]decimal.Decimal{
	"10":   {d("0.2"), d("0.5"), d("2")},
	"J":    {d("0.2"), d("0.5"), d("2.5")},
	"Q":    {d("0.3"), d("0.8"), d("3")},
	"K":    {d("0.3"), d("1"), d("4")},
	"A":    {d("0.5"), d("1.5"), d("5")},
	"Star": {d("0.5"), d("2"), d("10")},
}

// ScatterAward maps a scatter-count threshold to awarded free spins.
// Thresholds are ascending; the highest satisfied one wins.
type ScatterAward struct {
	Count     int
	FreeSpins int
}

var ScatterFreeSpins = []ScatterAward{
	{Count: 3, FreeSpins: 5},
	{Count: 4, FreeSpins: 10},
	{Count: 5, FreeSpins: 20},
}

// LineDefs holds the 20 payline definitions. Each entry lists the row
// (0=top, 1=mid, 2=bottom) read on each reel, left to right.
var LineDefs = [Paylines][Reels]int{
	{1, 1, 1, 1, 1},
	{0, 0, 0, 0, 0},
	{2, 2, 2, 2, 2},
	{1, 0, 0, 0, 1},
	{1, 2, 2, 2, 1},
	{0, 1, 0, 1, 0},
	{2, 1, 2, 1, 2},
	{0, 0, 1, 0, 0},
	{2, 2, 1, 2, 2},
	{1, 1, 0, 1, 1},
	{1, 1, 2, 1, 1},
	{0, 1, 1, 1, 0},
	{2, 1, 1, 1, 2},
	{0, 2, 0, 2, 0},
	{2, 0, 2, 0, 2},
	{1, 0, 1, 0, 1},
	{1, 2, 1, 2, 1},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 1, 2},
	{0, 2, 1, 2, 0},
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
