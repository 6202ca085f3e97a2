package store

import (
	"context"
	"fmt"
	"testing"

	"slots-backend/internal/models"
)

func seedHistory(t *testing.T, s *MemoryStore) {
	t.Helper()
	ctx := context.Background()

	// 10 rounds, alternating net win / net loss, bets 100..1000.
	for i := 0; i < 10; i++ {
		bet := int64((i + 1) * 100)
		var win int64
		if i%2 == 0 {
			win = bet * 2
		}
		if _, err := s.CreateRound(ctx, roundParams(fmt.Sprintf("round-%d", i), "user-1", bet, win)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListRoundsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	seedHistory(t, s)

	items, total, err := s.ListRounds(context.Background(), "user-1", models.HistoryFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 || len(items) != 10 {
		t.Fatalf("got %d items, total %d, want 10/10", len(items), total)
	}
	if items[0].ID != "round-9" || items[9].ID != "round-0" {
		t.Fatalf("expected newest first, got %s .. %s", items[0].ID, items[9].ID)
	}
}

func TestListRoundsResultFilter(t *testing.T) {
	s := NewMemoryStore()
	seedHistory(t, s)
	ctx := context.Background()

	wins, totalWins, _ := s.ListRounds(ctx, "user-1", models.HistoryFilters{Result: "win"})
	if totalWins != 5 {
		t.Fatalf("win total %d, want 5", totalWins)
	}
	for _, r := range wins {
		if r.WinCents <= r.BetCents {
			t.Fatalf("round %s in win filter with win %d <= bet %d", r.ID, r.WinCents, r.BetCents)
		}
	}

	_, totalLosses, _ := s.ListRounds(ctx, "user-1", models.HistoryFilters{Result: "loss"})
	if totalLosses != 5 {
		t.Fatalf("loss total %d, want 5", totalLosses)
	}
}

func TestListRoundsBetRange(t *testing.T) {
	s := NewMemoryStore()
	seedHistory(t, s)

	minBet, maxBet := int64(300), int64(700)
	items, total, _ := s.ListRounds(context.Background(), "user-1", models.HistoryFilters{MinBet: &minBet, MaxBet: &maxBet})
	if total != 5 {
		t.Fatalf("total %d, want 5 rounds with bets 300..700", total)
	}
	for _, r := range items {
		if r.BetCents < minBet || r.BetCents > maxBet {
			t.Fatalf("round %s bet %d outside [%d,%d]", r.ID, r.BetCents, minBet, maxBet)
		}
	}
}

func TestListRoundsPagination(t *testing.T) {
	s := NewMemoryStore()
	seedHistory(t, s)
	ctx := context.Background()

	page, total, _ := s.ListRounds(ctx, "user-1", models.HistoryFilters{Limit: 3, Offset: 0})
	if total != 10 || len(page) != 3 {
		t.Fatalf("page 1: %d items, total %d", len(page), total)
	}
	page2, _, _ := s.ListRounds(ctx, "user-1", models.HistoryFilters{Limit: 3, Offset: 3})
	if page2[0].ID == page[0].ID {
		t.Fatal("offset did not advance the page")
	}

	// Out-of-range limits clamp to the shared page bounds.
	all, _, _ := s.ListRounds(ctx, "user-1", models.HistoryFilters{Limit: 500})
	if len(all) != 10 {
		t.Fatalf("oversized limit returned %d items, want all 10", len(all))
	}

	empty, total, _ := s.ListRounds(ctx, "user-1", models.HistoryFilters{Offset: 100})
	if len(empty) != 0 || total != 10 {
		t.Fatalf("past-the-end offset: %d items, total %d", len(empty), total)
	}
}

func TestSummaryAggregates(t *testing.T) {
	s := NewMemoryStore()
	seedHistory(t, s)

	summary, err := s.Summary(context.Background(), "user-1", models.HistoryFilters{})
	if err != nil {
		t.Fatal(err)
	}
	// Bets 100..1000 = 5500 cents; wins on even rounds: 2*(100+300+500+700+900) = 5000.
	if summary.TotalRounds != 10 {
		t.Fatalf("total rounds %d, want 10", summary.TotalRounds)
	}
	if summary.TotalWagered != 55.0 {
		t.Fatalf("total wagered %v, want 55.0", summary.TotalWagered)
	}
	if summary.TotalWon != 50.0 {
		t.Fatalf("total won %v, want 50.0", summary.TotalWon)
	}
	if summary.NetResult != -5.0 {
		t.Fatalf("net result %v, want -5.0", summary.NetResult)
	}
	if summary.BiggestWin != 18.0 {
		t.Fatalf("biggest win %v, want 18.0", summary.BiggestWin)
	}
}

func TestSummaryHonorsFilters(t *testing.T) {
	s := NewMemoryStore()
	seedHistory(t, s)

	summary, _ := s.Summary(context.Background(), "user-1", models.HistoryFilters{Result: "win"})
	if summary.TotalRounds != 5 {
		t.Fatalf("filtered total rounds %d, want 5", summary.TotalRounds)
	}
	if summary.TotalWon != 50.0 {
		t.Fatalf("filtered total won %v, want 50.0", summary.TotalWon)
	}
}
