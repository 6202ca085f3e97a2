package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"slots-backend/internal/fair"
	"slots-backend/internal/models"
)

// MemoryStore is the process-local backend used when no DATABASE_URL is
// configured, and the backend the orchestrator tests run against. All
// mutations happen under one lock, which gives the same atomicity the
// SQL backend gets from conditional updates and transactions.
type MemoryStore struct {
	mu           sync.Mutex
	wallets      map[string]*models.Wallet
	seeds        map[string]*models.SeedPair
	activeSeed   map[string]string
	rounds       map[string]*models.GameRound
	roundOrder   []string
	transactions map[string][]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:      make(map[string]*models.Wallet),
		seeds:        make(map[string]*models.SeedPair),
		activeSeed:   make(map[string]string),
		rounds:       make(map[string]*models.GameRound),
		transactions: make(map[string][]*models.Transaction),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		now := time.Now().UTC()
		w = &models.Wallet{
			UserID:    userID,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) Debit(ctx context.Context, userID string, amountCents, expectedVersion int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if w.Version != expectedVersion || w.BalanceCents < amountCents {
		return nil, ErrWalletConflict
	}
	w.BalanceCents -= amountCents
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) Credit(ctx context.Context, userID string, amountCents int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	w.BalanceCents += amountCents
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) GetOrCreateActive(ctx context.Context, userID string) (*models.SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateActiveLocked(userID)
}

func (s *MemoryStore) getOrCreateActiveLocked(userID string) (*models.SeedPair, error) {
	if id, ok := s.activeSeed[userID]; ok {
		cp := *s.seeds[id]
		return &cp, nil
	}
	pair, err := newSeedPair(userID)
	if err != nil {
		return nil, err
	}
	s.seeds[pair.ID] = pair
	s.activeSeed[userID] = pair.ID
	cp := *pair
	return &cp, nil
}

func newSeedPair(userID string) (*models.SeedPair, error) {
	serverSeed, err := fair.GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	return &models.SeedPair{
		ID:             uuid.New().String(),
		UserID:         userID,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.HashServerSeed(serverSeed),
		ClientSeed:     "",
		Nonce:          0,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (s *MemoryStore) IncrementNonce(ctx context.Context, seedPairID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.seeds[seedPairID]
	if !ok {
		return 0, ErrNotFound
	}
	pair.Nonce++
	return pair.Nonce, nil
}

func (s *MemoryStore) SetClientSeed(ctx context.Context, userID, clientSeed string) (*models.SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.activeSeed[userID]
	if !ok {
		return nil, ErrNotFound
	}
	pair := s.seeds[id]
	pair.ClientSeed = clientSeed
	cp := *pair
	return &cp, nil
}

func (s *MemoryStore) Rotate(ctx context.Context, userID string) (*models.SeedPair, *models.SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous *models.SeedPair
	if id, ok := s.activeSeed[userID]; ok {
		pair := s.seeds[id]
		now := time.Now().UTC()
		pair.Active = false
		pair.RevealedAt = &now
		cp := *pair
		previous = &cp
		delete(s.activeSeed, userID)
	}

	current, err := s.getOrCreateActiveLocked(userID)
	if err != nil {
		return nil, nil, err
	}
	return previous, current, nil
}

func (s *MemoryStore) GetSeedPair(ctx context.Context, seedPairID string) (*models.SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.seeds[seedPairID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *pair
	return &cp, nil
}

func (s *MemoryStore) CreateRound(ctx context.Context, params CreateRoundParams) (*models.GameRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rounds[params.RoundID]; ok {
		cp := *existing
		return &cp, nil
	}

	now := time.Now().UTC()
	round := &models.GameRound{
		ID:                 params.RoundID,
		UserID:             params.UserID,
		SessionID:          params.SessionID,
		GameID:             params.GameID,
		SeedPairID:         params.SeedPairID,
		Nonce:              params.Nonce,
		BetCents:           params.BetCents,
		WinCents:           params.WinCents,
		Currency:           params.Currency,
		Lines:              params.Lines,
		BalanceBeforeCents: params.BalanceBeforeCents,
		BalanceAfterCents:  params.BalanceAfterCents,
		ReelMatrix:         params.ReelMatrix,
		WinBreakdown:       params.WinBreakdown,
		Bonus:              params.Bonus,
		OutcomeHash:        params.OutcomeHash,
		CreatedAt:          now,
	}
	s.rounds[round.ID] = round
	s.roundOrder = append(s.roundOrder, round.ID)

	txs := []*models.Transaction{{
		ID:                uuid.New().String(),
		RoundID:           round.ID,
		UserID:            params.UserID,
		Type:              models.TransactionTypeBet,
		AmountCents:       params.BetCents,
		BalanceAfterCents: params.BalanceAfterBetCents,
		CreatedAt:         now,
	}}
	if params.WinCents > 0 {
		txs = append(txs, &models.Transaction{
			ID:                uuid.New().String(),
			RoundID:           round.ID,
			UserID:            params.UserID,
			Type:              models.TransactionTypeWin,
			AmountCents:       params.WinCents,
			BalanceAfterCents: params.BalanceAfterCents,
			CreatedAt:         now,
		})
	}
	s.transactions[round.ID] = txs

	cp := *round
	return &cp, nil
}

func matchesFilters(r *models.GameRound, f models.HistoryFilters) bool {
	if f.DateFrom != nil && r.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.CreatedAt.After(*f.DateTo) {
		return false
	}
	switch f.Result {
	case "win":
		if r.WinCents <= r.BetCents {
			return false
		}
	case "loss":
		if r.WinCents > r.BetCents {
			return false
		}
	}
	if f.MinBet != nil && r.BetCents < *f.MinBet {
		return false
	}
	if f.MaxBet != nil && r.BetCents > *f.MaxBet {
		return false
	}
	return true
}

func (s *MemoryStore) ListRounds(ctx context.Context, userID string, filters models.HistoryFilters) ([]*models.GameRound, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.GameRound
	for i := len(s.roundOrder) - 1; i >= 0; i-- {
		r := s.rounds[s.roundOrder[i]]
		if r.UserID != userID || !matchesFilters(r, filters) {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}

	total := int64(len(matched))
	limit, offset := filters.Page()
	if offset >= len(matched) {
		return []*models.GameRound{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) Summary(ctx context.Context, userID string, filters models.HistoryFilters) (*models.HistorySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rounds, wagered, won, biggest int64
	for _, id := range s.roundOrder {
		r := s.rounds[id]
		if r.UserID != userID || !matchesFilters(r, filters) {
			continue
		}
		rounds++
		wagered += r.BetCents
		won += r.WinCents
		if r.WinCents > biggest {
			biggest = r.WinCents
		}
	}
	return &models.HistorySummary{
		TotalRounds:  rounds,
		TotalWagered: models.CentsToAmount(wagered),
		TotalWon:     models.CentsToAmount(won),
		NetResult:    models.CentsToAmount(won - wagered),
		BiggestWin:   models.CentsToAmount(biggest),
	}, nil
}

func (s *MemoryStore) GetRound(ctx context.Context, roundID, userID string) (*models.GameRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[roundID]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) GetRoundTransactions(ctx context.Context, roundID string) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.transactions[roundID]
	out := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		cp := *tx
		out = append(out, &cp)
	}
	return out, nil
}
