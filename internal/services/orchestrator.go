package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"slots-backend/internal/engine"
	"slots-backend/internal/fair"
	"slots-backend/internal/models"
	"slots-backend/internal/store"
)

// SpinOrchestrator coordinates one spin end to end: session checks,
// idempotency, rate limiting, seed derivation, the wallet debit/credit
// pair and round persistence. It owns the ordering; the stores own the
// state.
type SpinOrchestrator struct {
	store       store.Store
	sessions    SessionStore
	idempotency IdempotencyStore
	limiter     RateLimiter
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
}

func NewSpinOrchestrator(st store.Store, sessions SessionStore, idempotency IdempotencyStore, limiter RateLimiter, logger *zap.Logger) *SpinOrchestrator {
	return &SpinOrchestrator{
		store:       st,
		sessions:    sessions,
		idempotency: idempotency,
		limiter:     limiter,
		logger:      logger,
		now:         time.Now,
	}
}

// SetBroadcaster attaches the realtime push channel. A nil broadcaster
// is valid; results are then only returned on the HTTP response.
func (o *SpinOrchestrator) SetBroadcaster(b Broadcaster) {
	o.broadcaster = b
}

// GameInit opens a session and returns the static game config, the
// wallet balance and a display-only idle matrix.
func (o *SpinOrchestrator) GameInit(ctx context.Context, userID, gameID string) (*models.InitResult, error) {
	if gameID == "" {
		gameID = engine.GameID
	}
	if gameID != engine.GameID {
		return nil, models.ErrInvalidGameID
	}

	session, err := o.sessions.Create(ctx, userID, gameID)
	if err != nil {
		o.logger.Error("failed to create session", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}

	wallet, err := o.store.GetOrCreate(ctx, userID)
	if err != nil {
		o.logger.Error("failed to load wallet", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}

	idleSeed, err := engine.RandomSeed()
	if err != nil {
		return nil, models.ErrInternal
	}

	return &models.InitResult{
		SessionID:  session.ID,
		GameID:     gameID,
		Config:     engine.ConfigPayload(),
		Balance:    models.Money{Amount: models.CentsToAmount(wallet.BalanceCents), Currency: engine.Currency},
		IdleMatrix: engine.IdleMatrix(idleSeed),
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// ExecuteSpin runs the full spin pipeline. All validation happens
// before any state changes; once the debit lands the spin always
// completes with a persisted round.
func (o *SpinOrchestrator) ExecuteSpin(ctx context.Context, userID string, req *models.SpinRequest, idempotencyKey string) (*models.SpinResult, error) {
	session, err := o.sessions.Get(ctx, req.SessionID)
	if err != nil {
		o.logger.Error("failed to resolve session", zap.Error(err), zap.String("session_id", req.SessionID))
		return nil, models.ErrInternal
	}
	if session == nil {
		return nil, models.ErrSessionExpired
	}
	if session.UserID != userID {
		return nil, models.ErrForbidden
	}

	gameID := req.GameID
	if gameID == "" {
		gameID = session.GameID
	}
	if gameID != session.GameID || gameID != engine.GameID {
		return nil, models.ErrInvalidGameID
	}

	betCents := models.AmountToCents(req.Bet.Amount)
	if betCents < engine.MinBetCents || betCents > engine.MaxBetCents {
		return nil, models.ErrInvalidBet
	}
	if req.Bet.Currency != engine.Currency {
		return nil, models.ErrInvalidCurrency
	}
	lines := req.Bet.Lines
	if lines < 1 || lines > engine.Paylines {
		return nil, models.ErrInvalidLines
	}

	fingerprint := SpinFingerprint(req.SessionID, gameID, betCents, req.Bet.Currency, lines)
	claimed := false
	if idempotencyKey != "" {
		cached, err := o.idempotency.Check(ctx, userID, idempotencyKey, fingerprint)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			o.logger.Info("idempotent spin replay",
				zap.String("user_id", userID),
				zap.String("spin_id", cached.SpinID),
			)
			return cached, nil
		}
		// The key is now reserved; duplicates wait on it. Any failure
		// below must hand it back so a retry can run the pipeline.
		claimed = true
		defer func() {
			if !claimed {
				return
			}
			if err := o.idempotency.Release(context.WithoutCancel(ctx), userID, idempotencyKey); err != nil {
				o.logger.Warn("failed to release idempotency claim",
					zap.Error(err),
					zap.String("user_id", userID),
				)
			}
		}()
	}

	wallet, err := o.store.GetOrCreate(ctx, userID)
	if err != nil {
		o.logger.Error("failed to load wallet", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	if wallet.BalanceCents < betCents {
		return nil, models.ErrInsufficientBalance
	}

	allowed, retryAfter, err := o.limiter.Allow(ctx, userID)
	if err != nil {
		o.logger.Error("rate limiter failed", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	if !allowed {
		return nil, models.ErrRateLimited(retryAfter)
	}

	pair, err := o.store.GetOrCreateActive(ctx, userID)
	if err != nil {
		o.logger.Error("failed to load seed pair", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	nonce, err := o.store.IncrementNonce(ctx, pair.ID)
	if err != nil {
		o.logger.Error("failed to increment nonce", zap.Error(err), zap.String("seed_pair_id", pair.ID))
		return nil, models.ErrInternal
	}
	seed := fair.DeriveSpinSeed(pair.ServerSeed, pair.ClientSeed, nonce)

	debited, err := o.store.Debit(ctx, userID, betCents, wallet.Version)
	if err != nil {
		if errors.Is(err, store.ErrWalletConflict) {
			// Lost the optimistic-lock race; a concurrent spin took the
			// funds first.
			return nil, models.ErrInsufficientBalance
		}
		o.logger.Error("failed to debit wallet", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	balanceAfterBet := debited.BalanceCents

	outcome := engine.Spin(betCents, req.Bet.Currency, lines, seed)

	final := debited
	if outcome.WinCents > 0 {
		final, err = o.store.Credit(ctx, userID, outcome.WinCents)
		if err != nil {
			o.logger.Error("failed to credit win", zap.Error(err),
				zap.String("user_id", userID),
				zap.Int64("win_cents", outcome.WinCents),
			)
			return nil, models.ErrInternal
		}
	}

	roundID := models.GenerateRoundID()
	result := buildSpinResult(roundID, session.ID, gameID, betCents, lines, final.BalanceCents, outcome, o.now().UnixMilli())

	outcomeHash, err := fair.HashOutcome(result.Outcome)
	if err != nil {
		o.logger.Error("failed to hash outcome", zap.Error(err), zap.String("round_id", roundID))
		return nil, models.ErrInternal
	}

	round, err := o.store.CreateRound(ctx, store.CreateRoundParams{
		RoundID:              roundID,
		UserID:               userID,
		SessionID:            session.ID,
		GameID:               gameID,
		SeedPairID:           pair.ID,
		Nonce:                nonce,
		BetCents:             betCents,
		WinCents:             outcome.WinCents,
		Currency:             req.Bet.Currency,
		Lines:                lines,
		BalanceBeforeCents:   wallet.BalanceCents,
		BalanceAfterBetCents: balanceAfterBet,
		BalanceAfterCents:    final.BalanceCents,
		ReelMatrix:           outcome.ReelMatrix,
		WinBreakdown:         outcome.Breakdown,
		Bonus:                outcome.Bonus,
		OutcomeHash:          outcomeHash,
	})
	if err != nil {
		o.logger.Error("failed to persist round", zap.Error(err), zap.String("round_id", roundID))
		return nil, models.ErrInternal
	}

	if idempotencyKey != "" {
		if err := o.idempotency.Store(ctx, userID, idempotencyKey, fingerprint, result); err != nil {
			// The round is already durable; the deferred release lets a
			// replay re-spin rather than wait forever.
			o.logger.Warn("failed to cache idempotency result", zap.Error(err), zap.String("round_id", roundID))
		} else {
			claimed = false
		}
	}

	o.logger.Info("spin completed",
		zap.String("user_id", userID),
		zap.String("round_id", round.ID),
		zap.Int64("nonce", nonce),
		zap.Int64("bet_cents", betCents),
		zap.Int64("win_cents", outcome.WinCents),
		zap.Int64("balance_cents", final.BalanceCents),
	)

	if o.broadcaster != nil {
		o.broadcaster.BroadcastRoundResult(userID, result)
		o.broadcaster.BroadcastBalance(userID, final.BalanceCents)
	}
	return result, nil
}

// History returns the filtered round listing with its aggregate
// summary over the same filter set.
func (o *SpinOrchestrator) History(ctx context.Context, userID string, filters models.HistoryFilters) (*models.HistoryResult, error) {
	rounds, total, err := o.store.ListRounds(ctx, userID, filters)
	if err != nil {
		o.logger.Error("failed to list rounds", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	summary, err := o.store.Summary(ctx, userID, filters)
	if err != nil {
		o.logger.Error("failed to summarize rounds", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}

	items := make([]models.HistoryItem, 0, len(rounds))
	for _, r := range rounds {
		result := "loss"
		if r.WinCents > r.BetCents {
			result = "win"
		}
		items = append(items, models.HistoryItem{
			RoundID:      r.ID,
			GameID:       r.GameID,
			Bet:          models.CentsToAmount(r.BetCents),
			Win:          models.CentsToAmount(r.WinCents),
			Currency:     r.Currency,
			Lines:        r.Lines,
			Result:       result,
			BalanceAfter: models.CentsToAmount(r.BalanceAfterCents),
			Bonus:        r.Bonus != nil,
			Nonce:        r.Nonce,
			CreatedAt:    r.CreatedAt,
		})
	}

	limit, offset := filters.Page()
	return &models.HistoryResult{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Summary: *summary,
	}, nil
}

// RoundDetail returns one round with its transactions and the
// provably-fair state of the seed pair that produced it.
func (o *SpinOrchestrator) RoundDetail(ctx context.Context, userID, roundID string) (*models.RoundDetail, error) {
	round, err := o.store.GetRound(ctx, roundID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrRoundNotFound
		}
		o.logger.Error("failed to load round", zap.Error(err), zap.String("round_id", roundID))
		return nil, models.ErrInternal
	}

	txs, err := o.store.GetRoundTransactions(ctx, roundID)
	if err != nil {
		o.logger.Error("failed to load round transactions", zap.Error(err), zap.String("round_id", roundID))
		return nil, models.ErrInternal
	}
	txInfos := make([]models.TransactionInfo, 0, len(txs))
	for _, tx := range txs {
		txInfos = append(txInfos, models.TransactionInfo{
			ID:           tx.ID,
			Type:         string(tx.Type),
			Amount:       models.CentsToAmount(tx.AmountCents),
			BalanceAfter: models.CentsToAmount(tx.BalanceAfterCents),
			CreatedAt:    tx.CreatedAt,
		})
	}

	detail := &models.RoundDetail{Round: round, Transactions: txInfos}
	if pair, err := o.store.GetSeedPair(ctx, round.SeedPairID); err == nil {
		info := models.SeedPairView(pair)
		detail.ProvablyFair = &info
	}
	return detail, nil
}

// RotateSeeds retires the active seed pair, revealing its server seed,
// and activates a fresh commitment.
func (o *SpinOrchestrator) RotateSeeds(ctx context.Context, userID string) (*models.RotateResult, error) {
	previous, current, err := o.store.Rotate(ctx, userID)
	if err != nil {
		o.logger.Error("failed to rotate seed pair", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}

	result := &models.RotateResult{Current: models.SeedPairView(current)}
	if previous != nil {
		info := models.SeedPairView(previous)
		result.Previous = &info
	}
	o.logger.Info("seed pair rotated",
		zap.String("user_id", userID),
		zap.String("seed_pair_id", current.ID),
	)
	return result, nil
}

// SetClientSeed replaces the client seed on the active pair. An empty
// seed is replaced with fresh entropy.
func (o *SpinOrchestrator) SetClientSeed(ctx context.Context, userID, clientSeed string) (*models.SeedPairInfo, error) {
	if clientSeed == "" {
		generated, err := models.GenerateClientSeed()
		if err != nil {
			return nil, models.ErrInternal
		}
		clientSeed = generated
	}
	if len(clientSeed) > 128 {
		return nil, &models.GameError{Code: "invalid_client_seed", Message: "Client seed too long", Status: 422}
	}

	if _, err := o.store.GetOrCreateActive(ctx, userID); err != nil {
		o.logger.Error("failed to load seed pair", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	pair, err := o.store.SetClientSeed(ctx, userID, clientSeed)
	if err != nil {
		o.logger.Error("failed to set client seed", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	info := models.SeedPairView(pair)
	return &info, nil
}

// FairState returns the active pair's public commitment without
// mutating anything.
func (o *SpinOrchestrator) FairState(ctx context.Context, userID string) (*models.SeedPairInfo, error) {
	pair, err := o.store.GetOrCreateActive(ctx, userID)
	if err != nil {
		o.logger.Error("failed to load seed pair", zap.Error(err), zap.String("user_id", userID))
		return nil, models.ErrInternal
	}
	info := models.SeedPairView(pair)
	return &info, nil
}

func buildSpinResult(roundID, sessionID, gameID string, betCents int64, lines int, balanceCents int64, outcome engine.Outcome, timestamp int64) *models.SpinResult {
	breakdown := make([]models.LineWinInfo, 0, len(outcome.Breakdown))
	for _, lw := range outcome.Breakdown {
		payout, _ := lw.Payout.Float64()
		breakdown = append(breakdown, models.LineWinInfo{
			Type:      lw.Type,
			LineIndex: lw.LineIndex,
			Symbol:    lw.Symbol,
			Count:     lw.Count,
			Payout:    payout,
		})
	}

	var bonus *models.BonusInfo
	nextState := "base_game"
	if outcome.Bonus != nil {
		bonus = &models.BonusInfo{
			Type:           outcome.Bonus.Type,
			FreeSpinsCount: outcome.Bonus.FreeSpinsCount,
			BonusRoundID:   outcome.Bonus.BonusRoundID,
			Multiplier:     outcome.Bonus.Multiplier,
		}
		nextState = "free_spins"
	}

	return &models.SpinResult{
		SpinID:    roundID,
		SessionID: sessionID,
		GameID:    gameID,
		Balance:   models.Money{Amount: models.CentsToAmount(balanceCents), Currency: outcome.Currency},
		Bet:       models.BetInfo{Amount: models.CentsToAmount(betCents), Currency: outcome.Currency, Lines: lines},
		Outcome: models.OutcomeInfo{
			ReelMatrix: outcome.ReelMatrix,
			Win: models.WinInfo{
				Amount:    models.CentsToAmount(outcome.WinCents),
				Currency:  outcome.Currency,
				Breakdown: breakdown,
			},
			BonusTriggered: bonus,
		},
		NextState: nextState,
		Timestamp: timestamp,
	}
}
