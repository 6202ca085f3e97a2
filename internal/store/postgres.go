package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"slots-backend/internal/engine"
	"slots-backend/internal/fair"
	"slots-backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	user_id       TEXT PRIMARY KEY,
	balance_cents BIGINT NOT NULL DEFAULT 0,
	version       BIGINT NOT NULL DEFAULT 1,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS seed_pairs (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	server_seed      TEXT NOT NULL,
	server_seed_hash TEXT NOT NULL,
	client_seed      TEXT NOT NULL DEFAULT '',
	nonce            BIGINT NOT NULL DEFAULT 0,
	active           BOOLEAN NOT NULL DEFAULT TRUE,
	revealed_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS seed_pairs_one_active
	ON seed_pairs (user_id) WHERE active;

CREATE TABLE IF NOT EXISTS game_rounds (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	session_id           TEXT NOT NULL,
	game_id              TEXT NOT NULL,
	seed_pair_id         TEXT,
	nonce                BIGINT,
	bet_cents            BIGINT NOT NULL,
	win_cents            BIGINT NOT NULL,
	currency             TEXT NOT NULL,
	lines                INT NOT NULL,
	balance_before_cents BIGINT NOT NULL,
	balance_after_cents  BIGINT NOT NULL,
	reel_matrix          JSONB NOT NULL,
	win_breakdown        JSONB NOT NULL,
	bonus_triggered      JSONB,
	outcome_hash         TEXT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS game_rounds_user_created
	ON game_rounds (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS transactions (
	id                  TEXT PRIMARY KEY,
	round_id            TEXT NOT NULL REFERENCES game_rounds (id),
	user_id             TEXT NOT NULL,
	type                TEXT NOT NULL,
	amount_cents        BIGINT NOT NULL,
	balance_after_cents BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transactions_round ON transactions (round_id, created_at);
`

// PostgresStore is the durable backend. Debit relies on a conditional
// UPDATE for optimistic locking; CreateRound wraps the round and its
// transactions in one SQL transaction so a failure rolls back together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %v", err)
	}
	db.SetMaxOpenConns(10)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %v", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const walletColumns = "user_id, balance_cents, version, created_at, updated_at"

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.UserID, &w.BalanceCents, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING `+walletColumns, userID)
	w, err := scanWallet(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %v", err)
	}
	return w, nil
}

func (s *PostgresStore) Debit(ctx context.Context, userID string, amountCents, expectedVersion int64) (*models.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance_cents = balance_cents - $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $1
		  AND version = $3
		  AND balance_cents >= $2
		RETURNING `+walletColumns, userID, amountCents, expectedVersion)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit wallet: %v", err)
	}
	return w, nil
}

func (s *PostgresStore) Credit(ctx context.Context, userID string, amountCents int64) (*models.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance_cents = balance_cents + $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+walletColumns, userID, amountCents)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %v", err)
	}
	return w, nil
}

const seedColumns = "id, user_id, server_seed, server_seed_hash, client_seed, nonce, active, revealed_at, created_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeedPair(row rowScanner) (*models.SeedPair, error) {
	var p models.SeedPair
	var revealedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.ServerSeed, &p.ServerSeedHash,
		&p.ClientSeed, &p.Nonce, &p.Active, &revealedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if revealedAt.Valid {
		t := revealedAt.Time
		p.RevealedAt = &t
	}
	return &p, nil
}

func (s *PostgresStore) createSeedPair(ctx context.Context, userID string) (*models.SeedPair, error) {
	serverSeed, err := fair.GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO seed_pairs (id, user_id, server_seed, server_seed_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+seedColumns,
		uuid.New().String(), userID, serverSeed, fair.HashServerSeed(serverSeed))
	return scanSeedPair(row)
}

func (s *PostgresStore) GetOrCreateActive(ctx context.Context, userID string) (*models.SeedPair, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+seedColumns+` FROM seed_pairs
		WHERE user_id = $1 AND active LIMIT 1`, userID)
	pair, err := scanSeedPair(row)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load seed pair: %v", err)
	}

	pair, err = s.createSeedPair(ctx, userID)
	if err == nil {
		return pair, nil
	}
	// Lost a creation race against a concurrent first spin; the unique
	// partial index guarantees the winner is the one active pair.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		row := s.db.QueryRowContext(ctx, `
			SELECT `+seedColumns+` FROM seed_pairs
			WHERE user_id = $1 AND active LIMIT 1`, userID)
		return scanSeedPair(row)
	}
	return nil, fmt.Errorf("failed to create seed pair: %v", err)
}

func (s *PostgresStore) IncrementNonce(ctx context.Context, seedPairID string) (int64, error) {
	var nonce int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE seed_pairs SET nonce = nonce + 1 WHERE id = $1 RETURNING nonce`,
		seedPairID).Scan(&nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment nonce: %v", err)
	}
	return nonce, nil
}

func (s *PostgresStore) SetClientSeed(ctx context.Context, userID, clientSeed string) (*models.SeedPair, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE seed_pairs SET client_seed = $2
		WHERE user_id = $1 AND active
		RETURNING `+seedColumns, userID, clientSeed)
	pair, err := scanSeedPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set client seed: %v", err)
	}
	return pair, nil
}

func (s *PostgresStore) Rotate(ctx context.Context, userID string) (*models.SeedPair, *models.SeedPair, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE seed_pairs
		SET active = FALSE, revealed_at = NOW()
		WHERE user_id = $1 AND active
		RETURNING `+seedColumns, userID)
	previous, err := scanSeedPair(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("failed to deactivate seed pair: %v", err)
	}

	current, err := s.createSeedPair(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create seed pair: %v", err)
	}
	return previous, current, nil
}

func (s *PostgresStore) GetSeedPair(ctx context.Context, seedPairID string) (*models.SeedPair, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+seedColumns+` FROM seed_pairs WHERE id = $1`, seedPairID)
	pair, err := scanSeedPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load seed pair: %v", err)
	}
	return pair, nil
}

const roundColumns = `id, user_id, session_id, game_id, seed_pair_id, nonce,
	bet_cents, win_cents, currency, lines, balance_before_cents, balance_after_cents,
	reel_matrix, win_breakdown, bonus_triggered, outcome_hash, created_at`

func scanRound(row rowScanner) (*models.GameRound, error) {
	var r models.GameRound
	var seedPairID sql.NullString
	var nonce sql.NullInt64
	var matrixJSON, breakdownJSON []byte
	var bonusJSON []byte
	var outcomeHash sql.NullString

	err := row.Scan(&r.ID, &r.UserID, &r.SessionID, &r.GameID, &seedPairID, &nonce,
		&r.BetCents, &r.WinCents, &r.Currency, &r.Lines,
		&r.BalanceBeforeCents, &r.BalanceAfterCents,
		&matrixJSON, &breakdownJSON, &bonusJSON, &outcomeHash, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.SeedPairID = seedPairID.String
	r.Nonce = nonce.Int64
	r.OutcomeHash = outcomeHash.String
	if err := json.Unmarshal(matrixJSON, &r.ReelMatrix); err != nil {
		return nil, fmt.Errorf("failed to decode reel matrix: %v", err)
	}
	if err := json.Unmarshal(breakdownJSON, &r.WinBreakdown); err != nil {
		return nil, fmt.Errorf("failed to decode win breakdown: %v", err)
	}
	if len(bonusJSON) > 0 {
		if err := json.Unmarshal(bonusJSON, &r.Bonus); err != nil {
			return nil, fmt.Errorf("failed to decode bonus: %v", err)
		}
	}
	return &r, nil
}

func (s *PostgresStore) CreateRound(ctx context.Context, params CreateRoundParams) (*models.GameRound, error) {
	matrixJSON, err := json.Marshal(params.ReelMatrix)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reel matrix: %v", err)
	}
	breakdown := params.WinBreakdown
	if breakdown == nil {
		breakdown = []engine.LineWin{}
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode win breakdown: %v", err)
	}
	var bonusJSON interface{}
	if params.Bonus != nil {
		data, err := json.Marshal(params.Bonus)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bonus: %v", err)
		}
		bonusJSON = data
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin round transaction: %v", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO game_rounds
			(id, user_id, session_id, game_id, seed_pair_id, nonce,
			 bet_cents, win_cents, currency, lines,
			 balance_before_cents, balance_after_cents,
			 reel_matrix, win_breakdown, bonus_triggered, outcome_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO NOTHING`,
		params.RoundID, params.UserID, params.SessionID, params.GameID,
		params.SeedPairID, params.Nonce, params.BetCents, params.WinCents,
		params.Currency, params.Lines, params.BalanceBeforeCents,
		params.BalanceAfterCents, matrixJSON, breakdownJSON, bonusJSON,
		params.OutcomeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert round: %v", err)
	}
	inserted, _ := res.RowsAffected()
	if inserted == 0 {
		// Round already persisted by a concurrent identical request.
		return s.GetRound(ctx, params.RoundID, params.UserID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, round_id, user_id, type, amount_cents, balance_after_cents)
		VALUES ($1, $2, $3, 'bet', $4, $5)`,
		uuid.New().String(), params.RoundID, params.UserID,
		params.BetCents, params.BalanceAfterBetCents)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bet transaction: %v", err)
	}

	if params.WinCents > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (id, round_id, user_id, type, amount_cents, balance_after_cents)
			VALUES ($1, $2, $3, 'win', $4, $5)`,
			uuid.New().String(), params.RoundID, params.UserID,
			params.WinCents, params.BalanceAfterCents)
		if err != nil {
			return nil, fmt.Errorf("failed to insert win transaction: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit round: %v", err)
	}
	return s.GetRound(ctx, params.RoundID, params.UserID)
}

func buildRoundFilters(userID string, f models.HistoryFilters) (string, []interface{}) {
	where := "user_id = $1"
	args := []interface{}{userID}
	idx := 2

	if f.DateFrom != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *f.DateTo)
		idx++
	}
	switch f.Result {
	case "win":
		where += " AND win_cents > bet_cents"
	case "loss":
		where += " AND win_cents <= bet_cents"
	}
	if f.MinBet != nil {
		where += fmt.Sprintf(" AND bet_cents >= $%d", idx)
		args = append(args, *f.MinBet)
		idx++
	}
	if f.MaxBet != nil {
		where += fmt.Sprintf(" AND bet_cents <= $%d", idx)
		args = append(args, *f.MaxBet)
		idx++
	}
	return where, args
}

func (s *PostgresStore) ListRounds(ctx context.Context, userID string, filters models.HistoryFilters) ([]*models.GameRound, int64, error) {
	where, args := buildRoundFilters(userID, filters)

	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM game_rounds WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rounds: %v", err)
	}

	limit, offset := filters.Page()
	query := fmt.Sprintf(
		"SELECT %s FROM game_rounds WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		roundColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rounds: %v", err)
	}
	defer rows.Close()

	items := []*models.GameRound{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan round: %v", err)
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) Summary(ctx context.Context, userID string, filters models.HistoryFilters) (*models.HistorySummary, error) {
	where, args := buildRoundFilters(userID, filters)

	var rounds, wagered, won, biggest int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(bet_cents), 0),
		       COALESCE(SUM(win_cents), 0),
		       COALESCE(MAX(win_cents), 0)
		FROM game_rounds WHERE `+where, args...).
		Scan(&rounds, &wagered, &won, &biggest)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %v", err)
	}

	return &models.HistorySummary{
		TotalRounds:  rounds,
		TotalWagered: models.CentsToAmount(wagered),
		TotalWon:     models.CentsToAmount(won),
		NetResult:    models.CentsToAmount(won - wagered),
		BiggestWin:   models.CentsToAmount(biggest),
	}, nil
}

func (s *PostgresStore) GetRound(ctx context.Context, roundID, userID string) (*models.GameRound, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+roundColumns+` FROM game_rounds WHERE id = $1 AND user_id = $2`,
		roundID, userID)
	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %v", err)
	}
	return r, nil
}

func (s *PostgresStore) GetRoundTransactions(ctx context.Context, roundID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, round_id, user_id, type, amount_cents, balance_after_cents, created_at
		FROM transactions WHERE round_id = $1 ORDER BY created_at ASC`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %v", err)
	}
	defer rows.Close()

	txs := []*models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.RoundID, &tx.UserID, &tx.Type,
			&tx.AmountCents, &tx.BalanceAfterCents, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %v", err)
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}
