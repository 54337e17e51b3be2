package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const creditQuery = `
    INSERT INTO balance_aggregates (user_id, token_symbol, network, balance, token_contract_address, last_updated_at)
    VALUES ($1, $2, $3, $4::numeric, NULLIF($5, ''), $6)
    ON CONFLICT ON CONSTRAINT balance_aggregates_key DO UPDATE
    SET balance = balance_aggregates.balance + EXCLUDED.balance,
        token_contract_address = COALESCE(balance_aggregates.token_contract_address, EXCLUDED.token_contract_address),
        last_updated_at = EXCLUDED.last_updated_at
    RETURNING balance::text, COALESCE(token_contract_address, ''), last_updated_at`

const insertRecordQuery = `
    INSERT INTO transaction_records (
        id, transaction_hash, user_id, wallet_address, direction, kind, amount,
        token_symbol, token_contract_address, network, block_number, occurred_at, source, recorded_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, NULLIF($9, ''), $10, $11, $12, $13, $14)
    ON CONFLICT ON CONSTRAINT transaction_records_hash_user_key DO NOTHING`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger persists transaction records and balance aggregates in PostgreSQL.
type PostgresLedger struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Credit increments the aggregate for key in a single upsert statement, so
// concurrent credits for the same key never lose an update.
func (l *PostgresLedger) Credit(ctx context.Context, key BalanceKey, amount decimal.Decimal, contract string) (BalanceAggregate, error) {
	if !amount.IsPositive() {
		return BalanceAggregate{}, ErrInvalidAmount
	}
	return credit(ctx, l.db, key, amount, contract, l.now())
}

// Record inserts the record and credits the balance inside one transaction.
func (l *PostgresLedger) Record(ctx context.Context, rec TransactionRecord) (BalanceAggregate, error) {
	if err := validateRecord(rec); err != nil {
		return BalanceAggregate{}, err
	}
	now := l.now()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = now
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return BalanceAggregate{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, insertRecordQuery,
		uuid.New(), rec.Hash, rec.UserID, rec.WalletAddress, string(rec.Direction), string(rec.Kind),
		rec.Amount.String(), rec.TokenSymbol, rec.TokenContractAddress, rec.Network,
		int64(rec.BlockNumber), rec.OccurredAt, rec.Source, rec.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return BalanceAggregate{}, ErrDuplicateTransaction
		}
		return BalanceAggregate{}, fmt.Errorf("insert transaction record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return BalanceAggregate{}, ErrDuplicateTransaction
	}

	agg, err := credit(ctx, tx, rec.Key(), rec.Amount, rec.TokenContractAddress, now)
	if err != nil {
		return BalanceAggregate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return BalanceAggregate{}, ErrDuplicateTransaction
		}
		return BalanceAggregate{}, err
	}
	return agg, nil
}

// HasTransaction reports whether a record exists for (hash, user).
func (l *PostgresLedger) HasTransaction(ctx context.Context, hash, userID string) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transaction_records WHERE transaction_hash = $1 AND user_id = $2)`,
		hash, userID).Scan(&exists)
	return exists, err
}

// NextBlock returns the block the next poll should start from.
func (l *PostgresLedger) NextBlock(ctx context.Context, userID, network string) (uint64, error) {
	var maxBlock *int64
	err := l.db.QueryRow(ctx,
		`SELECT MAX(block_number) FROM transaction_records WHERE user_id = $1 AND network = $2`,
		userID, network).Scan(&maxBlock)
	if err != nil {
		return 0, err
	}
	if maxBlock == nil {
		return 0, nil
	}
	return uint64(*maxBlock) + 1, nil
}

// Balance returns the aggregate for key, or a zero balance when none exists.
func (l *PostgresLedger) Balance(ctx context.Context, key BalanceKey) (BalanceAggregate, error) {
	const query = `
        SELECT balance::text, COALESCE(token_contract_address, ''), last_updated_at
        FROM balance_aggregates
        WHERE user_id = $1 AND token_symbol = $2 AND network = $3`
	agg, err := scanAggregate(l.db.QueryRow(ctx, query, key.UserID, key.TokenSymbol, key.Network), key)
	if errors.Is(err, pgx.ErrNoRows) {
		return BalanceAggregate{BalanceKey: key, Balance: decimal.Zero}, nil
	}
	return agg, err
}

// Balances lists every aggregate held by userID.
func (l *PostgresLedger) Balances(ctx context.Context, userID string) ([]BalanceAggregate, error) {
	rows, err := l.db.Query(ctx, `
        SELECT token_symbol, network, balance::text, COALESCE(token_contract_address, ''), last_updated_at
        FROM balance_aggregates
        WHERE user_id = $1
        ORDER BY network, token_symbol`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceAggregate
	for rows.Next() {
		agg := BalanceAggregate{BalanceKey: BalanceKey{UserID: userID}}
		var balance string
		if err := rows.Scan(&agg.TokenSymbol, &agg.Network, &balance, &agg.TokenContractAddress, &agg.LastUpdatedAt); err != nil {
			return nil, err
		}
		if agg.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// Transactions lists the user's most recent records, newest block first.
func (l *PostgresLedger) Transactions(ctx context.Context, userID string, limit int) ([]TransactionRecord, error) {
	rows, err := l.db.Query(ctx, `
        SELECT transaction_hash, wallet_address, direction, kind, amount::text, token_symbol,
               COALESCE(token_contract_address, ''), network, block_number, occurred_at, source, recorded_at
        FROM transaction_records
        WHERE user_id = $1
        ORDER BY block_number DESC, recorded_at DESC
        LIMIT $2`, userID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec := TransactionRecord{UserID: userID}
		var direction, kind, amount string
		var block int64
		if err := rows.Scan(&rec.Hash, &rec.WalletAddress, &direction, &kind, &amount, &rec.TokenSymbol,
			&rec.TokenContractAddress, &rec.Network, &block, &rec.OccurredAt, &rec.Source, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.Direction = Direction(direction)
		rec.Kind = Kind(kind)
		rec.BlockNumber = uint64(block)
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func credit(ctx context.Context, q querier, key BalanceKey, amount decimal.Decimal, contract string, now time.Time) (BalanceAggregate, error) {
	row := q.QueryRow(ctx, creditQuery, key.UserID, key.TokenSymbol, key.Network, amount.String(), contract, now)
	agg, err := scanAggregate(row, key)
	if err != nil {
		return BalanceAggregate{}, fmt.Errorf("credit balance: %w", err)
	}
	return agg, nil
}

func scanAggregate(row pgx.Row, key BalanceKey) (BalanceAggregate, error) {
	agg := BalanceAggregate{BalanceKey: key}
	var balance string
	if err := row.Scan(&balance, &agg.TokenContractAddress, &agg.LastUpdatedAt); err != nil {
		return BalanceAggregate{}, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return BalanceAggregate{}, fmt.Errorf("parse balance: %w", err)
	}
	agg.Balance = parsed
	return agg, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
