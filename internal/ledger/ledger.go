package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateTransaction indicates a record with the same (hash, user)
	// already exists. Callers treat it as an idempotent no-op.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidAmount rejects zero or negative credits.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidRecord rejects records missing identifying fields.
	ErrInvalidRecord = errors.New("invalid transaction record")
)

// DefaultTransactionLimit bounds Transactions when no limit is given.
const DefaultTransactionLimit = 50

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	// Credit atomically creates or increments the aggregate for key.
	Credit(ctx context.Context, key BalanceKey, amount decimal.Decimal, contract string) (BalanceAggregate, error)
	// Record inserts rec and credits its balance in one transaction. A record
	// that already exists yields ErrDuplicateTransaction and leaves balances untouched.
	Record(ctx context.Context, rec TransactionRecord) (BalanceAggregate, error)
	HasTransaction(ctx context.Context, hash, userID string) (bool, error)
	// NextBlock returns max(block)+1 over the user's records on network, or 0.
	NextBlock(ctx context.Context, userID, network string) (uint64, error)
	Balance(ctx context.Context, key BalanceKey) (BalanceAggregate, error)
	Balances(ctx context.Context, userID string) ([]BalanceAggregate, error)
	Transactions(ctx context.Context, userID string, limit int) ([]TransactionRecord, error)
}

func validateRecord(rec TransactionRecord) error {
	if rec.Hash == "" || rec.UserID == "" || rec.TokenSymbol == "" || rec.Network == "" {
		return ErrInvalidRecord
	}
	if !rec.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultTransactionLimit
	}
	return limit
}
