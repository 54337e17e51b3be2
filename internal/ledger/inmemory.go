package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type recordKey struct {
	hash   string
	userID string
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	records  map[recordKey]TransactionRecord
	balances map[BalanceKey]BalanceAggregate
	now      func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and development runs without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		records:  make(map[recordKey]TransactionRecord),
		balances: make(map[BalanceKey]BalanceAggregate),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *inMemoryLedger) Credit(_ context.Context, key BalanceKey, amount decimal.Decimal, contract string) (BalanceAggregate, error) {
	if !amount.IsPositive() {
		return BalanceAggregate{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creditLocked(key, amount, contract), nil
}

func (l *inMemoryLedger) Record(_ context.Context, rec TransactionRecord) (BalanceAggregate, error) {
	if err := validateRecord(rec); err != nil {
		return BalanceAggregate{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	k := recordKey{hash: rec.Hash, userID: rec.UserID}
	if _, exists := l.records[k]; exists {
		return BalanceAggregate{}, ErrDuplicateTransaction
	}
	now := l.now()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = now
	}
	l.records[k] = rec
	return l.creditLocked(rec.Key(), rec.Amount, rec.TokenContractAddress), nil
}

func (l *inMemoryLedger) creditLocked(key BalanceKey, amount decimal.Decimal, contract string) BalanceAggregate {
	agg, ok := l.balances[key]
	if !ok {
		agg = BalanceAggregate{BalanceKey: key, Balance: decimal.Zero}
	}
	agg.Balance = agg.Balance.Add(amount)
	if agg.TokenContractAddress == "" {
		agg.TokenContractAddress = contract
	}
	agg.LastUpdatedAt = l.now()
	l.balances[key] = agg
	return agg
}

func (l *inMemoryLedger) HasTransaction(_ context.Context, hash, userID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.records[recordKey{hash: hash, userID: userID}]
	return exists, nil
}

func (l *inMemoryLedger) NextBlock(_ context.Context, userID, network string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var next uint64
	for k, rec := range l.records {
		if k.userID != userID || rec.Network != network {
			continue
		}
		if rec.BlockNumber+1 > next {
			next = rec.BlockNumber + 1
		}
	}
	return next, nil
}

func (l *inMemoryLedger) Balance(_ context.Context, key BalanceKey) (BalanceAggregate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if agg, ok := l.balances[key]; ok {
		return agg, nil
	}
	return BalanceAggregate{BalanceKey: key, Balance: decimal.Zero}, nil
}

func (l *inMemoryLedger) Balances(_ context.Context, userID string) ([]BalanceAggregate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []BalanceAggregate
	for key, agg := range l.balances {
		if key.UserID == userID {
			out = append(out, agg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].TokenSymbol < out[j].TokenSymbol
	})
	return out, nil
}

func (l *inMemoryLedger) Transactions(_ context.Context, userID string, limit int) ([]TransactionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []TransactionRecord
	for k, rec := range l.records {
		if k.userID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber > out[j].BlockNumber
		}
		return strings.Compare(out[i].Hash, out[j].Hash) < 0
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
