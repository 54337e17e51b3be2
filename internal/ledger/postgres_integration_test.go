//go:build integration

package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/congo-pay/walletsync/internal/infra"
	"github.com/congo-pay/walletsync/internal/logging"
	"github.com/congo-pay/walletsync/migrations"
)

// newPostgresLedger starts a throwaway PostgreSQL container, applies the
// embedded migrations and returns a ledger over it.
func newPostgresLedger(t *testing.T) *PostgresLedger {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("walletsync_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("terminate postgres: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := infra.NewPostgresPool(ctx, url)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := infra.Migrate(ctx, pool, migrations.FS, logging.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPostgresLedger(pool)
}

func seedPostgres(t *testing.T, pool *pgxpool.Pool, key BalanceKey, amount decimal.Decimal) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO balance_aggregates (user_id, token_symbol, network, balance) VALUES ($1, $2, $3, $4::numeric)`,
		key.UserID, key.TokenSymbol, key.Network, amount.String()); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func TestPostgresLedger_ConcurrentCredits(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	key := BalanceKey{UserID: "user-1", TokenSymbol: "ETH", Network: "ethereum"}
	seedPostgres(t, l.db, key, decimal.NewFromInt(100))

	var wg sync.WaitGroup
	for _, amount := range []int64{10, 15} {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			if _, err := l.Credit(ctx, key, decimal.NewFromInt(amount), ""); err != nil {
				t.Errorf("credit %d failed: %v", amount, err)
			}
		}(amount)
	}
	wg.Wait()

	bal, err := l.Balance(ctx, key)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Balance.Equal(decimal.NewFromInt(125)) {
		t.Fatalf("expected 125 after concurrent credits, got %s", bal.Balance)
	}
}

func TestPostgresLedger_ConcurrentDuplicateRecords(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	rec := testRecord("0xrace", "3", 1)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	saved := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Record(ctx, rec)
			switch {
			case err == nil:
				mu.Lock()
				saved++
				mu.Unlock()
			case !errors.Is(err, ErrDuplicateTransaction):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if saved != 1 {
		t.Fatalf("expected exactly one save, got %d", saved)
	}
	bal, _ := l.Balance(ctx, rec.Key())
	if !bal.Balance.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected balance 3, got %s", bal.Balance)
	}
	if exists, _ := l.HasTransaction(ctx, "0xrace", "user-1"); !exists {
		t.Fatal("expected record to exist")
	}
}

func TestPostgresLedger_DuplicateDoesNotCredit(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	rec := testRecord("0xdup", "5", 7)

	if _, err := l.Record(ctx, rec); err != nil {
		t.Fatalf("initial record: %v", err)
	}
	if _, err := l.Record(ctx, rec); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	other := rec
	other.UserID = "user-2"
	if _, err := l.Record(ctx, other); err != nil {
		t.Fatalf("record for second user: %v", err)
	}

	bal, _ := l.Balance(ctx, rec.Key())
	if !bal.Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("duplicate must not credit twice, balance=%s", bal.Balance)
	}
}

func TestPostgresLedger_NextBlockAndTransactions(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()

	if next, err := l.NextBlock(ctx, "user-1", "bsc"); err != nil || next != 0 {
		t.Fatalf("expected 0 with no records, got %d %v", next, err)
	}
	for _, rec := range []TransactionRecord{
		testRecord("0xa", "1", 500),
		testRecord("0xb", "2", 420),
	} {
		if _, err := l.Record(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.Hash, err)
		}
	}
	eth := testRecord("0xc", "1", 9_000_000_000)
	eth.Network = "ethereum"
	if _, err := l.Record(ctx, eth); err != nil {
		t.Fatalf("record eth: %v", err)
	}

	if next, _ := l.NextBlock(ctx, "user-1", "bsc"); next != 501 {
		t.Fatalf("expected 501, got %d", next)
	}
	if next, _ := l.NextBlock(ctx, "user-1", "ethereum"); next != 9_000_000_001 {
		t.Fatalf("expected 9000000001, got %d", next)
	}

	txs, err := l.Transactions(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 3 || txs[0].Hash != "0xc" || txs[2].Hash != "0xb" {
		t.Fatalf("unexpected order %+v", txs)
	}
}

func TestPostgresLedger_KeepsFullPrecision(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()

	// uint256 max at 0 decimals and one raw unit at 77 decimals.
	const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	huge := testRecord("0xhuge", maxUint256, 1)
	tiny := testRecord("0xtiny", "0."+strings.Repeat("0", 76)+"1", 2)
	tiny.TokenSymbol = "DUST"

	for _, rec := range []TransactionRecord{huge, tiny} {
		if _, err := l.Record(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.Hash, err)
		}
	}

	bal, _ := l.Balance(ctx, huge.Key())
	if !bal.Balance.Equal(huge.Amount) {
		t.Fatalf("huge amount lost precision: %s", bal.Balance)
	}
	dust, _ := l.Balance(ctx, tiny.Key())
	if !dust.Balance.Equal(tiny.Amount) {
		t.Fatalf("77-decimal amount lost precision: %s", dust.Balance)
	}
}
