package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ledger"
)

const address = "0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa"

func TestServiceBindAndResolve(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil, ledger.NewInMemory())
	ctx := context.Background()

	binding, err := svc.Bind(ctx, BindInput{UserID: "user-1", Address: address, Network: "BSC"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if binding.Address != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" || binding.Network != "bsc" {
		t.Fatalf("expected normalized binding, got %+v", binding)
	}

	userID, err := svc.Resolve(ctx, address)
	if err != nil || userID != "user-1" {
		t.Fatalf("resolve: %q %v", userID, err)
	}

	again, err := svc.Bind(ctx, BindInput{UserID: "user-1", Address: address})
	if err != nil {
		t.Fatalf("rebind same user: %v", err)
	}
	if again.ID != binding.ID {
		t.Fatalf("expected existing binding to be returned")
	}

	if _, err := svc.Bind(ctx, BindInput{UserID: "user-2", Address: address}); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
}

func TestServiceBindValidates(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Bind(ctx, BindInput{Address: address}); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := svc.Bind(ctx, BindInput{UserID: "u", Address: "0x123"}); !chain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Bind(ctx, BindInput{UserID: "u", Address: address, Network: "dogechain"}); !chain.IsValidation(err) {
		t.Fatalf("expected network validation error, got %v", err)
	}
}

func TestServiceBalances(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), nil, led)
	ctx := context.Background()

	key := ledger.BalanceKey{UserID: "user-1", TokenSymbol: "ETH", Network: "base"}
	ledger.SeedBalance(led, key, decimal.RequireFromString("2.5"))

	balances, err := svc.Balances(ctx, "user-1")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 1 || !balances[0].Balance.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected balances %+v", balances)
	}
}

type countingResolver struct {
	calls int
	owner string
}

func (c *countingResolver) Resolve(_ context.Context, _ string) (string, error) {
	c.calls++
	if c.owner == "" {
		return "", ErrNotBound
	}
	return c.owner, nil
}

func TestCachedResolverCachesPositiveLookupsOnly(t *testing.T) {
	inner := &countingResolver{}
	cached := NewCachedResolver(inner, time.Minute)
	ctx := context.Background()

	if _, err := cached.Resolve(ctx, address); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected ErrNotBound, got %v", err)
	}
	inner.owner = "user-9"
	for i := 0; i < 3; i++ {
		userID, err := cached.Resolve(ctx, address)
		if err != nil || userID != "user-9" {
			t.Fatalf("resolve %d: %q %v", i, userID, err)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner lookups, got %d", inner.calls)
	}
}
