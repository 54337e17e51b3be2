package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets the balance for a key when using the in-memory ledger.
func SeedBalance(l Ledger, key BalanceKey, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[key] = BalanceAggregate{BalanceKey: key, Balance: amount, LastUpdatedAt: mem.now()}
	}
}
