package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a transfer relative to the user's wallet.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Kind distinguishes base-currency transfers from token transfers.
type Kind string

const (
	KindNative Kind = "native"
	KindToken  Kind = "token"
)

// Sources of a transaction record.
const (
	SourcePoll    = "poll"
	SourceWebhook = "webhook"
)

// TransactionRecord is an immutable row describing one on-chain transfer
// attributed to a user. It is unique per (Hash, UserID).
type TransactionRecord struct {
	Hash                 string          `json:"transactionHash"`
	UserID               string          `json:"userId"`
	WalletAddress        string          `json:"walletAddress"`
	Direction            Direction       `json:"direction"`
	Kind                 Kind            `json:"kind"`
	Amount               decimal.Decimal `json:"amount"`
	TokenSymbol          string          `json:"tokenSymbol"`
	TokenContractAddress string          `json:"tokenContractAddress,omitempty"`
	Network              string          `json:"network"`
	BlockNumber          uint64          `json:"blockNumber"`
	OccurredAt           time.Time       `json:"occurredAt"`
	Source               string          `json:"source"`
	RecordedAt           time.Time       `json:"recordedAt"`
}

// BalanceKey identifies one running balance.
type BalanceKey struct {
	UserID      string `json:"userId"`
	TokenSymbol string `json:"tokenSymbol"`
	Network     string `json:"network"`
}

// Key returns the balance key a record credits.
func (r TransactionRecord) Key() BalanceKey {
	return BalanceKey{UserID: r.UserID, TokenSymbol: r.TokenSymbol, Network: r.Network}
}

// BalanceAggregate is the running total for one BalanceKey.
type BalanceAggregate struct {
	BalanceKey
	Balance              decimal.Decimal `json:"balance"`
	TokenContractAddress string          `json:"tokenContractAddress,omitempty"`
	LastUpdatedAt        time.Time       `json:"lastUpdatedAt"`
}
