package chain

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxPageSize is the largest page an explorer accepts in one request.
const MaxPageSize = 100

// NativeTx is a base-currency transfer as reported by the explorer txlist action.
type NativeTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
}

// Failed reports whether the explorer marked the transaction as reverted.
func (t NativeTx) Failed() bool {
	return t.IsError == "1" || t.TxReceiptStatus == "0"
}

// TokenTransfer is a token Transfer event as reported by the explorer tokentx action.
type TokenTransfer struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// Activity is one page of native and token activity for an address.
type Activity struct {
	Native []NativeTx
	Tokens []TokenTransfer
}

// Len returns the number of raw entries in the page.
func (a Activity) Len() int { return len(a.Native) + len(a.Tokens) }

// Append merges other into a.
func (a *Activity) Append(other Activity) {
	a.Native = append(a.Native, other.Native...)
	a.Tokens = append(a.Tokens, other.Tokens...)
}

// Query scopes one explorer read.
type Query struct {
	Address   string
	Network   Network
	Page      int
	PageSize  int
	FromBlock uint64
}

// Validate checks the query before any network call.
func (q Query) Validate() error {
	if err := ValidateAddress(q.Address); err != nil {
		return err
	}
	if !q.Network.Supported() {
		return &ValidationError{Field: "network", Reason: "unsupported network " + string(q.Network)}
	}
	if q.Page < 1 {
		return &ValidationError{Field: "page", Reason: "must be 1 or greater"}
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return &ValidationError{Field: "page_size", Reason: "must be between 1 and 100"}
	}
	return nil
}

// Reader fetches activity for an address from an external source. Each list
// is ordered by ascending block number and starts at q.FromBlock.
type Reader interface {
	FetchActivity(ctx context.Context, q Query) (Activity, error)
}

// ValidateAddress accepts 0x-prefixed 20 byte hex addresses.
func ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return &ValidationError{Field: "address", Reason: "must be 0x-prefixed"}
	}
	if !common.IsHexAddress(address) {
		return &ValidationError{Field: "address", Reason: "not a hex address"}
	}
	return nil
}

// NormalizeAddress lower-cases a validated address for storage and comparison.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ParseBlock parses decimal or 0x-prefixed hex block numbers.
func ParseBlock(v string) (uint64, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return strconv.ParseUint(v[2:], 16, 64)
	}
	return strconv.ParseUint(v, 10, 64)
}

// ParseUnixTime parses explorer unix-seconds timestamps; invalid input yields the zero time.
func ParseUnixTime(v string) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
