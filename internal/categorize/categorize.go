// Package categorize turns raw explorer activity into ledger records seen
// from the perspective of one wallet address.
package categorize

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ledger"
)

const (
	nativeDecimals  = 18
	defaultDecimals = 18
	maxDecimals     = 77
)

// Category labels shown to users.
const (
	CategoryDeposit       = "deposit"
	CategoryWithdraw      = "withdraw"
	CategoryTokenTransfer = "token_transfer"
)

// Categorize classifies every entry of activity against userAddress. Entries
// that touch neither side of the address, failed native transactions and
// zero or unparseable amounts are dropped. UserID and Source are left for the
// caller to fill. The result is ordered by block number descending.
func Categorize(activity chain.Activity, network chain.Network, userAddress string) []ledger.TransactionRecord {
	user := chain.NormalizeAddress(userAddress)
	out := make([]ledger.TransactionRecord, 0, activity.Len())

	for _, tx := range activity.Native {
		if tx.Failed() {
			continue
		}
		dir, ok := direction(tx.From, tx.To, user)
		if !ok {
			continue
		}
		amount, ok := scaleAmount(tx.Value, nativeDecimals)
		if !ok {
			continue
		}
		block, _ := chain.ParseBlock(tx.BlockNumber)
		out = append(out, ledger.TransactionRecord{
			Hash:          strings.ToLower(tx.Hash),
			WalletAddress: user,
			Direction:     dir,
			Kind:          ledger.KindNative,
			Amount:        amount,
			TokenSymbol:   network.NativeSymbol(),
			Network:       string(network),
			BlockNumber:   block,
			OccurredAt:    chain.ParseUnixTime(tx.TimeStamp),
		})
	}

	for _, tr := range activity.Tokens {
		dir, ok := direction(tr.From, tr.To, user)
		if !ok {
			continue
		}
		amount, ok := scaleAmount(tr.Value, parseDecimals(tr.TokenDecimal))
		if !ok {
			continue
		}
		block, _ := chain.ParseBlock(tr.BlockNumber)
		out = append(out, ledger.TransactionRecord{
			Hash:                 strings.ToLower(tr.Hash),
			WalletAddress:        user,
			Direction:            dir,
			Kind:                 ledger.KindToken,
			Amount:               amount,
			TokenSymbol:          chain.NormalizeSymbol(tr.TokenName, tr.TokenSymbol),
			TokenContractAddress: strings.ToLower(tr.ContractAddress),
			Network:              string(network),
			BlockNumber:          block,
			OccurredAt:           chain.ParseUnixTime(tr.TimeStamp),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber > out[j].BlockNumber
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}

// Incoming keeps only records that credit the user.
func Incoming(records []ledger.TransactionRecord) []ledger.TransactionRecord {
	out := make([]ledger.TransactionRecord, 0, len(records))
	for _, rec := range records {
		if rec.Direction == ledger.DirectionIn {
			out = append(out, rec)
		}
	}
	return out
}

// Category returns the user-facing label of a record.
func Category(rec ledger.TransactionRecord) string {
	switch {
	case rec.Kind == ledger.KindToken:
		return CategoryTokenTransfer
	case rec.Direction == ledger.DirectionIn:
		return CategoryDeposit
	default:
		return CategoryWithdraw
	}
}

// direction checks the recipient first so self-transfers count as incoming.
func direction(from, to, user string) (ledger.Direction, bool) {
	if user == "" {
		return "", false
	}
	if strings.EqualFold(strings.TrimSpace(to), user) {
		return ledger.DirectionIn, true
	}
	if strings.EqualFold(strings.TrimSpace(from), user) {
		return ledger.DirectionOut, true
	}
	return "", false
}

func parseDecimals(v string) int32 {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 || n > maxDecimals {
		return defaultDecimals
	}
	return int32(n)
}

// scaleAmount converts a raw integer amount in the smallest unit into a
// human-scale decimal. Hex raw values are accepted for push payloads.
func scaleAmount(raw string, decimals int32) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	var value decimal.Decimal
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		parsed, ok := parseHex(raw[2:])
		if !ok {
			return decimal.Decimal{}, false
		}
		value = parsed
	} else {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, false
		}
		value = parsed
	}
	if !value.IsPositive() {
		return decimal.Decimal{}, false
	}
	return value.Shift(-decimals), true
}

func parseHex(digits string) (decimal.Decimal, bool) {
	if digits == "" {
		return decimal.Decimal{}, false
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromBigInt(n, 0), true
}
