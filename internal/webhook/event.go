package webhook

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletsync/internal/chain"
)

// TypeAddressActivity is the only event type that carries transfers.
const TypeAddressActivity = "ADDRESS_ACTIVITY"

// providerNetworks maps webhook network names onto chain networks.
var providerNetworks = map[string]chain.Network{
	"ETH_MAINNET":   chain.Ethereum,
	"BNB_MAINNET":   chain.BSC,
	"MATIC_MAINNET": chain.Polygon,
	"ARB_MAINNET":   chain.Arbitrum,
	"BASE_MAINNET":  chain.Base,
	"OPT_MAINNET":   chain.Optimism,
}

// Envelope is the outer webhook delivery.
type Envelope struct {
	WebhookID string          `json:"webhookId"`
	ID        string          `json:"id"`
	CreatedAt string          `json:"createdAt"`
	Type      string          `json:"type"`
	Event     json.RawMessage `json:"event"`
}

// AddressActivityEvent is the event body of an ADDRESS_ACTIVITY delivery.
type AddressActivityEvent struct {
	Network  string     `json:"network"`
	Activity []Activity `json:"activity"`
}

// Activity is one transfer reported by the webhook provider.
type Activity struct {
	BlockNum    string      `json:"blockNum"`
	Hash        string      `json:"hash"`
	FromAddress string      `json:"fromAddress"`
	ToAddress   string      `json:"toAddress"`
	Value       *float64    `json:"value"`
	Asset       string      `json:"asset"`
	Category    string      `json:"category"`
	RawContract RawContract `json:"rawContract"`
}

// RawContract carries the unscaled amount and token metadata.
type RawContract struct {
	RawValue string `json:"rawValue"`
	Address  string `json:"address"`
	Decimals *int   `json:"decimals"`
}

// resolveNetwork accepts provider names and plain network identifiers.
func resolveNetwork(name string) (chain.Network, bool) {
	if n, ok := providerNetworks[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return n, true
	}
	n, err := chain.ParseNetwork(name)
	return n, err == nil
}

func (a Activity) isNative() bool {
	switch strings.ToLower(a.Category) {
	case "external", "internal":
		return true
	}
	return false
}

func (a Activity) isToken() bool {
	switch strings.ToLower(a.Category) {
	case "token", "erc20":
		return true
	}
	return false
}

// rawAmount prefers the unscaled contract value and falls back to the scaled
// value re-expanded by the token decimals.
func (a Activity) rawAmount(decimals int) string {
	if v := strings.TrimSpace(a.RawContract.RawValue); v != "" && v != "0x" {
		return v
	}
	if a.Value == nil {
		return ""
	}
	return decimal.NewFromFloat(*a.Value).Shift(int32(decimals)).Truncate(0).String()
}

func (a Activity) decimals(fallback int) int {
	if a.RawContract.Decimals != nil {
		return *a.RawContract.Decimals
	}
	return fallback
}

// toChainActivity converts the delivery into the shape the categorizer reads.
// Activity of other categories (NFTs) yields nothing.
func (a Activity) toChainActivity() chain.Activity {
	switch {
	case a.isNative():
		return chain.Activity{Native: []chain.NativeTx{{
			BlockNumber: a.BlockNum,
			Hash:        a.Hash,
			From:        a.FromAddress,
			To:          a.ToAddress,
			Value:       a.rawAmount(18),
		}}}
	case a.isToken():
		decimals := a.decimals(18)
		return chain.Activity{Tokens: []chain.TokenTransfer{{
			BlockNumber:     a.BlockNum,
			Hash:            a.Hash,
			From:            a.FromAddress,
			To:              a.ToAddress,
			Value:           a.rawAmount(decimals),
			ContractAddress: a.RawContract.Address,
			TokenSymbol:     a.Asset,
			TokenDecimal:    strconv.Itoa(decimals),
		}}}
	default:
		return chain.Activity{}
	}
}
