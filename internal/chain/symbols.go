package chain

import "strings"

// symbolRule collapses wrapped, bridged and pegged variants onto one symbol.
// Token names are matched by whole-word phrase because symbols alone are
// ambiguous across chains (BSC's "ETH" is a Binance-Peg token, for instance).
type symbolRule struct {
	canonical string
	names     []string
	symbols   []string
}

// Rules are evaluated in order; more specific names come first.
var symbolRules = []symbolRule{
	{canonical: "ETC", names: []string{"ETHEREUM CLASSIC"}, symbols: []string{"ETC"}},
	{
		canonical: "ETH",
		names:     []string{"BINANCE-PEG ETHEREUM", "WRAPPED ETHER", "BRIDGED ETHER", "BRIDGED ETH"},
		symbols:   []string{"ETH", "WETH", "WETH.E"},
	},
	{
		canonical: "BTC",
		names:     []string{"WRAPPED BTC", "WRAPPED BITCOIN", "BINANCE-PEG BTCB", "BTCB TOKEN"},
		symbols:   []string{"BTC", "WBTC", "BTCB", "BTC.B"},
	},
	{canonical: "BNB", names: []string{"WRAPPED BNB", "BINANCE-PEG BNB"}, symbols: []string{"BNB", "WBNB"}},
	{
		canonical: "POL",
		names:     []string{"WRAPPED MATIC", "WRAPPED POL", "MATIC TOKEN", "POLYGON ECOSYSTEM TOKEN"},
		symbols:   []string{"POL", "MATIC", "WMATIC", "WPOL"},
	},
	{
		canonical: "USDT",
		names:     []string{"BINANCE-PEG BSC-USD", "TETHER USD", "BRIDGED USDT"},
		symbols:   []string{"USDT", "USDT.E", "BSC-USD"},
	},
	{
		canonical: "USDC",
		names:     []string{"BINANCE-PEG USD COIN", "USD COIN", "BRIDGED USDC"},
		symbols:   []string{"USDC", "USDC.E", "USDBC"},
	},
	{canonical: "DAI", names: []string{"BINANCE-PEG DAI", "DAI STABLECOIN"}, symbols: []string{"DAI", "DAI.E"}},
}

// NormalizeSymbol maps a token to the canonical symbol used for balance
// aggregation. It is total: unknown tokens keep their upper-cased raw symbol,
// then their upper-cased name, and finally "UNKNOWN".
func NormalizeSymbol(tokenName, rawSymbol string) string {
	name := strings.ToUpper(strings.TrimSpace(tokenName))
	symbol := strings.ToUpper(strings.TrimSpace(rawSymbol))

	if name != "" {
		padded := " " + strings.Join(strings.Fields(name), " ") + " "
		for _, rule := range symbolRules {
			for _, n := range rule.names {
				if strings.Contains(padded, " "+n+" ") {
					return rule.canonical
				}
			}
		}
	}
	if symbol != "" {
		for _, rule := range symbolRules {
			for _, s := range rule.symbols {
				if symbol == s {
					return rule.canonical
				}
			}
		}
		return symbol
	}
	if name != "" {
		return name
	}
	return "UNKNOWN"
}
