package chain

import "testing"

func TestNormalizeSymbolCollapsesPeggedEther(t *testing.T) {
	peg := NormalizeSymbol("Binance-Peg Ethereum Token", "ETH")
	weth := NormalizeSymbol("Wrapped Ether", "WETH")
	bare := NormalizeSymbol("", "weth")

	if peg != "ETH" || weth != "ETH" || bare != "ETH" {
		t.Fatalf("expected ETH for all variants, got %q %q %q", peg, weth, bare)
	}
}

func TestNormalizeSymbolTable(t *testing.T) {
	cases := []struct {
		name, symbol, want string
	}{
		{"Binance-Peg BSC-USD", "BSC-USD", "USDT"},
		{"Tether USD", "USDT", "USDT"},
		{"Binance-Peg USD Coin", "USDC", "USDC"},
		{"Bridged USDC", "USDC.e", "USDC"},
		{"Binance-Peg BTCB Token", "BTCB", "BTC"},
		{"Wrapped BTC", "WBTC", "BTC"},
		{"Wrapped BNB", "WBNB", "BNB"},
		{"Wrapped Matic", "WMATIC", "POL"},
		{"Binance-Peg Dai Token", "DAI", "DAI"},
		{"Binance-Peg Ethereum Classic", "ETC", "ETC"},
		{"Bridged ETH", "ETH", "ETH"},
		{"Bridged Ethena USDe", "USDe", "USDE"},
		{"Wrapped Etherfi Token", "wETHFI", "WETHFI"},
		{"Some Meme", "meme", "MEME"},
		{"Nameless Thing", "", "NAMELESS THING"},
		{"", "", "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := NormalizeSymbol(tc.name, tc.symbol); got != tc.want {
			t.Errorf("NormalizeSymbol(%q, %q) = %q, want %q", tc.name, tc.symbol, got, tc.want)
		}
	}
}
