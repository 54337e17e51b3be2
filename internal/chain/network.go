package chain

import (
	"sort"
	"strings"
)

// Network identifies an EVM chain served by an etherscan-family explorer.
type Network string

const (
	Ethereum Network = "ethereum"
	BSC      Network = "bsc"
	Polygon  Network = "polygon"
	Arbitrum Network = "arbitrum"
	Base     Network = "base"
	Optimism Network = "optimism"
)

var nativeSymbols = map[Network]string{
	Ethereum: "ETH",
	BSC:      "BNB",
	Polygon:  "POL",
	Arbitrum: "ETH",
	Base:     "ETH",
	Optimism: "ETH",
}

// ParseNetwork resolves a network name case-insensitively.
func ParseNetwork(name string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := nativeSymbols[n]; !ok {
		return "", &ValidationError{Field: "network", Reason: "unsupported network " + name}
	}
	return n, nil
}

// Supported reports whether n is a known network.
func (n Network) Supported() bool {
	_, ok := nativeSymbols[n]
	return ok
}

// NativeSymbol returns the canonical symbol of the network's base currency.
func (n Network) NativeSymbol() string {
	return nativeSymbols[n]
}

func (n Network) String() string { return string(n) }

// Networks returns every supported network in a stable order.
func Networks() []Network {
	out := make([]Network, 0, len(nativeSymbols))
	for n := range nativeSymbols {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
