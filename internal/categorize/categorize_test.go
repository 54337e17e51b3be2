package categorize

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ledger"
)

const (
	user     = "0xAbCdEf0000000000000000000000000000000001"
	stranger = "0x9999999999999999999999999999999999999999"
)

func TestCategorizeNativeDirections(t *testing.T) {
	act := chain.Activity{Native: []chain.NativeTx{
		{Hash: "0xIN", BlockNumber: "10", From: stranger, To: "0xabcdef0000000000000000000000000000000001", Value: "1500000000000000000", IsError: "0", TxReceiptStatus: "1"},
		{Hash: "0xout", BlockNumber: "11", From: user, To: stranger, Value: "1000000000000000000"},
		{Hash: "0xnone", BlockNumber: "12", From: stranger, To: stranger, Value: "1"},
		{Hash: "0xfailed", BlockNumber: "13", From: stranger, To: user, Value: "5", IsError: "1"},
	}}

	records := Categorize(act, chain.BSC, user)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	// ordered by block descending
	out, in := records[0], records[1]
	if out.Direction != ledger.DirectionOut || Category(out) != CategoryWithdraw {
		t.Fatalf("expected withdraw first, got %+v", out)
	}
	if in.Direction != ledger.DirectionIn || Category(in) != CategoryDeposit {
		t.Fatalf("expected deposit, got %+v", in)
	}
	if in.Hash != "0xin" || in.TokenSymbol != "BNB" || in.Kind != ledger.KindNative {
		t.Fatalf("unexpected native record %+v", in)
	}
	if !in.Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected 1.5, got %s", in.Amount)
	}
}

func TestCategorizeSelfTransferIsIncoming(t *testing.T) {
	act := chain.Activity{Native: []chain.NativeTx{{Hash: "0xself", BlockNumber: "1", From: user, To: user, Value: "1"}}}

	records := Categorize(act, chain.Ethereum, user)
	if len(records) != 1 || records[0].Direction != ledger.DirectionIn {
		t.Fatalf("expected one incoming self transfer, got %+v", records)
	}
}

func TestCategorizeTokenTransfers(t *testing.T) {
	act := chain.Activity{Tokens: []chain.TokenTransfer{
		{Hash: "0xt1", BlockNumber: "20", From: stranger, To: user, Value: "2500000", ContractAddress: "0xDEAD", TokenName: "Tether USD", TokenSymbol: "USDT", TokenDecimal: "6"},
		{Hash: "0xt2", BlockNumber: "21", From: stranger, To: user, Value: "3", TokenName: "Odd", TokenSymbol: "ODD", TokenDecimal: "bogus"},
		{Hash: "0xt3", BlockNumber: "22", From: stranger, To: user, Value: "0", TokenSymbol: "ZERO", TokenDecimal: "0"},
		{Hash: "0xt4", BlockNumber: "23", From: stranger, To: user, Value: "-4", TokenSymbol: "NEG", TokenDecimal: "0"},
		{Hash: "0xt5", BlockNumber: "24", From: stranger, To: user, Value: "abc", TokenSymbol: "BAD", TokenDecimal: "0"},
	}}

	records := Categorize(act, chain.BSC, user)
	if len(records) != 2 {
		t.Fatalf("expected zero, negative and unparseable amounts dropped, got %+v", records)
	}

	odd, usdt := records[0], records[1]
	if !usdt.Amount.Equal(decimal.RequireFromString("2.5")) || usdt.TokenSymbol != "USDT" {
		t.Fatalf("unexpected usdt record %+v", usdt)
	}
	if usdt.TokenContractAddress != "0xdead" || Category(usdt) != CategoryTokenTransfer {
		t.Fatalf("unexpected usdt metadata %+v", usdt)
	}
	// invalid decimals fall back to 18
	if !odd.Amount.Equal(decimal.New(3, -18)) {
		t.Fatalf("expected 3e-18, got %s", odd.Amount)
	}
}

func TestCategorizeAcceptsHexAmounts(t *testing.T) {
	act := chain.Activity{Tokens: []chain.TokenTransfer{
		{Hash: "0xh", BlockNumber: "0x10", From: stranger, To: user, Value: "0xde0b6b3a7640000", TokenSymbol: "WETH"},
	}}

	records := Categorize(act, chain.Arbitrum, user)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if !records[0].Amount.Equal(decimal.NewFromInt(1)) || records[0].BlockNumber != 16 || records[0].TokenSymbol != "ETH" {
		t.Fatalf("unexpected hex record %+v", records[0])
	}
}

func TestIncomingFiltersOutgoing(t *testing.T) {
	records := []ledger.TransactionRecord{
		{Hash: "a", Direction: ledger.DirectionIn},
		{Hash: "b", Direction: ledger.DirectionOut},
		{Hash: "c", Direction: ledger.DirectionIn},
	}

	in := Incoming(records)
	if len(in) != 2 || in[0].Hash != "a" || in[1].Hash != "c" {
		t.Fatalf("unexpected incoming %+v", in)
	}
}
