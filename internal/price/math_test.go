package price

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func e(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func TestAmount(t *testing.T) {
	got := Amount(big.NewInt(1_500_000), 6)
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("amount = %s, want 1.5", got)
	}
	if !Amount(nil, 18).IsZero() {
		t.Fatalf("nil amount should be zero")
	}
}

func TestTokenPriceFromReserves(t *testing.T) {
	// 1000 WETH at 2000 USD against 2,000,000 six-decimal tokens.
	got, ok := TokenPriceFromReserves(e(1000, 18), 18, decimal.NewFromInt(2000), e(2_000_000, 6), 6)
	if !ok {
		t.Fatalf("expected price")
	}
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("price = %s, want 1", got)
	}

	if _, ok := TokenPriceFromReserves(e(1, 18), 18, decimal.NewFromInt(2000), big.NewInt(0), 18); ok {
		t.Fatalf("empty reserve should not be priced")
	}
}

func TestLPTokenPrice(t *testing.T) {
	got, ok := LPTokenPrice(e(40000, 18), 18, decimal.NewFromInt(15), e(300, 18), 18, decimal.NewFromInt(2000), e(100, 18), 18)
	if !ok {
		t.Fatalf("expected price")
	}
	if !got.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("lp price = %s, want 12000", got)
	}

	if _, ok := LPTokenPrice(e(1, 18), 18, decimal.NewFromInt(1), e(1, 18), 18, decimal.NewFromInt(1), big.NewInt(0), 18); ok {
		t.Fatalf("zero supply should not be priced")
	}
}
