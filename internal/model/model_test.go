package model

import "testing"

func TestLiquidityTokenPairLabel(t *testing.T) {
	token := LiquidityToken{
		Token0: TokenMeta{Symbol: "LINK"},
		Token1: TokenMeta{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
	}
	if got := token.PairLabel(); got != "LINK/0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" {
		t.Fatalf("pair label mismatch: %s", got)
	}
}
