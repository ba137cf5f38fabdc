package price

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const divisionScale = 18

// Amount converts a fixed-point on-chain integer into a decimal.
func Amount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// TokenPriceFromReserves prices a token against a base asset with a known USD price
// using the pair's reserves. It returns false when the token reserve is empty.
func TokenPriceFromReserves(reserveBase *big.Int, baseDecimals uint8, basePrice decimal.Decimal, reserveToken *big.Int, tokenDecimals uint8) (decimal.Decimal, bool) {
	token := Amount(reserveToken, tokenDecimals)
	if token.Sign() <= 0 {
		return decimal.Zero, false
	}
	base := Amount(reserveBase, baseDecimals)
	return base.Mul(basePrice).DivRound(token, divisionScale), true
}

// LPTokenPrice values one LP token as the pair's total reserve value over its supply.
func LPTokenPrice(reserve0 *big.Int, decimals0 uint8, price0 decimal.Decimal, reserve1 *big.Int, decimals1 uint8, price1 decimal.Decimal, totalSupply *big.Int, lpDecimals uint8) (decimal.Decimal, bool) {
	supply := Amount(totalSupply, lpDecimals)
	if supply.Sign() <= 0 {
		return decimal.Zero, false
	}
	value := Amount(reserve0, decimals0).Mul(price0).Add(Amount(reserve1, decimals1).Mul(price1))
	return value.DivRound(supply, divisionScale), true
}
