package stake

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fractional digits kept when showing balances.
const DisplayPlaces = 6

// maxAmountDigits is the decimal width of the largest uint256.
const maxAmountDigits = 78

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a user-entered decimal string into raw token units.
// An empty input yields a nil amount and no error.
func ParseAmount(input string, decimals uint8) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, input)
	}
	if d.IsZero() {
		return new(big.Int), nil
	}

	// Reject out-of-range scales before the integer is materialized.
	digits := int64(len(new(big.Int).Abs(d.Coefficient()).String()))
	scale := int64(d.Exponent()) + int64(decimals)
	if digits+scale > maxAmountDigits {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, input)
	}
	if -scale >= digits {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, input, decimals)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, input, decimals)
	}
	raw := shifted.BigInt()
	if raw.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, input)
	}
	return raw, nil
}

// FormatAmount renders raw units as an exact decimal string.
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return ""
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// DisplayAmount renders raw units truncated to DisplayPlaces fractional digits.
func DisplayAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return ""
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).Truncate(DisplayPlaces).String()
}

// Significant renders raw units rounded to n significant digits.
func Significant(raw *big.Int, decimals uint8, n int) string {
	if raw == nil {
		return ""
	}
	d := decimal.NewFromBigInt(raw, -int32(decimals))
	if d.IsZero() || n <= 0 {
		return d.String()
	}
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	magnitude := digits + int(d.Exponent())
	return d.Round(int32(n - magnitude)).String()
}

// CalculateGasMargin adds 10% to a gas estimate.
func CalculateGasMargin(estimate uint64) uint64 {
	v := new(big.Int).SetUint64(estimate)
	v.Mul(v, big.NewInt(10000+1000))
	v.Div(v, big.NewInt(10000))
	return v.Uint64()
}
