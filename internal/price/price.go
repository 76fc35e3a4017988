package price

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityCurve/internal/tickmath"
)

// Places is the number of fractional digits TickToPrice renders.
const Places = 18

var ErrInvalidSpacing = errors.New("tick spacing must be positive")

var (
	decimalPattern = regexp.MustCompile(`^\d*\.?\d+$`)

	q192 = new(big.Int).Lsh(big.NewInt(1), 192)
	ten  = big.NewInt(10)
)

// TickToPrice renders the price of the base token in quote token units at
// tick, truncated to Places fractional digits. With invert set the
// reciprocal is returned.
func TickToPrice(tick int32, baseDecimals, quoteDecimals uint8, invert bool) (string, error) {
	num, den, err := priceFraction(tick, baseDecimals, quoteDecimals, invert)
	if err != nil {
		return "", err
	}
	return FormatFraction(num, den, Places), nil
}

// priceFraction returns ratioX192*10^base / (2^192*10^quote), or its reciprocal.
func priceFraction(tick int32, baseDecimals, quoteDecimals uint8, invert bool) (*big.Int, *big.Int, error) {
	sqrtRatio, err := tickmath.SqrtRatioAtTick(tick)
	if err != nil {
		return nil, nil, err
	}
	s := sqrtRatio.ToBig()
	ratioX192 := new(big.Int).Mul(s, s)

	num := new(big.Int).Mul(ratioX192, pow10(baseDecimals))
	den := new(big.Int).Mul(q192, pow10(quoteDecimals))
	if invert {
		num, den = den, num
	}
	return num, den, nil
}

// FormatFraction renders num/den with exactly places fractional digits by
// long division. Digits past places are dropped.
func FormatFraction(num, den *big.Int, places int) string {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if places <= 0 {
		return q.String()
	}

	r.Mul(r, new(big.Int).Exp(ten, big.NewInt(int64(places)), nil))
	r.Quo(r, den)

	frac := r.String()
	if len(frac) < places {
		frac = strings.Repeat("0", places-len(frac)) + frac
	}
	return q.String() + "." + frac
}

// PriceToClosestTick returns the tick whose price is closest at or below
// value, where value is the price of token0 in token1 (or of token1 in
// token0 with invert set). ok is false when value is not a plain positive
// decimal number.
func PriceToClosestTick(value string, token0Decimals, token1Decimals uint8, invert bool) (tick int32, ok bool, err error) {
	if !decimalPattern.MatchString(value) {
		return 0, false, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil || parsed.Sign() <= 0 {
		return 0, false, nil
	}

	num, den := decimalFraction(parsed)

	// amount1/amount0 is the raw token1-per-token0 ratio.
	var amount1, amount0 *big.Int
	if invert {
		amount1 = new(big.Int).Mul(den, pow10(token1Decimals))
		amount0 = new(big.Int).Mul(num, pow10(token0Decimals))
	} else {
		amount1 = new(big.Int).Mul(num, pow10(token1Decimals))
		amount0 = new(big.Int).Mul(den, pow10(token0Decimals))
	}

	sqrtRatio := EncodeSqrtRatioX96(amount1, amount0)
	if sqrtRatio.Cmp(tickmath.MinSqrtRatio.ToBig()) < 0 {
		return tickmath.MinTick, true, nil
	}
	if sqrtRatio.Cmp(tickmath.MaxSqrtRatio.ToBig()) >= 0 {
		return tickmath.MaxTick, true, nil
	}

	ratio, _ := uint256.FromBig(sqrtRatio)
	tick, err = tickmath.TickAtSqrtRatio(ratio)
	if err != nil {
		return 0, false, err
	}
	if tick >= tickmath.MaxTick {
		return tick, true, nil
	}

	// The encoded ratio is floored, so the input may already sit on the
	// next tick's price.
	next, err := TickToPrice(tick+1, token0Decimals, token1Decimals, invert)
	if err != nil {
		return 0, false, err
	}
	nextPrice := decimal.RequireFromString(next)
	if invert {
		if nextPrice.GreaterThanOrEqual(parsed) {
			tick++
		}
	} else if nextPrice.LessThanOrEqual(parsed) {
		tick++
	}
	return tick, true, nil
}

// EncodeSqrtRatioX96 returns floor(sqrt(amount1/amount0) * 2^96).
func EncodeSqrtRatioX96(amount1, amount0 *big.Int) *big.Int {
	ratioX192 := new(big.Int).Lsh(amount1, 192)
	ratioX192.Quo(ratioX192, amount0)
	return ratioX192.Sqrt(ratioX192)
}

// NearestUsableTick rounds tick to the nearest multiple of spacing that lies
// inside [MinTick, MaxTick]. Halves round up.
func NearestUsableTick(tick int32, spacing int32) (int32, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSpacing, spacing)
	}
	if tick < tickmath.MinTick || tick > tickmath.MaxTick {
		return 0, fmt.Errorf("%w: %d", tickmath.ErrTickOutOfBounds, tick)
	}

	s := int64(spacing)
	rounded := floorDiv(2*int64(tick)+s, 2*s) * s
	if rounded < int64(tickmath.MinTick) {
		rounded += s
	} else if rounded > int64(tickmath.MaxTick) {
		rounded -= s
	}
	return int32(rounded), nil
}

// UsableBounds returns the lowest and highest usable ticks for spacing.
// Ranges ending on these ticks are full range.
func UsableBounds(spacing int32) (int32, int32, error) {
	low, err := NearestUsableTick(tickmath.MinTick, spacing)
	if err != nil {
		return 0, 0, err
	}
	high, err := NearestUsableTick(tickmath.MaxTick, spacing)
	if err != nil {
		return 0, 0, err
	}
	return low, high, nil
}

// ActiveTick returns the usable tick at or below tick.
func ActiveTick(tick int32, spacing int32) (int32, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSpacing, spacing)
	}
	return int32(floorDiv(int64(tick), int64(spacing)) * int64(spacing)), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func decimalFraction(d decimal.Decimal) (*big.Int, *big.Int) {
	num := d.Coefficient()
	den := big.NewInt(1)
	if exp := d.Exponent(); exp < 0 {
		den.Exp(ten, big.NewInt(int64(-exp)), nil)
	} else if exp > 0 {
		num.Mul(num, new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil))
	}
	return num, den
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}
