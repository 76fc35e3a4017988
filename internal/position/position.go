package position

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityCurve/internal/tickmath"
)

var (
	ErrInvalidRange      = errors.New("tick lower must be below tick upper")
	ErrLiquidityOverflow = errors.New("liquidity exceeds uint128")
	ErrMulDivOverflow    = errors.New("mul div overflow")
	ErrZeroSqrtRatio     = errors.New("sqrt ratio is zero")
)

var maxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// Amounts holds raw token amounts in the smallest unit of each token.
type Amounts struct {
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

// Range is a position's tick interval [Lower, Upper).
type Range struct {
	Lower int32
	Upper int32
}

// Validate checks ordering and tick bounds.
func (r Range) Validate() error {
	if r.Lower >= r.Upper {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, r.Lower, r.Upper)
	}
	if r.Lower < tickmath.MinTick || r.Upper > tickmath.MaxTick {
		return fmt.Errorf("%w: [%d, %d)", tickmath.ErrTickOutOfBounds, r.Lower, r.Upper)
	}
	return nil
}

// HeldAmounts returns the tokens a position of liquidity over rng owns at
// the current price, rounded down so balances are never overstated.
func HeldAmounts(tickCurrent int32, rng Range, sqrtRatioX96, liquidity *uint256.Int) (Amounts, error) {
	return amounts(tickCurrent, rng, sqrtRatioX96, liquidity, false)
}

// MintAmounts returns the tokens required to open a position of liquidity
// over rng at the current price, rounded up.
func MintAmounts(tickCurrent int32, rng Range, sqrtRatioX96, liquidity *uint256.Int) (Amounts, error) {
	return amounts(tickCurrent, rng, sqrtRatioX96, liquidity, true)
}

func amounts(tickCurrent int32, rng Range, sqrtRatioX96, liquidity *uint256.Int, roundUp bool) (Amounts, error) {
	if err := rng.Validate(); err != nil {
		return Amounts{}, err
	}
	if liquidity.Gt(maxUint128) {
		return Amounts{}, fmt.Errorf("%w: %s", ErrLiquidityOverflow, liquidity.ToBig())
	}

	sqrtLower, err := tickmath.SqrtRatioAtTick(rng.Lower)
	if err != nil {
		return Amounts{}, err
	}
	sqrtUpper, err := tickmath.SqrtRatioAtTick(rng.Upper)
	if err != nil {
		return Amounts{}, err
	}

	out := Amounts{Amount0: new(uint256.Int), Amount1: new(uint256.Int)}
	switch {
	case tickCurrent < rng.Lower:
		out.Amount0, err = Amount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
	case tickCurrent < rng.Upper:
		if sqrtRatioX96 == nil || sqrtRatioX96.IsZero() {
			return Amounts{}, ErrZeroSqrtRatio
		}
		out.Amount0, err = Amount0Delta(sqrtRatioX96, sqrtUpper, liquidity, roundUp)
		if err != nil {
			return Amounts{}, err
		}
		out.Amount1, err = Amount1Delta(sqrtLower, sqrtRatioX96, liquidity, roundUp)
	default:
		out.Amount1, err = Amount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
	}
	if err != nil {
		return Amounts{}, err
	}
	return out, nil
}

// Amount0Delta returns L * (sqrtB - sqrtA) / (sqrtA * sqrtB) in token0 units.
// Liquidity must fit in uint128.
func Amount0Delta(sqrtRatioA, sqrtRatioB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioA.Gt(sqrtRatioB) {
		sqrtRatioA, sqrtRatioB = sqrtRatioB, sqrtRatioA
	}
	if sqrtRatioA.IsZero() {
		return nil, ErrZeroSqrtRatio
	}
	if liquidity.Gt(maxUint128) {
		return nil, fmt.Errorf("%w: %s", ErrLiquidityOverflow, liquidity.ToBig())
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA)

	if roundUp {
		inner, err := mulDivRoundingUp(numerator1, numerator2, sqrtRatioB)
		if err != nil {
			return nil, err
		}
		return divRoundingUp(inner, sqrtRatioA), nil
	}

	inner, err := mulDiv(numerator1, numerator2, sqrtRatioB)
	if err != nil {
		return nil, err
	}
	return inner.Div(inner, sqrtRatioA), nil
}

// Amount1Delta returns L * (sqrtB - sqrtA) in token1 units.
func Amount1Delta(sqrtRatioA, sqrtRatioB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioA.Gt(sqrtRatioB) {
		sqrtRatioA, sqrtRatioB = sqrtRatioB, sqrtRatioA
	}
	if liquidity.Gt(maxUint128) {
		return nil, fmt.Errorf("%w: %s", ErrLiquidityOverflow, liquidity.ToBig())
	}
	diff := new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, tickmath.Q96)
	}
	return mulDiv(liquidity, diff, tickmath.Q96)
}

// LiquidityForAmounts returns the largest liquidity that amount0 and amount1
// can back over [sqrtRatioA, sqrtRatioB] at the current price.
func LiquidityForAmounts(sqrtRatioX96, sqrtRatioA, sqrtRatioB, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	if sqrtRatioA.Gt(sqrtRatioB) {
		sqrtRatioA, sqrtRatioB = sqrtRatioB, sqrtRatioA
	}
	if sqrtRatioA.Eq(sqrtRatioB) {
		return nil, ErrInvalidRange
	}

	switch {
	case sqrtRatioX96.Cmp(sqrtRatioA) <= 0:
		return liquidityForAmount0(sqrtRatioA, sqrtRatioB, amount0)
	case sqrtRatioX96.Lt(sqrtRatioB):
		l0, err := liquidityForAmount0(sqrtRatioX96, sqrtRatioB, amount0)
		if err != nil {
			return nil, err
		}
		l1, err := liquidityForAmount1(sqrtRatioA, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if l0.Lt(l1) {
			return l0, nil
		}
		return l1, nil
	default:
		return liquidityForAmount1(sqrtRatioA, sqrtRatioB, amount1)
	}
}

func liquidityForAmount0(sqrtRatioA, sqrtRatioB, amount0 *uint256.Int) (*uint256.Int, error) {
	intermediate, err := mulDiv(sqrtRatioA, sqrtRatioB, tickmath.Q96)
	if err != nil {
		return nil, err
	}
	return mulDiv(amount0, intermediate, new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA))
}

func liquidityForAmount1(sqrtRatioA, sqrtRatioB, amount1 *uint256.Int) (*uint256.Int, error) {
	return mulDiv(amount1, tickmath.Q96, new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA))
}

// FormatAmount renders a raw token amount with the token's decimals.
func FormatAmount(raw *uint256.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw.ToBig(), -int32(decimals)).StringFixed(int32(decimals))
}

// ParseLiquidity parses a base-10 liquidity string into a uint128-bounded value.
func ParseLiquidity(value string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(value, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid liquidity: %q", value)
	}
	l, overflow := uint256.FromBig(b)
	if overflow || l.Gt(maxUint128) {
		return nil, fmt.Errorf("%w: %s", ErrLiquidityOverflow, value)
	}
	return l, nil
}

func mulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

func mulDivRoundingUp(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	result, err := mulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(a, b, denominator).IsZero() {
		result.AddUint64(result, 1)
	}
	return result, nil
}

func divRoundingUp(a, b *uint256.Int) *uint256.Int {
	q := new(uint256.Int).Div(a, b)
	if !new(uint256.Int).Mod(a, b).IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
