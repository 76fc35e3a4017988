package position

import (
	"errors"
	"fmt"

	"liquidityCurve/internal/price"
)

var (
	ErrUnparseablePrice = errors.New("price has no tick")
	ErrMixedBounds      = errors.New("inverted range mixes a tick bound with a price bound")
)

// Bound is one end of a user-chosen range, given either as a tick or as a
// decimal price string. Tick wins when both are set.
type Bound struct {
	Tick  *int32
	Price string
}

// ResolveRange turns two bounds into a usable tick range for spacing. With
// invert set, prices are token1 per token0 reciprocals, so the lower price
// bound maps to the upper tick. An inverted range must give both bounds the
// same way, since a tick and an inverted price order in opposite directions.
func ResolveRange(lower, upper Bound, spacing int32, decimals0, decimals1 uint8, invert bool) (Range, error) {
	if invert && (lower.Tick == nil) != (upper.Tick == nil) {
		return Range{}, ErrMixedBounds
	}
	lowTick, err := resolveBound(lower, spacing, decimals0, decimals1, invert)
	if err != nil {
		return Range{}, fmt.Errorf("lower bound: %w", err)
	}
	highTick, err := resolveBound(upper, spacing, decimals0, decimals1, invert)
	if err != nil {
		return Range{}, fmt.Errorf("upper bound: %w", err)
	}

	if invert && lower.Tick == nil {
		lowTick, highTick = highTick, lowTick
	}

	rng := Range{Lower: lowTick, Upper: highTick}
	if err := rng.Validate(); err != nil {
		return Range{}, err
	}
	return rng, nil
}

func resolveBound(b Bound, spacing int32, decimals0, decimals1 uint8, invert bool) (int32, error) {
	tick := int32(0)
	if b.Tick != nil {
		tick = *b.Tick
	} else {
		t, ok, err := price.PriceToClosestTick(b.Price, decimals0, decimals1, invert)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnparseablePrice, b.Price)
		}
		tick = t
	}
	return price.NearestUsableTick(tick, spacing)
}

// IsFullRange reports whether rng spans every usable tick for spacing.
func IsFullRange(rng Range, spacing int32) (bool, error) {
	low, high, err := price.UsableBounds(spacing)
	if err != nil {
		return false, err
	}
	return rng.Lower == low && rng.Upper == high, nil
}
