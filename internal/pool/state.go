package pool

import (
	"errors"
	"fmt"
	"math/big"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/tickmath"
)

var (
	ErrUnsortedTicks   = errors.New("ticks must be strictly ascending")
	ErrInvalidTick     = errors.New("invalid tick entry")
	ErrInvalidSnapshot = errors.New("invalid pool snapshot")
)

// TickEntry is an initialized tick with its liquidity bookkeeping.
// LiquidityNet is applied to active liquidity when price crosses upward.
type TickEntry struct {
	Index          int32
	LiquidityGross *big.Int
	LiquidityNet   *big.Int
}

// State is a validated pool snapshot.
type State struct {
	Pool        string
	BlockNumber uint64
	// TickCurrent is nil until the data source has reported it.
	TickCurrent  *int32
	TickSpacing  int32
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Ticks        []TickEntry
	Decimals0    uint8
	Decimals1    uint8
	SwapFee      float64
}

// Parse validates snap and converts its decimal strings to integers.
func Parse(snap model.PoolSnapshot) (State, error) {
	if snap.TickSpacing < 0 {
		return State{}, fmt.Errorf("%w: negative tick spacing %d", ErrInvalidSnapshot, snap.TickSpacing)
	}
	if len(snap.Tokens) != 2 {
		return State{}, fmt.Errorf("%w: expected 2 tokens, got %d", ErrInvalidSnapshot, len(snap.Tokens))
	}
	if snap.TickCurrent != nil {
		if t := *snap.TickCurrent; t < tickmath.MinTick || t > tickmath.MaxTick {
			return State{}, fmt.Errorf("%w: tickCurrent %d", tickmath.ErrTickOutOfBounds, t)
		}
	}

	liquidity, err := parseUnsigned(snap.Liquidity)
	if err != nil {
		return State{}, fmt.Errorf("%w: liquidity: %v", ErrInvalidSnapshot, err)
	}

	var sqrtPrice *big.Int
	if snap.SqrtPriceX96 != "" {
		sqrtPrice, err = parseUnsigned(snap.SqrtPriceX96)
		if err != nil {
			return State{}, fmt.Errorf("%w: sqrtPriceX96: %v", ErrInvalidSnapshot, err)
		}
	}

	ticks := make([]TickEntry, 0, len(snap.Ticks))
	for i, td := range snap.Ticks {
		entry, err := parseTick(td)
		if err != nil {
			return State{}, fmt.Errorf("tick %d: %w", i, err)
		}
		if i > 0 && entry.Index <= ticks[i-1].Index {
			return State{}, fmt.Errorf("%w: %d after %d", ErrUnsortedTicks, entry.Index, ticks[i-1].Index)
		}
		ticks = append(ticks, entry)
	}

	var tickCurrent *int32
	if snap.TickCurrent != nil {
		t := *snap.TickCurrent
		tickCurrent = &t
	}

	return State{
		Pool:         snap.Pool,
		BlockNumber:  snap.BlockNumber,
		TickCurrent:  tickCurrent,
		TickSpacing:  snap.TickSpacing,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Ticks:        ticks,
		Decimals0:    snap.Tokens[0].Decimals,
		Decimals1:    snap.Tokens[1].Decimals,
		SwapFee:      snap.SwapFee,
	}, nil
}

// WithTicks returns a copy of s using ticks in place of the snapshot's.
// ticks must already be sorted.
func (s State) WithTicks(ticks []TickEntry) State {
	s.Ticks = ticks
	return s
}

func parseTick(td model.TickData) (TickEntry, error) {
	index := int32(td.Index)
	if index < tickmath.MinTick || index > tickmath.MaxTick {
		return TickEntry{}, fmt.Errorf("%w: index %d: %w", ErrInvalidTick, index, tickmath.ErrTickOutOfBounds)
	}
	gross, err := parseUnsigned(td.LiquidityGross)
	if err != nil {
		return TickEntry{}, fmt.Errorf("%w: index %d gross: %v", ErrInvalidTick, index, err)
	}
	net, ok := new(big.Int).SetString(td.LiquidityNet, 10)
	if !ok {
		return TickEntry{}, fmt.Errorf("%w: index %d net %q", ErrInvalidTick, index, td.LiquidityNet)
	}
	return TickEntry{Index: index, LiquidityGross: gross, LiquidityNet: net}, nil
}

// parseUnsigned treats an empty string as zero.
func parseUnsigned(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", value)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value: %q", value)
	}
	return v, nil
}
