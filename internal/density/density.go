package density

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/pool"
	"liquidityCurve/internal/price"
)

// TickProcessed is one step of the liquidity curve. LiquidityActive applies
// from Tick up to the next processed tick.
type TickProcessed struct {
	Tick            int32    `json:"tick"`
	LiquidityActive *big.Int `json:"liquidityActive"`
	LiquidityNet    *big.Int `json:"liquidityNet"`
	Price0          string   `json:"price0"`
}

// Build returns the chart points of the liquidity curve for st, keeping
// only ticks with positive active liquidity. A pool without spacing or
// current tick yields an empty curve.
func Build(st pool.State, invert bool) ([]model.ChartEntry, error) {
	processed, err := Walk(st, invert)
	if err != nil {
		return nil, err
	}
	return Chart(processed)
}

// Chart converts a walked curve into chart points, dropping ticks without
// active liquidity.
func Chart(processed []TickProcessed) ([]model.ChartEntry, error) {
	out := make([]model.ChartEntry, 0, len(processed))
	for _, tp := range processed {
		if tp.LiquidityActive.Sign() <= 0 {
			continue
		}
		p, err := decimal.NewFromString(tp.Price0)
		if err != nil {
			return nil, fmt.Errorf("tick %d price %q: %w", tp.Tick, tp.Price0, err)
		}
		active, _ := decimal.NewFromBigInt(tp.LiquidityActive, 0).Float64()
		price0, _ := p.Float64()
		out = append(out, model.ChartEntry{ActiveLiquidity: active, Price0: price0})
	}
	return out, nil
}

// Walk expands the pool's initialized ticks into running active liquidity,
// starting at the usable tick containing the current tick and moving
// outward in both directions. The result is ordered by tick.
func Walk(st pool.State, invert bool) ([]TickProcessed, error) {
	if st.TickSpacing == 0 || st.TickCurrent == nil {
		return nil, nil
	}
	activeTick, err := price.ActiveTick(*st.TickCurrent, st.TickSpacing)
	if err != nil {
		return nil, err
	}

	ticks := st.Ticks
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Index <= ticks[i-1].Index {
			return nil, fmt.Errorf("%w: %d after %d", pool.ErrUnsortedTicks, ticks[i].Index, ticks[i-1].Index)
		}
	}

	// Last entry at or below the active tick.
	pivot := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > activeTick }) - 1
	if pivot < 0 {
		return nil, nil
	}

	liquidity := st.Liquidity
	if liquidity == nil {
		liquidity = new(big.Int)
	}

	seedNet := new(big.Int)
	// An initialized tick below the active one is still crossed when
	// walking down, so the walk starts at the pivot entry itself.
	lowStart := pivot
	if ticks[pivot].Index == activeTick {
		seedNet.Set(ticks[pivot].LiquidityNet)
		lowStart = pivot - 1
	}

	below := lowStart + 1
	out := make([]TickProcessed, below+len(ticks)-pivot)

	seed, err := process(activeTick, liquidity, seedNet, st, invert)
	if err != nil {
		return nil, err
	}
	out[below] = seed

	// Crossing upward adds the entry's net.
	running := new(big.Int).Set(liquidity)
	for i := pivot + 1; i < len(ticks); i++ {
		running.Add(running, ticks[i].LiquidityNet)
		tp, err := process(ticks[i].Index, running, ticks[i].LiquidityNet, st, invert)
		if err != nil {
			return nil, err
		}
		out[below+i-pivot] = tp
	}

	// Crossing downward reverses the net of the tick just left.
	running.Set(liquidity)
	prevNet := seedNet
	for i := lowStart; i >= 0; i-- {
		running.Sub(running, prevNet)
		tp, err := process(ticks[i].Index, running, ticks[i].LiquidityNet, st, invert)
		if err != nil {
			return nil, err
		}
		out[i] = tp
		prevNet = ticks[i].LiquidityNet
	}

	return out, nil
}

// process snapshots the running total. Inconsistent tick data can drive
// the total below zero; the emitted value is floored at zero.
func process(tick int32, running, net *big.Int, st pool.State, invert bool) (TickProcessed, error) {
	p, err := price.TickToPrice(tick, st.Decimals0, st.Decimals1, invert)
	if err != nil {
		return TickProcessed{}, fmt.Errorf("tick %d: %w", tick, err)
	}
	active := new(big.Int).Set(running)
	if active.Sign() < 0 {
		active.SetInt64(0)
	}
	return TickProcessed{
		Tick:            tick,
		LiquidityActive: active,
		LiquidityNet:    new(big.Int).Set(net),
		Price0:          p,
	}, nil
}
