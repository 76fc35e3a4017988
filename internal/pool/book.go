package pool

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/tickmath"
)

var ErrGrossUnderflow = errors.New("burn exceeds tick liquidity")

// TickBook rebuilds a pool's initialized ticks by replaying Mint and Burn
// events in chain order.
type TickBook struct {
	ticks map[int32]*TickEntry
}

func NewTickBook() *TickBook {
	return &TickBook{ticks: make(map[int32]*TickEntry)}
}

// Apply adds a mint or removes a burn. A tick whose gross liquidity drops
// to zero is uninitialized and removed from the book.
func (b *TickBook) Apply(ev model.LiquidityEvent) error {
	if ev.TickLower >= ev.TickUpper {
		return fmt.Errorf("%w: range [%d, %d)", ErrInvalidTick, ev.TickLower, ev.TickUpper)
	}
	if ev.TickLower < tickmath.MinTick || ev.TickUpper > tickmath.MaxTick {
		return fmt.Errorf("%w: range [%d, %d)", tickmath.ErrTickOutOfBounds, ev.TickLower, ev.TickUpper)
	}
	amount, err := parseUnsigned(ev.Amount)
	if err != nil {
		return fmt.Errorf("%s amount: %w", ev.Kind, err)
	}
	if amount.Sign() == 0 {
		return nil
	}

	switch ev.Kind {
	case model.EventMint:
	case model.EventBurn:
		amount.Neg(amount)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	for _, tick := range []int32{ev.TickLower, ev.TickUpper} {
		if cur, ok := b.ticks[tick]; ok && new(big.Int).Add(cur.LiquidityGross, amount).Sign() < 0 {
			return fmt.Errorf("%w: tick %d", ErrGrossUnderflow, tick)
		} else if !ok && amount.Sign() < 0 {
			return fmt.Errorf("%w: tick %d not initialized", ErrGrossUnderflow, tick)
		}
	}

	b.update(ev.TickLower, amount, false)
	b.update(ev.TickUpper, amount, true)
	return nil
}

func (b *TickBook) update(tick int32, delta *big.Int, upper bool) {
	entry, ok := b.ticks[tick]
	if !ok {
		entry = &TickEntry{Index: tick, LiquidityGross: new(big.Int), LiquidityNet: new(big.Int)}
		b.ticks[tick] = entry
	}
	entry.LiquidityGross.Add(entry.LiquidityGross, delta)
	if upper {
		entry.LiquidityNet.Sub(entry.LiquidityNet, delta)
	} else {
		entry.LiquidityNet.Add(entry.LiquidityNet, delta)
	}
	if entry.LiquidityGross.Sign() == 0 {
		delete(b.ticks, tick)
	}
}

// Entries returns copies of the initialized ticks in ascending order.
func (b *TickBook) Entries() []TickEntry {
	out := make([]TickEntry, 0, len(b.ticks))
	for _, e := range b.ticks {
		out = append(out, TickEntry{
			Index:          e.Index,
			LiquidityGross: new(big.Int).Set(e.LiquidityGross),
			LiquidityNet:   new(big.Int).Set(e.LiquidityNet),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ActiveLiquidity is the in-range liquidity while the pool sits at tick:
// the sum of net liquidity over every initialized tick at or below it.
func (b *TickBook) ActiveLiquidity(tick int32) *big.Int {
	total := new(big.Int)
	for idx, e := range b.ticks {
		if idx <= tick {
			total.Add(total, e.LiquidityNet)
		}
	}
	return total
}

// Len reports the number of initialized ticks.
func (b *TickBook) Len() int {
	return len(b.ticks)
}

// Replay builds a book from events for pool in (block, log index) order.
// Removed events and events after upToBlock are skipped; upToBlock zero
// keeps everything.
func Replay(events []model.LiquidityEvent, pool string, upToBlock uint64) (*TickBook, error) {
	ordered := make([]model.LiquidityEvent, 0, len(events))
	for _, ev := range events {
		if ev.Removed || !strings.EqualFold(ev.Pool, pool) {
			continue
		}
		if upToBlock > 0 && ev.BlockNumber > upToBlock {
			continue
		}
		ordered = append(ordered, ev)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].BlockNumber != ordered[j].BlockNumber {
			return ordered[i].BlockNumber < ordered[j].BlockNumber
		}
		return ordered[i].LogIndex < ordered[j].LogIndex
	})

	book := NewTickBook()
	for _, ev := range ordered {
		if err := book.Apply(ev); err != nil {
			return nil, fmt.Errorf("replay %s: %w", ev.Key(), err)
		}
	}
	return book, nil
}
