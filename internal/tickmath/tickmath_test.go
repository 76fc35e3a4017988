package tickmath

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromDecimal(t *testing.T, s string) *uint256.Int {
	t.Helper()
	b, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	v, overflow := uint256.FromBig(b)
	require.False(t, overflow)
	return v
}

func sampleTicks() []int32 {
	ticks := []int32{MinTick, MinTick + 1, -1, 0, 1, 60, -60, MaxTick - 1, MaxTick}
	for tick := MinTick; tick <= MaxTick; tick += 7919 {
		ticks = append(ticks, tick)
	}
	return ticks
}

func TestSqrtRatioAtTick(t *testing.T) {
	t.Run("rejects below min tick", func(t *testing.T) {
		_, err := SqrtRatioAtTick(MinTick - 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("rejects above max tick", func(t *testing.T) {
		_, err := SqrtRatioAtTick(MaxTick + 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	cases := []struct {
		tick int32
		want string
	}{
		{MinTick, "4295128739"},
		{MinTick + 1, "4295343490"},
		{0, "79228162514264337593543950336"},
		{MaxTick - 1, "1461373636630004318706518188784493106690254656249"},
		{MaxTick, "1461446703485210103287273052203988822378723970342"},
	}
	for _, tc := range cases {
		got, err := SqrtRatioAtTick(tc.tick)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.ToBig().String(), "tick %d", tc.tick)
	}
}

func TestSqrtRatioBounds(t *testing.T) {
	low, err := SqrtRatioAtTick(MinTick)
	require.NoError(t, err)
	high, err := SqrtRatioAtTick(MaxTick)
	require.NoError(t, err)

	assert.True(t, low.Eq(MinSqrtRatio))
	assert.True(t, high.Eq(MaxSqrtRatio))
}

func TestSqrtRatioMonotonic(t *testing.T) {
	var prev *uint256.Int
	for tick := int32(-5000); tick <= 5000; tick += 37 {
		cur, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)
		if prev != nil {
			require.True(t, prev.Lt(cur), "tick %d not above previous", tick)
		}
		prev = cur
	}
}

func TestTickAtSqrtRatio(t *testing.T) {
	t.Run("rejects below min ratio", func(t *testing.T) {
		_, err := TickAtSqrtRatio(new(uint256.Int).SubUint64(MinSqrtRatio, 1))
		assert.ErrorIs(t, err, ErrSqrtRatioOutOfBounds)
	})

	t.Run("rejects above max ratio", func(t *testing.T) {
		_, err := TickAtSqrtRatio(new(uint256.Int).AddUint64(MaxSqrtRatio, 1))
		assert.ErrorIs(t, err, ErrSqrtRatioOutOfBounds)
	})

	t.Run("rejects nil", func(t *testing.T) {
		_, err := TickAtSqrtRatio(nil)
		assert.ErrorIs(t, err, ErrSqrtRatioOutOfBounds)
	})

	t.Run("ratio of min tick", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(MinSqrtRatio)
		require.NoError(t, err)
		assert.Equal(t, MinTick, tick)
	})

	t.Run("ratio of min tick + 1", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(fromDecimal(t, "4295343490"))
		require.NoError(t, err)
		assert.Equal(t, MinTick+1, tick)
	})

	t.Run("ratio closest to max tick", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(new(uint256.Int).SubUint64(MaxSqrtRatio, 1))
		require.NoError(t, err)
		assert.Equal(t, MaxTick-1, tick)
	})

	t.Run("ratio of max tick", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(MaxSqrtRatio)
		require.NoError(t, err)
		assert.Equal(t, MaxTick, tick)
	})

	t.Run("q96 is tick zero", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(Q96)
		require.NoError(t, err)
		assert.Equal(t, int32(0), tick)
	})
}

func TestTickRoundTrip(t *testing.T) {
	for _, tick := range sampleTicks() {
		ratio, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)

		got, err := TickAtSqrtRatio(ratio)
		require.NoError(t, err)
		require.Equal(t, tick, got, "round trip for tick %d", tick)
	}
}

func TestTickAtSqrtRatioFloors(t *testing.T) {
	for _, tick := range sampleTicks() {
		if tick == MinTick {
			continue
		}
		ratio, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)

		below := new(uint256.Int).SubUint64(ratio, 1)
		got, err := TickAtSqrtRatio(below)
		require.NoError(t, err)
		require.Equal(t, tick-1, got, "one below ratio of tick %d", tick)
	}
}
