package tickmath

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick any pool can use.
	MinTick int32 = -887272
	// MaxTick is the highest tick any pool can use.
	MaxTick int32 = -MinTick
)

var (
	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtRatioOutOfBounds = errors.New("sqrt ratio out of bounds")
)

var (
	// MinSqrtRatio is SqrtRatioAtTick(MinTick).
	MinSqrtRatio = mustHex("0x1000276a3")
	// MaxSqrtRatio is SqrtRatioAtTick(MaxTick).
	MaxSqrtRatio = mustHex("0xfffd8963efd1fc6a506488495d951d5263988d26")

	// Q96 is 2^96, the fixed-point scale of sqrt prices.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

	q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	maxUint256 = new(uint256.Int).SetAllOne()
	lowMask32  = uint256.NewInt(0xffffffff)

	// sqrtRatioSteps[k] is 1/sqrt(1.0001)^(2^k) as a Q128.128 number.
	sqrtRatioSteps = [20]*uint256.Int{
		mustHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		mustHex("0xfff97272373d413259a46990580e213a"),
		mustHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		mustHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		mustHex("0xffcb9843d60f6159c9db58835c926644"),
		mustHex("0xff973b41fa98c081472e6896dfb254c0"),
		mustHex("0xff2ea16466c96a3843ec78b326b52861"),
		mustHex("0xfe5dee046a99a2a811c461f1969c3053"),
		mustHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		mustHex("0xf987a7253ac413176f2b074cf7815e54"),
		mustHex("0xf3392b0822b70005940c7a398e4b70f3"),
		mustHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		mustHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		mustHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		mustHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		mustHex("0x31be135f97d08fd981231505542fcfa6"),
		mustHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		mustHex("0x5d6af8dedb81196699c329225ee604"),
		mustHex("0x2216e584f5fa1ea926041bedfe98"),
		mustHex("0x48a170391f7dc42444e8fa2"),
	}

	// log base sqrt(1.0001) of 2, scaled by 2^64
	logSqrt10001Factor = mustBigHex("0x3627a301d71055774c85")
	tickLowOffset      = mustBigHex("0x28f6481ab7f045a5af012a19d003aaa")
	tickHighOffset     = mustBigHex("0xdb2df09e81959a81455e260799a0632f")
)

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96 fixed-point number.
// The result is bit-for-bit identical to the on-chain TickMath library.
func SqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(uint256.Int)
	if absTick&1 != 0 {
		ratio.Set(sqrtRatioSteps[0])
	} else {
		ratio.Set(q128)
	}
	for bit := 1; bit < len(sqrtRatioSteps); bit++ {
		if absTick&(1<<uint(bit)) == 0 {
			continue
		}
		ratio.Mul(ratio, sqrtRatioSteps[bit])
		ratio.Rsh(ratio, 128)
	}

	if tick > 0 {
		ratio = new(uint256.Int).Div(maxUint256, ratio)
	}

	// Q128.128 -> Q64.96, rounding up so TickAtSqrtRatio(result) == tick.
	roundUp := !new(uint256.Int).And(ratio, lowMask32).IsZero()
	ratio.Rsh(ratio, 32)
	if roundUp {
		ratio.AddUint64(ratio, 1)
	}
	return ratio, nil
}

// TickAtSqrtRatio returns the greatest tick whose sqrt ratio is less than
// or equal to sqrtRatioX96.
func TickAtSqrtRatio(sqrtRatioX96 *uint256.Int) (int32, error) {
	if sqrtRatioX96 == nil || sqrtRatioX96.Lt(MinSqrtRatio) || sqrtRatioX96.Gt(MaxSqrtRatio) {
		return 0, fmt.Errorf("%w: %v", ErrSqrtRatioOutOfBounds, sqrtRatioX96)
	}
	// Nothing above MaxTick exists, so the upper bound maps straight to it.
	if sqrtRatioX96.Eq(MaxSqrtRatio) {
		return MaxTick, nil
	}

	ratio := new(uint256.Int).Lsh(sqrtRatioX96, 32)
	msb := ratio.BitLen() - 1

	r := new(uint256.Int)
	if msb >= 128 {
		r.Rsh(ratio, uint(msb-127))
	} else {
		r.Lsh(ratio, uint(127-msb))
	}

	log2 := new(big.Int).Lsh(big.NewInt(int64(msb-128)), 64)
	bit := new(big.Int)
	for i := 0; i < 14; i++ {
		r.Mul(r, r)
		r.Rsh(r, 127)
		f := new(uint256.Int).Rsh(r, 128).Uint64()
		if f != 0 {
			bit.Lsh(big.NewInt(1), uint(63-i))
			log2.Add(log2, bit)
			r.Rsh(r, 1)
		}
	}

	logSqrt10001 := new(big.Int).Mul(log2, logSqrt10001Factor)

	// big.Int.Rsh is an arithmetic shift, so negative logs floor correctly.
	tickLow := new(big.Int).Sub(logSqrt10001, tickLowOffset)
	tickLow.Rsh(tickLow, 128)
	tickHigh := new(big.Int).Add(logSqrt10001, tickHighOffset)
	tickHigh.Rsh(tickHigh, 128)

	low := int32(tickLow.Int64())
	high := int32(tickHigh.Int64())
	if low == high {
		return low, nil
	}

	highRatio, err := SqrtRatioAtTick(high)
	if err != nil {
		return low, nil
	}
	if highRatio.Cmp(sqrtRatioX96) <= 0 {
		return high, nil
	}
	return low, nil
}

func mustHex(s string) *uint256.Int {
	return uint256.MustFromBig(mustBigHex(s))
}

func mustBigHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		panic("tickmath: bad constant " + s)
	}
	return v
}
