package dex

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	minInt24 = big.NewInt(-1 << 23)
	maxInt24 = big.NewInt(1<<23 - 1)
)

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	}
	return common.Address{}, fmt.Errorf("unsupported address type %T", value)
}

// asBigInt copies ABI integer outputs; uint24, int24, uint128 and friends
// decode as *big.Int while native sizes keep their Go type.
func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	}
	return nil, fmt.Errorf("unsupported int type %T", value)
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if v.Sign() < 0 || v.BitLen() > 8 {
			return 0, fmt.Errorf("uint8 overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	}
	return 0, fmt.Errorf("unsupported uint8 type %T", value)
}

func asInt24(value interface{}) (int32, error) {
	v, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if v.Cmp(minInt24) < 0 || v.Cmp(maxInt24) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", v)
	}
	return int32(v.Int64()), nil
}

func bytes32ToString(value interface{}) (string, bool) {
	v, ok := value.([32]byte)
	if !ok {
		return "", false
	}
	return string(bytes.TrimRight(v[:], "\x00")), true
}
