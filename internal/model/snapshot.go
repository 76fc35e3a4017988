package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PoolSnapshot is the pool state consumed by the curve and position tools.
// JSON field names follow the external tick data contract.
type PoolSnapshot struct {
	Pool         string      `json:"pool,omitempty"`
	ChainID      uint64      `json:"chainId,omitempty"`
	BlockNumber  uint64      `json:"blockNumber,omitempty"`
	SqrtPriceX96 string      `json:"sqrtPriceX96,omitempty"`
	TickCurrent  *int32      `json:"tickCurrent,omitempty"`
	TickSpacing  int32       `json:"tickSpacing"`
	Liquidity    string      `json:"liquidity"`
	Ticks        []TickData  `json:"ticks"`
	Tokens       []TokenInfo `json:"tokens"`
	SwapFee      float64     `json:"swapFee"`
}

// TickData is one initialized tick as delivered by the data provider.
type TickData struct {
	Index          TickIndex `json:"index"`
	LiquidityGross string    `json:"liquidityGross"`
	LiquidityNet   string    `json:"liquidityNet"`
}

// TokenInfo describes one side of the pool.
type TokenInfo struct {
	Address  string `json:"address,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
}

// TickIndex decodes from either a JSON number or a quoted integer.
type TickIndex int32

// UnmarshalJSON accepts 60 as well as "60".
func (ti *TickIndex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseInt(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("tick index %s: %w", data, err)
	}
	*ti = TickIndex(v)
	return nil
}
