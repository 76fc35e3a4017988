package model

import "strconv"

const (
	EventMint = "mint"
	EventBurn = "burn"
)

// LiquidityEvent is a decoded Mint or Burn against a pool.
type LiquidityEvent struct {
	ChainID     uint64 `json:"chain_id"`
	Pool        string `json:"pool"`
	Kind        string `json:"kind"`
	Owner       string `json:"owner"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Amount      string `json:"amount"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Removed     bool   `json:"removed,omitempty"`
}

// Key identifies the event within its chain.
func (e LiquidityEvent) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(e.LogIndex, 10)
}
