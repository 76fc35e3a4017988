package model

// ChartEntry is one point of the liquidity density curve.
type ChartEntry struct {
	ActiveLiquidity float64 `json:"activeLiquidity"`
	Price0          float64 `json:"price0"`
}

// PositionAmounts holds raw token amounts as base-10 integer strings, with
// optional human readable renderings.
type PositionAmounts struct {
	Amount0          string `json:"amount0"`
	Amount1          string `json:"amount1"`
	Amount0Formatted string `json:"amount0_formatted,omitempty"`
	Amount1Formatted string `json:"amount1_formatted,omitempty"`
}
