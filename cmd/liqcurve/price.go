package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"liquidityCurve/internal/config"
	"liquidityCurve/internal/price"
)

type priceResult struct {
	Tick       int32  `json:"tick"`
	Price      string `json:"price"`
	UsableTick *int32 `json:"usableTick,omitempty"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrice(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	result, err := convertPrice(cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func convertPrice(cfg config.PriceConfig) (priceResult, error) {
	var tick int32
	switch {
	case cfg.Tick != nil:
		tick = *cfg.Tick
	case cfg.Price != "":
		t, ok, err := price.PriceToClosestTick(cfg.Price, cfg.Decimals0, cfg.Decimals1, cfg.Invert)
		if err != nil {
			return priceResult{}, err
		}
		if !ok {
			return priceResult{}, fmt.Errorf("invalid price %q", cfg.Price)
		}
		tick = t
	default:
		return priceResult{}, fmt.Errorf("tick or price is required")
	}

	p, err := price.TickToPrice(tick, cfg.Decimals0, cfg.Decimals1, cfg.Invert)
	if err != nil {
		return priceResult{}, err
	}
	result := priceResult{Tick: tick, Price: p}

	if cfg.Spacing != 0 {
		usable, err := price.NearestUsableTick(tick, cfg.Spacing)
		if err != nil {
			return priceResult{}, err
		}
		result.UsableTick = &usable
	}
	return result, nil
}
