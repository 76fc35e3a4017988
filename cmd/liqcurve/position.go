package main

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/config"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/pool"
	"liquidityCurve/internal/position"
)

func runPosition(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPosition(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input snapshot is required")
	}
	if cfg.Liquidity == "" {
		return fmt.Errorf("liquidity is required")
	}

	snap, err := readSnapshot(cfg.In)
	if err != nil {
		return err
	}
	st, err := pool.Parse(snap)
	if err != nil {
		return err
	}

	amounts, rng, err := positionAmounts(cfg, st)
	if err != nil {
		return err
	}

	full, err := position.IsFullRange(rng, st.TickSpacing)
	if err != nil {
		return err
	}
	logger.Info("position amounts",
		zap.Int32("tick_lower", rng.Lower),
		zap.Int32("tick_upper", rng.Upper),
		zap.Bool("full_range", full),
		zap.Bool("mint", cfg.Mint),
	)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(amounts)
}

func positionAmounts(cfg config.PositionConfig, st pool.State) (model.PositionAmounts, position.Range, error) {
	if st.TickCurrent == nil {
		return model.PositionAmounts{}, position.Range{}, fmt.Errorf("snapshot has no current tick")
	}
	if cfg.TickLower == nil && cfg.PriceLower == "" {
		return model.PositionAmounts{}, position.Range{}, fmt.Errorf("lower tick or price is required")
	}
	if cfg.TickUpper == nil && cfg.PriceUpper == "" {
		return model.PositionAmounts{}, position.Range{}, fmt.Errorf("upper tick or price is required")
	}

	rng, err := position.ResolveRange(
		position.Bound{Tick: cfg.TickLower, Price: cfg.PriceLower},
		position.Bound{Tick: cfg.TickUpper, Price: cfg.PriceUpper},
		st.TickSpacing, st.Decimals0, st.Decimals1, cfg.Invert,
	)
	if err != nil {
		return model.PositionAmounts{}, position.Range{}, err
	}

	liquidity, err := position.ParseLiquidity(cfg.Liquidity)
	if err != nil {
		return model.PositionAmounts{}, position.Range{}, err
	}
	var sqrtPrice *uint256.Int
	if st.SqrtPriceX96 != nil {
		var overflow bool
		if sqrtPrice, overflow = uint256.FromBig(st.SqrtPriceX96); overflow {
			return model.PositionAmounts{}, position.Range{}, fmt.Errorf("sqrt price overflows 256 bits")
		}
	}

	compute := position.HeldAmounts
	if cfg.Mint {
		compute = position.MintAmounts
	}
	amounts, err := compute(*st.TickCurrent, rng, sqrtPrice, liquidity)
	if err != nil {
		return model.PositionAmounts{}, position.Range{}, err
	}

	return model.PositionAmounts{
		Amount0:          amounts.Amount0.ToBig().String(),
		Amount1:          amounts.Amount1.ToBig().String(),
		Amount0Formatted: position.FormatAmount(amounts.Amount0, st.Decimals0),
		Amount1Formatted: position.FormatAmount(amounts.Amount1, st.Decimals1),
	}, rng, nil
}
