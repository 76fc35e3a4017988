package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/config"
	"liquidityCurve/internal/density"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/pool"
	"liquidityCurve/internal/storage"
	"liquidityCurve/internal/storage/postgres"
)

func runCurve(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCurve(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" && cfg.PGDSN == "" {
		return fmt.Errorf("input snapshot or pg dsn is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *postgres.Store
	if cfg.PGDSN != "" {
		if store, err = postgres.NewStore(ctx, cfg.PGDSN); err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	snap, err := loadCurveSnapshot(ctx, cfg, store)
	if err != nil {
		return err
	}

	st, err := pool.Parse(snap)
	if err != nil {
		return err
	}

	if cfg.Events != "" {
		if st, err = replayTicks(cfg, snap, st); err != nil {
			return err
		}
	}

	ticks, err := density.Walk(st, cfg.Invert)
	if err != nil {
		return err
	}

	var output interface{} = ticks
	points := 0
	if !cfg.Raw {
		chart, err := density.Chart(ticks)
		if err != nil {
			return err
		}
		output = chart
		points = len(chart)
	} else {
		points = len(ticks)
	}
	if err := writeJSON(cfg.Out, output); err != nil {
		return err
	}

	if store != nil {
		if err := store.SaveCurve(ctx, snap.ChainID, snap.Pool, snap.BlockNumber, cfg.Invert, ticks); err != nil {
			return fmt.Errorf("save curve: %w", err)
		}
	}

	logger.Info("curve written",
		zap.String("pool", snap.Pool),
		zap.Uint64("block", snap.BlockNumber),
		zap.Int("ticks", len(st.Ticks)),
		zap.Int("points", points),
		zap.Bool("invert", cfg.Invert),
		zap.String("out", cfg.Out),
	)
	return nil
}

func loadCurveSnapshot(ctx context.Context, cfg config.CurveConfig, store *postgres.Store) (model.PoolSnapshot, error) {
	if cfg.In != "" {
		return readSnapshot(cfg.In)
	}
	if cfg.Pool == "" {
		return model.PoolSnapshot{}, fmt.Errorf("pool address is required to load a stored snapshot")
	}
	snap, ok, err := store.LatestSnapshot(ctx, cfg.ChainID, cfg.Pool)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("no stored snapshot for pool %s on chain %d", cfg.Pool, cfg.ChainID)
	}
	return snap, nil
}

// replayTicks swaps the snapshot's ticks for the ones rebuilt from indexed
// events up to the snapshot block.
func replayTicks(cfg config.CurveConfig, snap model.PoolSnapshot, st pool.State) (pool.State, error) {
	events, err := storage.ReadEvents(cfg.Events)
	if err != nil {
		return pool.State{}, err
	}
	address := cfg.Pool
	if address == "" {
		address = snap.Pool
	}
	book, err := pool.Replay(events, address, snap.BlockNumber)
	if err != nil {
		return pool.State{}, err
	}

	st = st.WithTicks(book.Entries())
	if st.TickCurrent != nil {
		st.Liquidity = book.ActiveLiquidity(*st.TickCurrent)
	}
	return st, nil
}
