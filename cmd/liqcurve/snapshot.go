package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/chain"
	"liquidityCurve/internal/config"
	"liquidityCurve/internal/dex"
	"liquidityCurve/internal/indexer"
	"liquidityCurve/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Pools) == 0 {
		return fmt.Errorf("pool address is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	block := cfg.Block
	if block == 0 {
		// Pin every pool to the same block.
		if block, err = chainClient.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
	}

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

	snapshotter := dex.NewSnapshotter(chainClient, dex.NewTokenCache(), logger)
	for _, raw := range cfg.Pools {
		address, err := indexer.ParseAddress(raw)
		if err != nil {
			return err
		}

		snap, err := snapshotter.Fetch(ctx, address, dex.SnapshotOptions{
			ChainID:     chainID,
			WordRadius:  cfg.WordRadius,
			BlockNumber: block,
		})
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", address.Hex(), err)
		}

		out := snapshotPath(cfg.Out, strings.ToLower(address.Hex()), len(cfg.Pools))
		if err := writeJSON(out, snap); err != nil {
			return err
		}
		if store != nil {
			if err := store.SaveSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
		}

		logger.Info("snapshot written",
			zap.String("pool", snap.Pool),
			zap.Uint64("block", snap.BlockNumber),
			zap.Int("ticks", len(snap.Ticks)),
			zap.String("out", out),
			zap.Bool("stored", store != nil),
		)
	}

	return nil
}
