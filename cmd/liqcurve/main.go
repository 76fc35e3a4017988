package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "liqcurve",
		Short:        "Concentrated liquidity tick math and density curves",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read pool state and initialized ticks over RPC",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("rpc", "", "RPC URL")
	snapshotCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	snapshotCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	snapshotCmd.Flags().Int("word-radius", 4, "tick bitmap words scanned on each side of the current tick")
	snapshotCmd.Flags().String("out", "./data/snapshot.json", "output snapshot path")
	snapshotCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for storing snapshots")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Index Mint and Burn events of a pool",
		RunE:  runSync,
	}

	syncCmd.Flags().String("rpc", "", "RPC URL")
	syncCmd.Flags().String("pool", "", "pool address")
	syncCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	syncCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	syncCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	syncCmd.Flags().String("out", "./data/liquidity_events.jsonl", "output JSONL path")
	syncCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	syncCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	syncCmd.Flags().String("pg-dsn", "", "optional Postgres DSN, keeps sync progress in the database")
	syncCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(syncCmd)

	curveCmd := &cobra.Command{
		Use:   "curve",
		Short: "Build the liquidity density curve of a pool snapshot",
		RunE:  runCurve,
	}

	curveCmd.Flags().String("in", "", "input snapshot JSON (defaults to the latest stored snapshot)")
	curveCmd.Flags().String("events", "", "optional liquidity events JSONL used to rebuild the ticks")
	curveCmd.Flags().String("pool", "", "pool address, used with --pg-dsn or --events")
	curveCmd.Flags().Uint64("chain-id", 0, "chain id, used with --pg-dsn")
	curveCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	curveCmd.Flags().Bool("invert", false, "price token1 in token0")
	curveCmd.Flags().Bool("raw", false, "write every processed tick instead of chart points")
	curveCmd.Flags().String("out", "./data/curve.json", "output curve path")
	curveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(curveCmd)

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Compute token amounts of a liquidity position",
		RunE:  runPosition,
	}

	positionCmd.Flags().String("in", "", "input snapshot JSON")
	positionCmd.Flags().Int32("tick-lower", 0, "lower tick")
	positionCmd.Flags().Int32("tick-upper", 0, "upper tick")
	positionCmd.Flags().String("price-lower", "", "lower price, used when --tick-lower is not set")
	positionCmd.Flags().String("price-upper", "", "upper price, used when --tick-upper is not set")
	positionCmd.Flags().String("liquidity", "", "position liquidity")
	positionCmd.Flags().Bool("invert", false, "prices are token1 in token0")
	positionCmd.Flags().Bool("mint", false, "round up to the amounts needed to mint")
	positionCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(positionCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Convert between ticks and prices",
		RunE:  runPrice,
	}

	priceCmd.Flags().Int32("tick", 0, "tick to price")
	priceCmd.Flags().String("price", "", "price to convert to a tick")
	priceCmd.Flags().Int("decimals0", 18, "token0 decimals")
	priceCmd.Flags().Int("decimals1", 18, "token1 decimals")
	priceCmd.Flags().Int32("spacing", 0, "optional tick spacing for the nearest usable tick")
	priceCmd.Flags().Bool("invert", false, "price token1 in token0")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
