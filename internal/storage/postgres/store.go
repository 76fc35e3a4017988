package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityCurve/internal/density"
	"liquidityCurve/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_snapshots (
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	tick_current INTEGER,
	tick_spacing INTEGER NOT NULL,
	sqrt_price_x96 NUMERIC NOT NULL,
	liquidity NUMERIC NOT NULL,
	swap_fee DOUBLE PRECISION NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address, block_number)
);

CREATE TABLE IF NOT EXISTS curve_points (
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	inverted BOOLEAN NOT NULL,
	tick INTEGER NOT NULL,
	liquidity_active NUMERIC NOT NULL,
	liquidity_net NUMERIC NOT NULL,
	price0 NUMERIC NOT NULL,
	PRIMARY KEY (chain_id, pool_address, block_number, inverted, tick)
);

CREATE TABLE IF NOT EXISTS sync_state (
	name TEXT PRIMARY KEY,
	last_processed_block BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for snapshots, curves and sync progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveSnapshot inserts or replaces the snapshot of a pool at its block.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	liquidity := snap.Liquidity
	if liquidity == "" {
		liquidity = "0"
	}

	var tickCurrent *int32
	if snap.TickCurrent != nil {
		v := *snap.TickCurrent
		tickCurrent = &v
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (
			chain_id, pool_address, block_number, tick_current, tick_spacing,
			sqrt_price_x96, liquidity, swap_fee, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (chain_id, pool_address, block_number)
		DO UPDATE SET
			tick_current = EXCLUDED.tick_current,
			tick_spacing = EXCLUDED.tick_spacing,
			sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
			liquidity = EXCLUDED.liquidity,
			swap_fee = EXCLUDED.swap_fee,
			payload = EXCLUDED.payload,
			created_at = now()
	`,
		int64(snap.ChainID),
		strings.ToLower(snap.Pool),
		int64(snap.BlockNumber),
		tickCurrent,
		snap.TickSpacing,
		snap.SqrtPriceX96,
		liquidity,
		snap.SwapFee,
		string(payload),
	)
	return err
}

// LatestSnapshot returns the most recent stored snapshot of a pool.
func (s *Store) LatestSnapshot(ctx context.Context, chainID uint64, pool string) (model.PoolSnapshot, bool, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `
		SELECT payload FROM pool_snapshots
		WHERE chain_id=$1 AND pool_address=$2
		ORDER BY block_number DESC
		LIMIT 1
	`, int64(chainID), strings.ToLower(pool))
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, err
	}

	var snap model.PoolSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// SaveCurve replaces the stored curve of a pool at block in one batch.
func (s *Store) SaveCurve(ctx context.Context, chainID uint64, pool string, block uint64, inverted bool, ticks []density.TickProcessed) error {
	pool = strings.ToLower(pool)
	batch := &pgx.Batch{}
	batch.Queue(`
		DELETE FROM curve_points
		WHERE chain_id=$1 AND pool_address=$2 AND block_number=$3 AND inverted=$4
	`, int64(chainID), pool, int64(block), inverted)

	for _, t := range ticks {
		batch.Queue(`
			INSERT INTO curve_points (
				chain_id, pool_address, block_number, inverted, tick,
				liquidity_active, liquidity_net, price0
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (chain_id, pool_address, block_number, inverted, tick)
			DO UPDATE SET
				liquidity_active = EXCLUDED.liquidity_active,
				liquidity_net = EXCLUDED.liquidity_net,
				price0 = EXCLUDED.price0
		`,
			int64(chainID),
			pool,
			int64(block),
			inverted,
			t.Tick,
			bigString(t.LiquidityActive),
			bigString(t.LiquidityNet),
			t.Price0,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM sync_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
