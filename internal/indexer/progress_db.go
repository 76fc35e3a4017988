package indexer

import (
	"context"
	"fmt"
	"strings"

	"liquidityCurve/internal/storage/postgres"
)

// DBProgress keeps sync progress in the Postgres sync_state table.
type DBProgress struct {
	Store *postgres.Store
	Name  string
}

// SyncStateName is the sync_state key for a pool.
func SyncStateName(chainID uint64, pool string) string {
	return fmt.Sprintf("liquidity:%d:%s", chainID, strings.ToLower(pool))
}

func (p *DBProgress) Load(ctx context.Context) (uint64, bool, error) {
	if p == nil || p.Store == nil {
		return 0, false, nil
	}
	return p.Store.LoadState(ctx, p.Name)
}

func (p *DBProgress) Save(ctx context.Context, block uint64) error {
	if p == nil || p.Store == nil {
		return nil
	}
	return p.Store.SaveState(ctx, p.Name, block)
}
