package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityCurve/internal/dex"
	"liquidityCurve/internal/model"
)

type fakeSource struct {
	latest   uint64
	logs     []types.Log
	failures int
	queries  []BlockRange
}

func (f *fakeSource) ChainID(context.Context) (uint64, error) { return 56, nil }

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, _ common.Address, _ []common.Hash) ([]types.Log, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rpc unavailable")
	}
	f.queries = append(f.queries, BlockRange{From: from, To: to})
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

type memorySink struct {
	events []model.LiquidityEvent
}

func (m *memorySink) PutEvents(events []model.LiquidityEvent) error {
	m.events = append(m.events, events...)
	return nil
}

var testPool = common.HexToAddress("0x1111111111111111111111111111111111111111")

func mintLog(t *testing.T, block uint64, index uint, lower, upper int32, amount int64) types.Log {
	t.Helper()
	poolABI, err := dex.PoolABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	event := poolABI.Events["Mint"]
	data, err := event.Inputs.NonIndexed().Pack(common.Address{}, big.NewInt(amount), big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}
	return types.Log{
		Address:     testPool,
		Topics:      []common.Hash{event.ID, common.BytesToHash(testPool.Bytes()), int24Topic(lower), int24Topic(upper)},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       index,
	}
}

func int24Topic(v int32) common.Hash {
	b := big.NewInt(int64(v))
	if v < 0 {
		b.Add(b, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(b)
}

func TestRunnerSyncsAndResumes(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	dup := mintLog(t, 105, 0, -60, 60, 10)
	removed := mintLog(t, 106, 1, -60, 60, 99)
	removed.Removed = true
	source := &fakeSource{
		latest: 110,
		logs: []types.Log{
			mintLog(t, 101, 0, -120, 120, 5),
			dup,
			dup,
			removed,
			{Address: testPool, Topics: []common.Hash{common.HexToHash("0x01")}, BlockNumber: 107},
		},
		failures: 2,
	}
	sink := &memorySink{}

	cfg := RunConfig{
		Pool:              testPool,
		FromBlock:         100,
		ToBlock:           107,
		BatchSize:         4,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
		MaxRetries:        3,
		RetryBackoff:      time.Millisecond,
	}
	runner, err := NewRunner(cfg, source, sink, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %+v", sink.events)
	}
	if sink.events[0].TickLower != -120 || sink.events[0].Amount != "5" || sink.events[0].ChainID != 56 {
		t.Fatalf("first event mismatch: %+v", sink.events[0])
	}
	if sink.events[1].BlockNumber != 105 {
		t.Fatalf("second event mismatch: %+v", sink.events[1])
	}

	last, ok, err := NewCheckpointStore(checkpoint, testPool.Hex(), true).Load(context.Background())
	if err != nil || !ok || last != 107 {
		t.Fatalf("checkpoint mismatch: %d ok=%v err=%v", last, ok, err)
	}

	// Second run continues from the checkpoint up to latest.
	cfg.ToBlock = 0
	source.queries = nil
	runner, err = NewRunner(cfg, source, sink, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(source.queries) != 1 || source.queries[0] != (BlockRange{From: 108, To: 110}) {
		t.Fatalf("resume queries mismatch: %+v", source.queries)
	}
}

func TestRunnerGivesUpAfterRetries(t *testing.T) {
	source := &fakeSource{latest: 10, failures: 10}
	runner, err := NewRunner(RunConfig{Pool: testPool, FromBlock: 1, ToBlock: 2, BatchSize: 10, MaxRetries: 1, RetryBackoff: time.Millisecond}, source, &memorySink{}, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error after retries")
	}
}

func TestRunnerValidation(t *testing.T) {
	cases := []RunConfig{
		{Pool: testPool, BatchSize: 0},
		{BatchSize: 10},
	}
	for _, cfg := range cases {
		runner, err := NewRunner(cfg, &fakeSource{}, &memorySink{}, nil)
		if err != nil {
			t.Fatalf("new runner: %v", err)
		}
		if err := runner.Run(context.Background()); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}

func TestCheckpointRejectsOtherPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	ctx := context.Background()
	if err := NewCheckpointStore(path, "0xabc", true).Save(ctx, 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, _, err := NewCheckpointStore(path, "0xdef", true).Load(ctx); err == nil {
		t.Fatalf("expected error for foreign checkpoint")
	}
	cp, ok, err := NewCheckpointStore(path, "0xABC", true).Read()
	if err != nil || !ok || cp.LastProcessedBlock != 42 || cp.Pool != "0xabc" {
		t.Fatalf("load mismatch: %+v ok=%v err=%v", cp, ok, err)
	}

	last, ok, err := NewCheckpointStore(path, "0xabc", false).Load(ctx)
	if err != nil || ok {
		t.Fatalf("disabled store should not load: %d ok=%v err=%v", last, ok, err)
	}
}

type memoryProgress struct {
	last  uint64
	saves int
}

func (m *memoryProgress) Load(context.Context) (uint64, bool, error) {
	return m.last, m.last > 0, nil
}

func (m *memoryProgress) Save(_ context.Context, block uint64) error {
	m.last = block
	m.saves++
	return nil
}

func TestRunnerCustomProgress(t *testing.T) {
	progress := &memoryProgress{last: 103}
	source := &fakeSource{latest: 120}
	cfg := RunConfig{Pool: testPool, FromBlock: 100, ToBlock: 109, BatchSize: 3, Progress: progress}
	runner, err := NewRunner(cfg, source, &memorySink{}, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if progress.last != 109 || progress.saves != 2 {
		t.Fatalf("progress mismatch: %+v", progress)
	}
	if source.queries[0] != (BlockRange{From: 104, To: 106}) {
		t.Fatalf("first query mismatch: %+v", source.queries)
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress(" 0x1111111111111111111111111111111111111111 "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, input := range []string{"", "0x123", "not-an-address"} {
		if _, err := ParseAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
