package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"liquidityCurve/internal/model"
)

func TestJSONLStorageAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	store := NewJSONLStorage(path)

	first := []model.LiquidityEvent{
		{Kind: model.EventMint, TickLower: -60, TickUpper: 60, Amount: "100", BlockNumber: 10, TxHash: "0x01", LogIndex: 0},
	}
	second := []model.LiquidityEvent{
		{Kind: model.EventBurn, TickLower: -60, TickUpper: 60, Amount: "40", BlockNumber: 12, TxHash: "0x02", LogIndex: 3},
	}

	if err := store.PutEvents(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.PutEvents(nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}
	if err := store.PutEvents(second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := append(first, second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events mismatch: %+v != %+v", got, want)
	}
}

func TestReadEventsErrors(t *testing.T) {
	if _, err := ReadEvents(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"kind\":\"mint\"}\n\nnot json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadEvents(path); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}
