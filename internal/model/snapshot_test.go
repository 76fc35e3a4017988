package model

import (
	"encoding/json"
	"testing"
)

func TestPoolSnapshotDecode(t *testing.T) {
	raw := `{
		"tickCurrent": 123,
		"tickSpacing": 60,
		"liquidity": "500",
		"ticks": [
			{"index": -60, "liquidityGross": "100", "liquidityNet": "100"},
			{"index": "60", "liquidityGross": "50", "liquidityNet": "50"}
		],
		"tokens": [{"decimals": 18}, {"decimals": 6}],
		"swapFee": 0.003
	}`
	var snap PoolSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if snap.TickCurrent == nil || *snap.TickCurrent != 123 {
		t.Fatalf("unexpected tickCurrent: %v", snap.TickCurrent)
	}
	if len(snap.Ticks) != 2 || snap.Ticks[0].Index != -60 || snap.Ticks[1].Index != 60 {
		t.Fatalf("unexpected ticks: %+v", snap.Ticks)
	}
	if snap.Tokens[1].Decimals != 6 || snap.SwapFee != 0.003 {
		t.Fatalf("unexpected tokens or fee: %+v %v", snap.Tokens, snap.SwapFee)
	}
}

func TestPoolSnapshotMissingTickCurrent(t *testing.T) {
	var snap PoolSnapshot
	if err := json.Unmarshal([]byte(`{"tickSpacing": 10, "liquidity": "0"}`), &snap); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if snap.TickCurrent != nil {
		t.Fatalf("expected nil tickCurrent, got %d", *snap.TickCurrent)
	}

	out, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["tickCurrent"]; ok {
		t.Fatalf("tickCurrent should be omitted when absent")
	}
}

func TestTickIndexRejectsOutOfRange(t *testing.T) {
	var idx TickIndex
	for _, input := range []string{`"abc"`, `" 180"`, `1.5`, `4294967296`} {
		if err := json.Unmarshal([]byte(input), &idx); err == nil {
			t.Fatalf("expected error for %s", input)
		}
	}
}

func TestLiquidityEventKey(t *testing.T) {
	ev := LiquidityEvent{TxHash: "0xabc", LogIndex: 7}
	if ev.Key() != "0xabc:7" {
		t.Fatalf("unexpected key %q", ev.Key())
	}
}
