package dex

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type fakeTick struct {
	gross int64
	net   int64
}

// fakePool answers eth_call for one pool and its two tokens.
type fakePool struct {
	address   common.Address
	token0    common.Address
	token1    common.Address
	spacing   int32
	tick      int32
	bitmaps   map[int16]*big.Int
	ticks     map[int32]fakeTick
	bytes32   bool
	calls     map[string]int
	lastBlock *big.Int
}

func (f *fakePool) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.lastBlock = block

	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}
	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		return nil, err
	}

	switch *msg.To {
	case f.address:
		method, err := poolABI.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		f.calls[method.Name]++
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		return f.poolCall(method, args)
	case f.token0, f.token1:
		method, err := stringABI.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		f.calls["erc20."+method.Name]++
		switch method.Name {
		case "decimals":
			if *msg.To == f.token0 {
				return method.Outputs.Pack(uint8(18))
			}
			return method.Outputs.Pack(uint8(6))
		case "symbol":
			if f.bytes32 {
				var sym [32]byte
				copy(sym[:], "MKR")
				return bytes32ABI.Methods["symbol"].Outputs.Pack(sym)
			}
			return method.Outputs.Pack("TKN")
		}
	}
	return nil, fmt.Errorf("unexpected call to %s", msg.To.Hex())
}

func (f *fakePool) poolCall(method *abi.Method, args []interface{}) ([]byte, error) {
	switch method.Name {
	case "token0":
		return method.Outputs.Pack(f.token0)
	case "token1":
		return method.Outputs.Pack(f.token1)
	case "fee":
		return method.Outputs.Pack(big.NewInt(3000))
	case "tickSpacing":
		return method.Outputs.Pack(big.NewInt(int64(f.spacing)))
	case "liquidity":
		return method.Outputs.Pack(big.NewInt(500))
	case "slot0":
		return method.Outputs.Pack(
			new(big.Int).Lsh(big.NewInt(1), 96),
			big.NewInt(int64(f.tick)),
			uint16(0), uint16(1), uint16(1), uint8(0), true,
		)
	case "tickBitmap":
		word := args[0].(int16)
		bitmap, ok := f.bitmaps[word]
		if !ok {
			bitmap = new(big.Int)
		}
		return method.Outputs.Pack(bitmap)
	case "ticks":
		tick := int32(args[0].(*big.Int).Int64())
		ft := f.ticks[tick]
		return method.Outputs.Pack(
			big.NewInt(ft.gross),
			big.NewInt(ft.net),
			new(big.Int), new(big.Int), new(big.Int), new(big.Int),
			uint32(0), ft.gross != 0,
		)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func setBits(bits ...uint) *big.Int {
	out := new(big.Int)
	for _, b := range bits {
		out.SetBit(out, int(b), 1)
	}
	return out
}

func newFakePool() *fakePool {
	// spacing 60: tick -60 is word -1 bit 255, tick 60 is word 0 bit 1,
	// tick 180 is word 0 bit 3, tick 15360 is word 1 bit 0.
	return &fakePool{
		address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		token0:  common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		token1:  common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		spacing: 60,
		tick:    123,
		bitmaps: map[int16]*big.Int{
			-1: setBits(255),
			0:  setBits(1, 3, 5),
			1:  setBits(0),
		},
		ticks: map[int32]fakeTick{
			-60:   {gross: 100, net: 100},
			60:    {gross: 50, net: 50},
			180:   {gross: 150, net: -150},
			15360: {gross: 9, net: -9},
		},
	}
}

func TestSnapshotterFetch(t *testing.T) {
	fake := newFakePool()
	snapper := NewSnapshotter(fake, nil, zap.NewNop())

	snap, err := snapper.Fetch(context.Background(), fake.address, SnapshotOptions{ChainID: 1, WordRadius: 1, BlockNumber: 777})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if snap.TickCurrent == nil || *snap.TickCurrent != 123 || snap.TickSpacing != 60 {
		t.Fatalf("slot0 mismatch: %+v", snap)
	}
	if snap.Liquidity != "500" || snap.SwapFee != 0.003 || snap.BlockNumber != 777 {
		t.Fatalf("pool fields mismatch: %+v", snap)
	}
	if len(snap.Tokens) != 2 || snap.Tokens[0].Decimals != 18 || snap.Tokens[1].Decimals != 6 || snap.Tokens[0].Symbol != "TKN" {
		t.Fatalf("tokens mismatch: %+v", snap.Tokens)
	}

	// Tick 300 (word 0 bit 5) has no liquidity and is skipped.
	want := []int32{-60, 60, 180, 15360}
	if len(snap.Ticks) != len(want) {
		t.Fatalf("ticks mismatch: %+v", snap.Ticks)
	}
	for i, td := range snap.Ticks {
		if int32(td.Index) != want[i] {
			t.Fatalf("tick %d: got %d want %d", i, td.Index, want[i])
		}
	}
	if snap.Ticks[2].LiquidityNet != "-150" || snap.Ticks[2].LiquidityGross != "150" {
		t.Fatalf("tick 180 mismatch: %+v", snap.Ticks[2])
	}
	if fake.calls["tickBitmap"] != 3 {
		t.Fatalf("expected 3 bitmap reads, got %d", fake.calls["tickBitmap"])
	}
	if fake.lastBlock == nil || fake.lastBlock.Uint64() != 777 {
		t.Fatalf("reads were not pinned to block 777")
	}
}

func TestSnapshotterTokenCache(t *testing.T) {
	fake := newFakePool()
	fake.bytes32 = true
	snapper := NewSnapshotter(fake, NewTokenCache(), nil)

	for i := 0; i < 2; i++ {
		snap, err := snapper.Fetch(context.Background(), fake.address, SnapshotOptions{WordRadius: 0})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if snap.Tokens[1].Symbol != "MKR" {
			t.Fatalf("bytes32 symbol mismatch: %q", snap.Tokens[1].Symbol)
		}
		if len(snap.Ticks) != 2 {
			t.Fatalf("radius 0 should only read the current word: %+v", snap.Ticks)
		}
	}
	if fake.calls["erc20.decimals"] != 2 {
		t.Fatalf("token metadata should be cached, decimals calls %d", fake.calls["erc20.decimals"])
	}
}

func TestSnapshotterErrors(t *testing.T) {
	if _, err := NewSnapshotter(nil, nil, nil).Fetch(context.Background(), common.Address{}, SnapshotOptions{}); err == nil {
		t.Fatalf("expected error for nil caller")
	}

	fake := newFakePool()
	if _, err := NewSnapshotter(fake, nil, nil).Fetch(context.Background(), fake.address, SnapshotOptions{WordRadius: -1}); err == nil {
		t.Fatalf("expected error for negative radius")
	}

	fake.spacing = 0
	if _, err := NewSnapshotter(fake, nil, nil).Fetch(context.Background(), fake.address, SnapshotOptions{}); err == nil {
		t.Fatalf("expected error for zero spacing")
	}
}

func TestWordPosition(t *testing.T) {
	cases := []struct {
		tick, spacing int32
		word          int16
		bit           uint8
	}{
		{0, 1, 0, 0},
		{255, 1, 0, 255},
		{256, 1, 1, 0},
		{-1, 1, -1, 255},
		{-256, 1, -1, 0},
		{-257, 1, -2, 255},
		{123, 60, 0, 2},
		{-1, 60, -1, 255},
		{-887272, 1, -3466, 24},
		{887272, 1, 3465, 232},
	}
	for _, tc := range cases {
		word, bit := wordPosition(tc.tick, tc.spacing)
		if word != tc.word || bit != tc.bit {
			t.Fatalf("wordPosition(%d, %d) = (%d, %d), want (%d, %d)", tc.tick, tc.spacing, word, bit, tc.word, tc.bit)
		}
	}
}

func TestTicksInWord(t *testing.T) {
	bitmap, overflow := uint256.FromBig(setBits(0, 1, 255))
	if overflow {
		t.Fatalf("bitmap overflow")
	}
	got := ticksInWord(-1, bitmap, 10)
	want := []int32{-2560, -2550, -10}
	if len(got) != len(want) {
		t.Fatalf("ticks mismatch: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ticks mismatch: %v != %v", got, want)
		}
	}

	if len(ticksInWord(3, new(uint256.Int), 1)) != 0 {
		t.Fatalf("empty word should have no ticks")
	}

	// Every listed tick maps back to its word.
	for _, tick := range ticksInWord(2, bitmap, 60) {
		word, _ := wordPosition(tick, 60)
		if word != 2 {
			t.Fatalf("tick %d maps to word %d", tick, word)
		}
	}
}
