package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityCurve/internal/model"
)

func TestLiquidityDecoderMintBurn(t *testing.T) {
	poolABI, err := PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewLiquidityDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	sender := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	mintData, err := poolABI.Events["Mint"].Inputs.NonIndexed().Pack(sender, big.NewInt(5000), big.NewInt(100), big.NewInt(200))
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}
	mintLog := buildLog(pool, poolABI.Events["Mint"].ID, mintData, topicFromAddress(owner), topicFromInt24(-120), topicFromInt24(120))

	if !decoder.CanDecode(mintLog) {
		t.Fatalf("mint log should be decodable")
	}
	mint, err := decoder.Decode(56, mintLog)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	if mint.Kind != model.EventMint || mint.TickLower != -120 || mint.TickUpper != 120 {
		t.Fatalf("mint mismatch: %+v", mint)
	}
	if mint.Amount != "5000" || mint.Amount0 != "100" || mint.Amount1 != "200" {
		t.Fatalf("mint amounts mismatch: %+v", mint)
	}
	if mint.Owner != owner.Hex() || mint.Pool != pool.Hex() || mint.ChainID != 56 {
		t.Fatalf("mint identity mismatch: %+v", mint)
	}
	if mint.BlockNumber != 12345 || mint.LogIndex != 1 {
		t.Fatalf("mint position mismatch: %+v", mint)
	}

	burnData, err := poolABI.Events["Burn"].Inputs.NonIndexed().Pack(big.NewInt(7000), big.NewInt(300), big.NewInt(400))
	if err != nil {
		t.Fatalf("pack burn: %v", err)
	}
	burnLog := buildLog(pool, poolABI.Events["Burn"].ID, burnData, topicFromAddress(owner), topicFromInt24(-887220), topicFromInt24(887220))

	burn, err := decoder.Decode(56, burnLog)
	if err != nil {
		t.Fatalf("decode burn: %v", err)
	}
	if burn.Kind != model.EventBurn || burn.Amount != "7000" {
		t.Fatalf("burn mismatch: %+v", burn)
	}
	if burn.TickLower != -887220 || burn.TickUpper != 887220 {
		t.Fatalf("burn ticks mismatch: %+v", burn)
	}
}

func TestLiquidityDecoderRejects(t *testing.T) {
	decoder, err := NewLiquidityDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")

	unknown := buildLog(pool, common.HexToHash("0x01"), nil)
	if decoder.CanDecode(unknown) {
		t.Fatalf("unknown topic should not be decodable")
	}
	if _, err := decoder.Decode(1, unknown); err == nil {
		t.Fatalf("expected error for unknown topic")
	}
	if _, err := decoder.Decode(1, types.Log{}); err == nil {
		t.Fatalf("expected error for missing topics")
	}

	short := buildLog(pool, decoder.Topics()[0], nil, topicFromInt24(1))
	if _, err := decoder.Decode(1, short); err == nil {
		t.Fatalf("expected error for missing indexed topics")
	}
}

func buildLog(pool common.Address, topic0 common.Hash, data []byte, indexed ...common.Hash) types.Log {
	return types.Log{
		Address:     pool,
		Topics:      append([]common.Hash{topic0}, indexed...),
		Data:        data,
		BlockNumber: 12345,
		TxHash:      common.HexToHash("0xdef"),
		Index:       1,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromInt24(value int32) common.Hash {
	v := big.NewInt(int64(value))
	if value < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(v)
}
