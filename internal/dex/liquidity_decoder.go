package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityCurve/internal/model"
)

// LiquidityDecoder turns pool Mint and Burn logs into LiquidityEvents.
type LiquidityDecoder struct {
	poolABI abi.ABI
	kinds   map[common.Hash]string
}

func NewLiquidityDecoder() (*LiquidityDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return &LiquidityDecoder{
		poolABI: parsed,
		kinds: map[common.Hash]string{
			parsed.Events["Mint"].ID: model.EventMint,
			parsed.Events["Burn"].ID: model.EventBurn,
		},
	}, nil
}

// Topics returns the topic0 values to filter logs by.
func (d *LiquidityDecoder) Topics() []common.Hash {
	return []common.Hash{d.poolABI.Events["Mint"].ID, d.poolABI.Events["Burn"].ID}
}

func (d *LiquidityDecoder) CanDecode(log types.Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	_, ok := d.kinds[log.Topics[0]]
	return ok
}

// Decode parses log. chainID is copied onto the event.
func (d *LiquidityDecoder) Decode(chainID uint64, log types.Log) (model.LiquidityEvent, error) {
	if len(log.Topics) == 0 {
		return model.LiquidityEvent{}, fmt.Errorf("missing topics")
	}
	kind, ok := d.kinds[log.Topics[0]]
	if !ok {
		return model.LiquidityEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}
	event := d.poolABI.Events["Mint"]
	if kind == model.EventBurn {
		event = d.poolABI.Events["Burn"]
	}

	indexedArgs := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexedArgs)+1 {
		return model.LiquidityEvent{}, fmt.Errorf("%s: expected %d topics, got %d", event.Name, len(indexedArgs)+1, len(log.Topics))
	}
	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArgs, log.Topics[1:]); err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("%s: parse topics: %w", event.Name, err)
	}

	values := make(map[string]interface{})
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("%s: unpack data: %w", event.Name, err)
	}

	out := model.LiquidityEvent{
		ChainID:     chainID,
		Pool:        log.Address.Hex(),
		Kind:        kind,
		Owner:       indexed.Owner.Hex(),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Removed:     log.Removed,
	}

	var err error
	if out.TickLower, err = asInt24(indexed.TickLower); err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("%s tickLower: %w", event.Name, err)
	}
	if out.TickUpper, err = asInt24(indexed.TickUpper); err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("%s tickUpper: %w", event.Name, err)
	}

	amounts := []struct {
		key string
		dst *string
	}{
		{"amount", &out.Amount},
		{"amount0", &out.Amount0},
		{"amount1", &out.Amount1},
	}
	for _, a := range amounts {
		v, err := asBigInt(values[a.key])
		if err != nil {
			return model.LiquidityEvent{}, fmt.Errorf("%s %s: %w", event.Name, a.key, err)
		}
		*a.dst = v.String()
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
