package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/tickmath"
)

// DefaultWordRadius covers 256*4 spacings either side of the current tick.
const DefaultWordRadius = 4

// ContractCaller performs eth_call. *chain.Client implements it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// SnapshotOptions controls how much of the tick bitmap is read.
type SnapshotOptions struct {
	ChainID uint64
	// WordRadius is the number of bitmap words read on each side of the
	// word holding the current tick.
	WordRadius int
	// BlockNumber pins every read to one block. Zero reads latest.
	BlockNumber uint64
}

// TokenCache caches ERC-20 metadata by address.
type TokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenInfo
}

func NewTokenCache() *TokenCache {
	return &TokenCache{data: make(map[common.Address]model.TokenInfo)}
}

func (c *TokenCache) Get(address common.Address) (model.TokenInfo, bool) {
	c.mu.RLock()
	info, ok := c.data[address]
	c.mu.RUnlock()
	return info, ok
}

func (c *TokenCache) Set(address common.Address, info model.TokenInfo) {
	c.mu.Lock()
	c.data[address] = info
	c.mu.Unlock()
}

// Snapshotter reads pool state over eth_call and assembles a PoolSnapshot.
type Snapshotter struct {
	caller ContractCaller
	tokens *TokenCache
	logger *zap.Logger
}

func NewSnapshotter(caller ContractCaller, tokens *TokenCache, logger *zap.Logger) *Snapshotter {
	if tokens == nil {
		tokens = NewTokenCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{caller: caller, tokens: tokens, logger: logger}
}

// Fetch reads pool metadata, slot0, in-range liquidity and every
// initialized tick in the scanned bitmap words. Ticks come out sorted.
func (s *Snapshotter) Fetch(ctx context.Context, pool common.Address, opts SnapshotOptions) (model.PoolSnapshot, error) {
	if s.caller == nil {
		return model.PoolSnapshot{}, fmt.Errorf("contract caller is nil")
	}
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}
	if opts.WordRadius < 0 {
		return model.PoolSnapshot{}, fmt.Errorf("word radius must be non-negative")
	}

	var block *big.Int
	if opts.BlockNumber > 0 {
		block = new(big.Int).SetUint64(opts.BlockNumber)
	}
	call := func(method string, args ...interface{}) ([]interface{}, error) {
		return callMethod(ctx, s.caller, pool, parsed, block, method, args...)
	}

	values, err := call("token0")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("token0: %w", err)
	}
	if values, err = call("token1"); err != nil {
		return model.PoolSnapshot{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("token1: %w", err)
	}

	if values, err = call("fee"); err != nil {
		return model.PoolSnapshot{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("fee: %w", err)
	}

	if values, err = call("tickSpacing"); err != nil {
		return model.PoolSnapshot{}, err
	}
	spacing, err := asInt24(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("tick spacing: %w", err)
	}
	if spacing <= 0 {
		return model.PoolSnapshot{}, fmt.Errorf("tick spacing %d is not positive", spacing)
	}

	if values, err = call("slot0"); err != nil {
		return model.PoolSnapshot{}, err
	}
	if len(values) < 2 {
		return model.PoolSnapshot{}, fmt.Errorf("slot0: unexpected outputs %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tick, err := asInt24(values[1])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("slot0 tick: %w", err)
	}

	if values, err = call("liquidity"); err != nil {
		return model.PoolSnapshot{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("liquidity: %w", err)
	}

	info0, err := s.token(ctx, token0, block)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("token0 %s: %w", token0.Hex(), err)
	}
	info1, err := s.token(ctx, token1, block)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("token1 %s: %w", token1.Hex(), err)
	}

	ticks, words, err := s.scanTicks(call, tick, spacing, opts.WordRadius)
	if err != nil {
		return model.PoolSnapshot{}, err
	}

	s.logger.Info("pool snapshot",
		zap.String("pool", pool.Hex()),
		zap.Uint64("block", opts.BlockNumber),
		zap.Int32("tick", tick),
		zap.Int32("tick_spacing", spacing),
		zap.Int("words", words),
		zap.Int("ticks", len(ticks)),
	)

	return model.PoolSnapshot{
		Pool:         pool.Hex(),
		ChainID:      opts.ChainID,
		BlockNumber:  opts.BlockNumber,
		SqrtPriceX96: sqrtPrice.String(),
		TickCurrent:  &tick,
		TickSpacing:  spacing,
		Liquidity:    liquidity.String(),
		Ticks:        ticks,
		Tokens:       []model.TokenInfo{info0, info1},
		SwapFee:      float64(fee.Uint64()) / 1e6,
	}, nil
}

type callFunc func(method string, args ...interface{}) ([]interface{}, error)

func (s *Snapshotter) scanTicks(call callFunc, tick, spacing int32, radius int) ([]model.TickData, int, error) {
	center, _ := wordPosition(tick, spacing)
	minWord, _ := wordPosition(tickmath.MinTick, spacing)
	maxWord, _ := wordPosition(tickmath.MaxTick, spacing)

	lo := int(center) - radius
	if lo < int(minWord) {
		lo = int(minWord)
	}
	hi := int(center) + radius
	if hi > int(maxWord) {
		hi = int(maxWord)
	}

	ticks := make([]model.TickData, 0)
	for w := lo; w <= hi; w++ {
		values, err := call("tickBitmap", int16(w))
		if err != nil {
			return nil, 0, err
		}
		raw, err := asBigInt(values[0])
		if err != nil {
			return nil, 0, fmt.Errorf("tick bitmap %d: %w", w, err)
		}
		bitmap, overflow := uint256.FromBig(raw)
		if overflow {
			return nil, 0, fmt.Errorf("tick bitmap %d overflows 256 bits", w)
		}
		if bitmap.IsZero() {
			continue
		}

		for _, t := range ticksInWord(int16(w), bitmap, spacing) {
			values, err := call("ticks", big.NewInt(int64(t)))
			if err != nil {
				return nil, 0, err
			}
			if len(values) < 2 {
				return nil, 0, fmt.Errorf("ticks(%d): unexpected outputs %d", t, len(values))
			}
			gross, err := asBigInt(values[0])
			if err != nil {
				return nil, 0, fmt.Errorf("ticks(%d) gross: %w", t, err)
			}
			net, err := asBigInt(values[1])
			if err != nil {
				return nil, 0, fmt.Errorf("ticks(%d) net: %w", t, err)
			}
			if gross.Sign() == 0 {
				s.logger.Debug("bitmap tick without liquidity", zap.Int32("tick", t))
				continue
			}
			ticks = append(ticks, model.TickData{
				Index:          model.TickIndex(t),
				LiquidityGross: gross.String(),
				LiquidityNet:   net.String(),
			})
		}
	}
	return ticks, hi - lo + 1, nil
}

func (s *Snapshotter) token(ctx context.Context, token common.Address, block *big.Int) (model.TokenInfo, error) {
	if info, ok := s.tokens.Get(token); ok {
		return info, nil
	}

	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		return model.TokenInfo{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := callMethod(ctx, s.caller, token, stringABI, block, "decimals")
	if err != nil {
		return model.TokenInfo{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return model.TokenInfo{}, fmt.Errorf("decimals: %w", err)
	}
	info := model.TokenInfo{Address: token.Hex(), Decimals: decimals}

	if values, err := callMethod(ctx, s.caller, token, stringABI, block, "symbol"); err == nil {
		info.Symbol, _ = values[0].(string)
	} else if values, err := callMethod(ctx, s.caller, token, bytes32ABI, block, "symbol"); err == nil {
		info.Symbol, _ = bytes32ToString(values[0])
	} else {
		s.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	s.tokens.Set(token, info)
	return info, nil
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no outputs", method)
	}
	return values, nil
}

// wordPosition splits a tick into its bitmap word and bit, after dividing
// by spacing with rounding toward negative infinity.
func wordPosition(tick, spacing int32) (int16, uint8) {
	compressed := tick / spacing
	if tick < 0 && tick%spacing != 0 {
		compressed--
	}
	return int16(compressed >> 8), uint8(compressed & 0xff)
}

// ticksInWord lists the ticks whose bits are set in bitmap, ascending.
func ticksInWord(word int16, bitmap *uint256.Int, spacing int32) []int32 {
	var out []int32
	rest := new(uint256.Int).Set(bitmap)
	for bit := int32(0); bit < 256 && !rest.IsZero(); bit++ {
		if rest.Uint64()&1 == 1 {
			out = append(out, (int32(word)*256+bit)*spacing)
		}
		rest.Rsh(rest, 1)
	}
	return out
}
