package config

import (
	"github.com/spf13/pflag"
)

// CurveConfig holds configuration for the curve command.
type CurveConfig struct {
	In       string
	Events   string
	Pool     string
	ChainID  uint64
	PGDSN    string
	Invert   bool
	Raw      bool
	Out      string
	LogLevel string
}

// LoadCurve merges config file, environment variables, and flags into CurveConfig.
func LoadCurve(cfgFile string, flags *pflag.FlagSet) (CurveConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out": "./data/curve.json",
	})
	if err != nil {
		return CurveConfig{}, err
	}

	return CurveConfig{
		In:       v.GetString("in"),
		Events:   v.GetString("events"),
		Pool:     v.GetString("pool"),
		ChainID:  v.GetUint64("chain-id"),
		PGDSN:    v.GetString("pg-dsn"),
		Invert:   v.GetBool("invert"),
		Raw:      v.GetBool("raw"),
		Out:      v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// PositionConfig holds configuration for the position command. A bound is
// given either as a tick or as a price; the tick wins when both are set.
type PositionConfig struct {
	In         string
	TickLower  *int32
	TickUpper  *int32
	PriceLower string
	PriceUpper string
	Liquidity  string
	Invert     bool
	Mint       bool
	LogLevel   string
}

// LoadPosition merges config file, environment variables, and flags into PositionConfig.
func LoadPosition(cfgFile string, flags *pflag.FlagSet) (PositionConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return PositionConfig{}, err
	}

	return PositionConfig{
		In:         v.GetString("in"),
		TickLower:  optionalInt32(v, "tick-lower"),
		TickUpper:  optionalInt32(v, "tick-upper"),
		PriceLower: v.GetString("price-lower"),
		PriceUpper: v.GetString("price-upper"),
		Liquidity:  v.GetString("liquidity"),
		Invert:     v.GetBool("invert"),
		Mint:       v.GetBool("mint"),
		LogLevel:   v.GetString("log-level"),
	}, nil
}

// PriceConfig holds configuration for the price command.
type PriceConfig struct {
	Tick      *int32
	Price     string
	Decimals0 uint8
	Decimals1 uint8
	Spacing   int32
	Invert    bool
	LogLevel  string
}

// LoadPrice merges config file, environment variables, and flags into PriceConfig.
func LoadPrice(cfgFile string, flags *pflag.FlagSet) (PriceConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"decimals0": 18,
		"decimals1": 18,
	})
	if err != nil {
		return PriceConfig{}, err
	}

	decimals0, err := getUint8(v, "decimals0")
	if err != nil {
		return PriceConfig{}, err
	}
	decimals1, err := getUint8(v, "decimals1")
	if err != nil {
		return PriceConfig{}, err
	}

	return PriceConfig{
		Tick:      optionalInt32(v, "tick"),
		Price:     v.GetString("price"),
		Decimals0: decimals0,
		Decimals1: decimals1,
		Spacing:   v.GetInt32("spacing"),
		Invert:    v.GetBool("invert"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
