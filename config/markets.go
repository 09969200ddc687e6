package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnitRule selects how a fetched price maps to the market's major currency unit.
type UnitRule string

const (
	// UnitNative uses the fetched price as-is.
	UnitNative UnitRule = "native"
	// UnitMinor divides the fetched price by 100 (e.g. pence to pounds).
	UnitMinor UnitRule = "minor"
)

// Market describes one tracked market index: which unit the upstream quotes
// it in, and how values are displayed.
type Market struct {
	Name            string   `yaml:"name"`
	Unit            UnitRule `yaml:"unit"`
	Currency        string   `yaml:"currency"`
	DisplayDecimals int32    `yaml:"display_decimals"`
	IndexSymbol     string   `yaml:"index_symbol"`
}

// DefaultMarkets returns the built-in market table. The London exchange quotes
// in pence, everything else in major units; Asian totals display whole units.
func DefaultMarkets() map[string]Market {
	return map[string]Market{
		"uk":   {Name: "United Kingdom", Unit: UnitMinor, Currency: "£", DisplayDecimals: 2, IndexSymbol: "^FTSE"},
		"us":   {Name: "United States", Unit: UnitNative, Currency: "$", DisplayDecimals: 2, IndexSymbol: "^GSPC"},
		"eu":   {Name: "Europe", Unit: UnitNative, Currency: "€", DisplayDecimals: 2, IndexSymbol: "^GDAXI"},
		"asia": {Name: "Asia", Unit: UnitNative, Currency: "¥", DisplayDecimals: 0, IndexSymbol: "^N225"},
	}
}

// LoadMarkets reads the market table from a YAML file, falling back to the
// built-in table when path is empty. File entries are validated so a typo in
// the unit rule fails at startup rather than mispricing a portfolio.
func LoadMarkets(path string) (map[string]Market, error) {
	if path == "" {
		return DefaultMarkets(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}

	markets := make(map[string]Market)
	if err := yaml.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("parse markets file: %w", err)
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("markets file %s defines no markets", path)
	}

	for id, m := range markets {
		switch m.Unit {
		case UnitNative, UnitMinor:
		case "":
			m.Unit = UnitNative
			markets[id] = m
		default:
			return nil, fmt.Errorf("market %s: unknown unit rule %q", id, m.Unit)
		}
		if m.DisplayDecimals < 0 || m.DisplayDecimals > 2 {
			return nil, fmt.Errorf("market %s: display_decimals must be 0-2, got %d", id, m.DisplayDecimals)
		}
	}
	return markets, nil
}
