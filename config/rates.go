package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/allowance"
)

// ratesFile is the TOML layout of a rate override file:
//
//	[rates.QR]
//	full = "7.00"
//	supplement = "1.40"
//
// Amounts are strings so they decode straight into decimals.
type ratesFile struct {
	Rates map[string]rateOverride `toml:"rates"`
}

type rateOverride struct {
	Full       *decimal.Decimal `toml:"full"`
	Supplement *decimal.Decimal `toml:"supplement"`
}

// LoadRates reads a rate file on top of the default rates. Meal types or
// fields missing from the file keep their defaults.
func LoadRates(path string) (allowance.RateTable, error) {
	var file ratesFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("parsing rates file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("rates file %s: unknown keys %v", path, undecoded)
	}

	rates := allowance.DefaultRates()
	for name, o := range file.Rates {
		meal := allowance.MealType(name)
		if !meal.Valid() {
			return nil, fmt.Errorf("rates file %s: unknown meal type %q", path, name)
		}
		rate := rates[meal]
		if o.Full != nil {
			rate.Full = *o.Full
		}
		if o.Supplement != nil {
			rate.Supplement = *o.Supplement
		}
		rates[meal] = rate
	}

	if err := rates.Validate(); err != nil {
		return nil, fmt.Errorf("rates file %s: %w", path, err)
	}
	return rates, nil
}
