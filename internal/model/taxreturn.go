package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxReturn is the computed output for a closed period: a mapping of
// statutory line identifiers to decimal amounts in major units, plus a
// checksum of the inputs used so divergent recomputations are detectable.
type TaxReturn struct {
	PeriodKey     string                     `json:"period_key"`
	Kind          TaxKind                    `json:"kind"`
	Lines         map[string]decimal.Decimal `json:"lines"`
	ConfigVersion string                     `json:"config_version"`
	ComputedAt    time.Time                  `json:"computed_at"`
	Checksum      string                     `json:"checksum"`
}

// Line returns the named line value, zero if absent.
func (r TaxReturn) Line(id string) decimal.Decimal {
	if v, ok := r.Lines[id]; ok {
		return v
	}
	return decimal.Zero
}
