package model

import "time"

// TaxKind distinguishes the statutory regimes a period belongs to.
type TaxKind string

const (
	TaxKindVAT       TaxKind = "vat"
	TaxKindIncomeTax TaxKind = "income-tax"
)

// PeriodStatus is the lifecycle state of a tax period.
type PeriodStatus string

const (
	PeriodOpen      PeriodStatus = "open"
	PeriodClosed    PeriodStatus = "closed"
	PeriodSubmitted PeriodStatus = "submitted"
)

// Period is a non-overlapping calendar window for which one tax return is
// computed. Periods for the same kind tile the calendar without gaps.
type Period struct {
	Key    string       `json:"key"`
	Kind   TaxKind      `json:"kind"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Status PeriodStatus `json:"status"`
}

// Contains reports whether ts falls inside [Start, End] inclusive.
func (p Period) Contains(ts time.Time) bool {
	return !ts.Before(p.Start) && !ts.After(p.End)
}

// ObligationStatus is the lifecycle state of an obligation. Fulfillment is
// terminal.
type ObligationStatus string

const (
	ObligationOpen      ObligationStatus = "open"
	ObligationFulfilled ObligationStatus = "fulfilled"
)

// Obligation is an authority-tracked requirement to submit a return for a
// period by a due date.
type Obligation struct {
	PeriodKey    string           `json:"period_key"`
	Kind         TaxKind          `json:"kind"`
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Due          time.Time        `json:"due"`
	Status       ObligationStatus `json:"status"`
	AuthorityRef string           `json:"authority_ref,omitempty"`
}
