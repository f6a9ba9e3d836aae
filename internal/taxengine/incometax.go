package taxengine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tallied-dev/tallied/internal/model"
)

// Income tax return line identifiers.
const (
	LineTotalIncome       = "totalIncome"
	LineTotalExpenses     = "totalExpenses"
	LineNetProfit         = "netProfit"
	LinePersonalAllowance = "personalAllowance"
	LineTaxableIncome     = "taxableIncome"
	LineTotalTaxDue       = "totalTaxDue"
)

// ComputeIncomeTax produces the self-assessment figures for a closed
// period: income and expense aggregates, personal allowance with the
// high-income taper, then the configured bands over taxable income. Each
// band's tax is rounded half-up to the minor unit per line.
func (e *Engine) ComputeIncomeTax(periodKey string) (model.TaxReturn, error) {
	period, err := e.eligiblePeriod(periodKey)
	if err != nil {
		return model.TaxReturn{}, err
	}
	if period.Kind != model.TaxKindIncomeTax {
		return model.TaxReturn{}, fmt.Errorf("taxengine: period %s is %s, not income tax", periodKey, period.Kind)
	}

	txns := e.ledger.PostedInRange(period.Start, period.End)

	var incomeMinor, expenseMinor int64
	seen := make(map[string]model.Account)
	for _, tx := range txns {
		for _, p := range tx.Postings {
			if _, ok := seen[p.AccountCode]; ok {
				continue
			}
			acct, err := e.plan.Get(p.AccountCode)
			if err != nil {
				return model.TaxReturn{}, fmt.Errorf("resolving account %s: %w", p.AccountCode, err)
			}
			seen[p.AccountCode] = acct
		}
	}
	for _, acct := range seen {
		switch acct.Type {
		case model.AccountTypeIncome:
			incomeMinor += netMovement(acct, txns)
		case model.AccountTypeExpense:
			expenseMinor += netMovement(acct, txns)
		}
	}

	income := pounds(incomeMinor)
	expenses := pounds(expenseMinor)
	profit := income.Sub(expenses)

	// The allowance tapers by £1 for every £2 of income above the
	// threshold, down to zero.
	allowance := e.cfg.PersonalAllowance
	if profit.GreaterThan(e.cfg.TaperThreshold) {
		reduction := profit.Sub(e.cfg.TaperThreshold).Div(decimal.NewFromInt(2))
		if reduction.GreaterThan(allowance) {
			reduction = allowance
		}
		allowance = allowance.Sub(reduction)
	}

	taxable := profit.Sub(allowance)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	lines := map[string]decimal.Decimal{
		LineTotalIncome:       income.Round(2),
		LineTotalExpenses:     expenses.Round(2),
		LineNetProfit:         profit.Round(2),
		LinePersonalAllowance: allowance.Round(2),
		LineTaxableIncome:     taxable.Round(2),
	}

	total := decimal.Zero
	lower := decimal.Zero
	for _, band := range e.cfg.Bands {
		var slice decimal.Decimal
		if band.Limit.IsZero() {
			slice = taxable.Sub(lower)
		} else {
			slice = decimal.Min(taxable, band.Limit).Sub(lower)
			lower = band.Limit
		}
		if slice.IsNegative() {
			slice = decimal.Zero
		}
		tax := slice.Mul(band.Rate).Round(2)
		lines[band.Name+"RateTax"] = tax
		total = total.Add(tax)
	}
	lines[LineTotalTaxDue] = total

	return model.TaxReturn{
		PeriodKey:     period.Key,
		Kind:          model.TaxKindIncomeTax,
		Lines:         lines,
		ConfigVersion: e.cfg.Version,
		ComputedAt:    e.now().UTC(),
		Checksum:      e.checksum(period, model.TaxKindIncomeTax, txns),
	}, nil
}
