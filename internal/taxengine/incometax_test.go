package taxengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallied-dev/tallied/internal/model"
)

func (f *fixture) taxYear(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	p := model.Period{
		Key:   "2024-25",
		Kind:  model.TaxKindIncomeTax,
		Start: time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 5, 23, 59, 59, 0, time.UTC),
	}
	require.NoError(t, f.ledger.CreatePeriod(ctx, p))
	require.NoError(t, f.ledger.ClosePeriod(ctx, p.Key))
	return p.Key
}

func inYear(month int) time.Time {
	return time.Date(2024, time.Month(month), 15, 12, 0, 0, 0, time.UTC)
}

func TestComputeIncomeTax_BelowAllowance(t *testing.T) {
	f := newFixture(t)

	f.post(t, inYear(6), "1010", "4010", 1000000) // £10,000 income
	key := f.taxYear(t)

	ret, err := f.engine.ComputeIncomeTax(key)
	require.NoError(t, err)

	requireLine(t, ret, LineTotalIncome, "10000.00")
	requireLine(t, ret, LineNetProfit, "10000.00")
	requireLine(t, ret, LinePersonalAllowance, "12570.00")
	requireLine(t, ret, LineTaxableIncome, "0")
	requireLine(t, ret, LineTotalTaxDue, "0")
}

func TestComputeIncomeTax_BasicAndHigherBands(t *testing.T) {
	f := newFixture(t)

	f.post(t, inYear(6), "1010", "4010", 7000000) // £70,000 income
	f.post(t, inYear(7), "5010", "1010", 1000000) // £10,000 expenses
	key := f.taxYear(t)

	ret, err := f.engine.ComputeIncomeTax(key)
	require.NoError(t, err)

	requireLine(t, ret, LineTotalIncome, "70000.00")
	requireLine(t, ret, LineTotalExpenses, "10000.00")
	requireLine(t, ret, LineNetProfit, "60000.00")
	requireLine(t, ret, LinePersonalAllowance, "12570.00")
	requireLine(t, ret, LineTaxableIncome, "47430.00")

	// £37,700 at 20% plus £9,730 at 40%.
	requireLine(t, ret, "basicRateTax", "7540.00")
	requireLine(t, ret, "higherRateTax", "3892.00")
	requireLine(t, ret, "additionalRateTax", "0")
	requireLine(t, ret, LineTotalTaxDue, "11432.00")
}

func TestComputeIncomeTax_AllowanceTaper(t *testing.T) {
	f := newFixture(t)

	f.post(t, inYear(6), "1010", "4010", 12000000) // £120,000 income
	key := f.taxYear(t)

	ret, err := f.engine.ComputeIncomeTax(key)
	require.NoError(t, err)

	// £1 of allowance lost per £2 of profit over £100,000.
	requireLine(t, ret, LinePersonalAllowance, "2570.00")
	requireLine(t, ret, LineTaxableIncome, "117430.00")
	requireLine(t, ret, "basicRateTax", "7540.00")
	requireLine(t, ret, "higherRateTax", "31892.00")
	requireLine(t, ret, LineTotalTaxDue, "39432.00")
}

func TestComputeIncomeTax_AllowanceFullyTapered(t *testing.T) {
	f := newFixture(t)

	f.post(t, inYear(6), "1010", "4010", 20000000) // £200,000 income
	key := f.taxYear(t)

	ret, err := f.engine.ComputeIncomeTax(key)
	require.NoError(t, err)

	requireLine(t, ret, LinePersonalAllowance, "0")
	requireLine(t, ret, LineTaxableIncome, "200000.00")

	// £37,700 at 20%, up to £150,000 at 40%, the rest at 45%.
	requireLine(t, ret, "basicRateTax", "7540.00")
	requireLine(t, ret, "higherRateTax", "44920.00")
	requireLine(t, ret, "additionalRateTax", "22500.00")
	requireLine(t, ret, LineTotalTaxDue, "74960.00")
}

func TestComputeIncomeTax_OpenPeriodRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := model.Period{
		Key:   "2024-25",
		Kind:  model.TaxKindIncomeTax,
		Start: time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 5, 23, 59, 59, 0, time.UTC),
	}
	require.NoError(t, f.ledger.CreatePeriod(ctx, p))

	_, err := f.engine.ComputeIncomeTax(p.Key)
	assert.ErrorIs(t, err, ErrPeriodNotClosed)
}

func TestComputeIncomeTax_MissingPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ComputeIncomeTax("missing")
	assert.Error(t, err)
}
