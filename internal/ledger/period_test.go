package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallied-dev/tallied/internal/model"
)

func q1() model.Period {
	return model.Period{
		Key:   "2025-Q1",
		Kind:  model.TaxKindVAT,
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestCreatePeriod(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.CreatePeriod(ctx, q1()))

	p, err := svc.Period("2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodOpen, p.Status)
}

func TestCreatePeriod_OverlapSameKind(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.CreatePeriod(ctx, q1()))

	overlap := model.Period{
		Key:   "2025-H1",
		Kind:  model.TaxKindVAT,
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	assert.ErrorIs(t, svc.CreatePeriod(ctx, overlap), ErrPeriodOverlap)
}

func TestCreatePeriod_OverlapAcrossKindsAllowed(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.CreatePeriod(ctx, q1()))

	taxYear := model.Period{
		Key:   "2024-25",
		Kind:  model.TaxKindIncomeTax,
		Start: time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, svc.CreatePeriod(ctx, taxYear))
}

func TestPeriodTransitions(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, svc.CreatePeriod(ctx, q1()))

	// open -> closed -> open -> closed -> submitted
	require.NoError(t, svc.ClosePeriod(ctx, "2025-Q1"))
	require.NoError(t, svc.ReopenPeriod(ctx, "2025-Q1"))
	require.NoError(t, svc.ClosePeriod(ctx, "2025-Q1"))
	require.NoError(t, svc.MarkSubmitted(ctx, "2025-Q1"))

	p, err := svc.Period("2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodSubmitted, p.Status)

	// Submitted periods stay frozen.
	assert.ErrorIs(t, svc.ReopenPeriod(ctx, "2025-Q1"), ErrPeriodState)
	assert.ErrorIs(t, svc.ClosePeriod(ctx, "2025-Q1"), ErrPeriodState)
}

func TestPeriodTransitions_WrongState(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, svc.CreatePeriod(ctx, q1()))

	assert.ErrorIs(t, svc.ReopenPeriod(ctx, "2025-Q1"), ErrPeriodState)
	assert.ErrorIs(t, svc.MarkSubmitted(ctx, "2025-Q1"), ErrPeriodState)
	assert.ErrorIs(t, svc.ClosePeriod(ctx, "missing"), ErrPeriodNotFound)
}

func TestPost_ClosedPeriodRejectsBackdatedTransaction(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.CreatePeriod(ctx, q1()))
	_, err := svc.Post(ctx, saleTx(date(2025, 2, 10), 120000))
	require.NoError(t, err)
	require.NoError(t, svc.ClosePeriod(ctx, "2025-Q1"))

	// The quarter is frozen; a backdated post must not change its figures.
	_, err = svc.Post(ctx, saleTx(date(2025, 3, 5), 50000))
	assert.ErrorIs(t, err, ErrPeriodFrozen)

	bank := model.Account{Code: "1010", Type: model.AccountTypeAsset}
	assert.Equal(t, int64(120000), svc.BalanceAsOf(bank, date(2025, 12, 31)))

	// Timestamps outside the frozen window still post.
	_, err = svc.Post(ctx, saleTx(date(2025, 4, 2), 50000))
	assert.NoError(t, err)

	// Reopening unfreezes the window.
	require.NoError(t, svc.ReopenPeriod(ctx, "2025-Q1"))
	_, err = svc.Post(ctx, saleTx(date(2025, 3, 5), 50000))
	assert.NoError(t, err)
}

func TestPost_SubmittedPeriodStaysFrozen(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.CreatePeriod(ctx, q1()))
	require.NoError(t, svc.ClosePeriod(ctx, "2025-Q1"))
	require.NoError(t, svc.MarkSubmitted(ctx, "2025-Q1"))

	_, err := svc.Post(ctx, saleTx(date(2025, 1, 20), 10000))
	assert.ErrorIs(t, err, ErrPeriodFrozen)
}

func TestVoid_ClosedPeriodRejected(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.CreatePeriod(ctx, q1()))
	tx, err := svc.Post(ctx, saleTx(date(2025, 2, 10), 120000))
	require.NoError(t, err)
	require.NoError(t, svc.ClosePeriod(ctx, "2025-Q1"))

	// Voiding would drop the original from the period's effective set.
	_, err = svc.Void(ctx, tx.ID)
	assert.ErrorIs(t, err, ErrPeriodFrozen)

	got, err := svc.Get(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, got.Status)
}
