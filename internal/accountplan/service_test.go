package accountplan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/store"
)

type stubChecker struct{ inUse bool }

func (c stubChecker) AccountInUse(string) bool { return c.inUse }

func newTestPlan(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), store.NewMemory())
	require.NoError(t, err)
	return svc
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestPlan(t)
	ctx := context.Background()

	a := model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}
	require.NoError(t, svc.Create(ctx, a))

	got, err := svc.Get("1010")
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.True(t, svc.Exists("1010"))
	assert.False(t, svc.Exists("9999"))
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc := newTestPlan(t)
	ctx := context.Background()

	a := model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}
	require.NoError(t, svc.Create(ctx, a))
	assert.ErrorIs(t, svc.Create(ctx, a), ErrDuplicateCode)
}

func TestCreate_InvalidType(t *testing.T) {
	svc := newTestPlan(t)

	err := svc.Create(context.Background(), model.Account{Code: "1010", Type: "intangible"})
	assert.Error(t, err)
	assert.False(t, svc.Exists("1010"))
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestPlan(t)

	_, err := svc.Get("1010")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := newTestPlan(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}))
	require.NoError(t, svc.Delete(ctx, "1010", stubChecker{}))
	assert.False(t, svc.Exists("1010"))

	assert.ErrorIs(t, svc.Delete(ctx, "1010", stubChecker{}), ErrNotFound)
}

func TestDelete_AccountInUse(t *testing.T) {
	svc := newTestPlan(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}))
	assert.ErrorIs(t, svc.Delete(ctx, "1010", stubChecker{inUse: true}), ErrAccountInUse)
	assert.True(t, svc.Exists("1010"))
}

func TestAll_PreservesCreationOrder(t *testing.T) {
	svc := newTestPlan(t)
	ctx := context.Background()

	codes := []string{"4010", "1010", "2010"}
	for _, code := range codes {
		require.NoError(t, svc.Create(ctx, model.Account{Code: code, Name: code, Type: model.AccountTypeAsset}))
	}

	all := svc.All()
	require.Len(t, all, 3)
	for i, code := range codes {
		assert.Equal(t, code, all[i].Code)
	}
}

func TestByType(t *testing.T) {
	svc := newTestPlan(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}))
	require.NoError(t, svc.Create(ctx, model.Account{Code: "4010", Name: "Sales", Type: model.AccountTypeIncome}))

	income := svc.ByType(model.AccountTypeIncome)
	require.Len(t, income, 1)
	assert.Equal(t, "4010", income[0].Code)
}

func TestNewService_ReloadsChart(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	svc, err := NewService(ctx, st)
	require.NoError(t, err)
	require.NoError(t, svc.Create(ctx, model.Account{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset}))

	reloaded, err := NewService(ctx, st)
	require.NoError(t, err)
	assert.True(t, reloaded.Exists("1010"))
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart()
	require.NotEmpty(t, chart)

	seen := make(map[string]bool)
	var hasSales, hasPurchases bool
	for _, a := range chart {
		assert.True(t, a.Type.Valid(), "account %s has invalid type", a.Code)
		assert.False(t, seen[a.Code], "duplicate code %s", a.Code)
		seen[a.Code] = true
		switch a.TaxLine {
		case TaxLineSales:
			hasSales = true
		case TaxLinePurchases:
			hasPurchases = true
		}
	}
	assert.True(t, hasSales, "default chart needs a sales-tagged account")
	assert.True(t, hasPurchases, "default chart needs a purchases-tagged account")
}
