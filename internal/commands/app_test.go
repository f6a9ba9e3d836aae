package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallied-dev/tallied/internal/model"
)

func TestInitThenOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, runInit(ctx, dir, "Test Ltd"))

	_, err := os.Stat(filepath.Join(dir, configFile))
	require.NoError(t, err)

	app, err := openApp(ctx, dir)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "Test Ltd", app.cfg.Business.Name)
	assert.True(t, app.plan.Exists("1010"), "default chart seeded")
	assert.True(t, app.plan.Exists("4010"))
}

func TestOpenApp_MissingConfig(t *testing.T) {
	_, err := openApp(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestTaxConfig(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	require.NoError(t, runInit(ctx, dir, "Test Ltd"))

	app, err := openApp(ctx, dir)
	require.NoError(t, err)
	defer app.Close()

	cfg, err := app.taxConfig()
	require.NoError(t, err)
	assert.Equal(t, "uk-2022-23", cfg.Version)

	app.cfg.Tax.ConfigVersion = "uk-1999-00"
	_, err = app.taxConfig()
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	minor, err := parseAmount("1200.00")
	require.NoError(t, err)
	assert.EqualValues(t, 120000, minor)

	minor, err = parseAmount("0.01")
	require.NoError(t, err)
	assert.EqualValues(t, 1, minor)

	minor, err = parseAmount("45")
	require.NoError(t, err)
	assert.EqualValues(t, 4500, minor)
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "1.005", "0", "-5"} {
		_, err := parseAmount(s)
		assert.Error(t, err, "amount %q", s)
	}
}

func TestParsePosting(t *testing.T) {
	p, err := parsePosting("1010:1200.00", model.SideDebit)
	require.NoError(t, err)
	assert.Equal(t, model.Posting{AccountCode: "1010", Amount: 120000, Side: model.SideDebit}, p)

	_, err = parsePosting("1010", model.SideDebit)
	assert.Error(t, err)
	_, err = parsePosting("1010:abc", model.SideCredit)
	assert.Error(t, err)
}

func TestPeriodWindow_DerivedFromKey(t *testing.T) {
	start, end, err := periodWindow("2025-Q1", model.TaxKindVAT, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", start.Format("2006-01-02"))
	assert.Equal(t, "2025-03-31", end.Format("2006-01-02"))

	start, end, err = periodWindow("2025-Q4", model.TaxKindVAT, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", start.Format("2006-01-02"))
	assert.Equal(t, "2025-12-31", end.Format("2006-01-02"))

	start, end, err = periodWindow("2024-25", model.TaxKindIncomeTax, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-06", start.Format("2006-01-02"))
	assert.Equal(t, "2025-04-05", end.Format("2006-01-02"))
}

func TestPeriodWindow_ExplicitOverride(t *testing.T) {
	start, end, err := periodWindow("custom", model.TaxKindVAT, "2025-02-01", "2025-04-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", start.Format("2006-01-02"))
	assert.Equal(t, "2025-04-30", end.Format("2006-01-02"))

	_, _, err = periodWindow("custom", model.TaxKindVAT, "2025-02-01", "")
	assert.Error(t, err, "start without end")
	_, _, err = periodWindow("custom", model.TaxKindVAT, "", "")
	assert.Error(t, err, "non-standard key cannot derive dates")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	want := []string{"init", "accounts", "post", "void", "balance", "period", "compute", "obligations", "submit", "resume", "reconcile", "auth"}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, w := range want {
		assert.True(t, names[w], "missing subcommand %s", w)
	}
}
