package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/tallied-dev/tallied/internal/accountplan"
	"github.com/tallied-dev/tallied/internal/config"
	"github.com/tallied-dev/tallied/internal/ledger"
	"github.com/tallied-dev/tallied/internal/store"
	"github.com/tallied-dev/tallied/internal/store/sqlite"
	"github.com/tallied-dev/tallied/internal/taxengine"
)

// configFile is the project configuration filename in the books directory.
const configFile = "tallied.yaml"

// app wires the core services over the books directory in dir.
type app struct {
	cfg    *config.Config
	store  store.Store
	plan   *accountplan.Service
	ledger *ledger.Service
}

func openApp(ctx context.Context, dir string) (*app, error) {
	cfg, err := config.Load(filepath.Join(dir, configFile))
	if err != nil {
		return nil, err
	}

	st, err := sqlite.New(filepath.Join(dir, cfg.Data.Path))
	if err != nil {
		return nil, err
	}

	plan, err := accountplan.NewService(ctx, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	led, err := ledger.NewService(ctx, st, plan)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: st, plan: plan, ledger: led}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// taxConfig resolves the pinned statutory configuration version.
func (a *app) taxConfig() (taxengine.Config, error) {
	switch a.cfg.Tax.ConfigVersion {
	case "", "uk-2022-23":
		return taxengine.DefaultConfig(), nil
	default:
		return taxengine.Config{}, fmt.Errorf("unknown tax config version %q", a.cfg.Tax.ConfigVersion)
	}
}

// parseAmount converts a major-unit amount string like "12.34" to minor
// units, rejecting sub-minor precision.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := d.Mul(decimal.NewFromInt(100))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than 2 decimal places", s)
	}
	if !minor.IsPositive() {
		return 0, fmt.Errorf("amount %q must be positive", s)
	}
	return minor.IntPart(), nil
}
