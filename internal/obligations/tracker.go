// Package obligations tracks which tax periods are open, due, or
// fulfilled against the authority's view.
package obligations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tallied-dev/tallied/internal/authority"
	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/store"
)

var (
	// ErrNotFound means no obligation exists for the period.
	ErrNotFound = errors.New("obligations: obligation not found")
	// ErrAlreadyFulfilled means fulfillment was attempted twice.
	// Fulfillment is terminal; the first authority reference stands.
	ErrAlreadyFulfilled = errors.New("obligations: obligation already fulfilled")
)

// Tracker maintains the obligation set.
type Tracker struct {
	mu    sync.Mutex
	store store.Store
	byKey map[string]model.Obligation
}

// NewTracker loads obligations from the store.
func NewTracker(ctx context.Context, st store.Store) (*Tracker, error) {
	t := &Tracker{store: st, byKey: make(map[string]model.Obligation)}

	records, err := st.List(ctx, store.KindObligation)
	if err != nil {
		return nil, fmt.Errorf("loading obligations: %w", err)
	}
	for _, rec := range records {
		var o model.Obligation
		if err := json.Unmarshal(rec, &o); err != nil {
			return nil, fmt.Errorf("decoding obligation: %w", err)
		}
		t.byKey[o.PeriodKey] = o
	}
	return t, nil
}

// Track registers an obligation for a period. Re-tracking an open
// obligation updates its window and due date; fulfilled obligations are
// left untouched.
func (t *Tracker) Track(ctx context.Context, o model.Obligation) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byKey[o.PeriodKey]; ok && existing.Status == model.ObligationFulfilled {
		return nil
	}
	if o.Status == "" {
		o.Status = model.ObligationOpen
	}
	return t.save(ctx, o)
}

// SyncFromAuthority ingests the authority's obligation listing. Open
// entries are registered or refreshed; entries the authority reports
// fulfilled are recorded as such. Locally fulfilled obligations keep
// their recorded authority reference.
func (t *Tracker) SyncFromAuthority(ctx context.Context, remote []authority.Obligation) error {
	for _, ro := range remote {
		status := model.ObligationOpen
		if ro.Status == authority.ObligationStatusFulfilled {
			status = model.ObligationFulfilled
		}
		err := t.Track(ctx, model.Obligation{
			PeriodKey: ro.PeriodKey,
			Kind:      model.TaxKindVAT,
			Start:     ro.Start,
			End:       ro.End,
			Due:       ro.Due,
			Status:    status,
		})
		if err != nil {
			return fmt.Errorf("syncing obligation %s: %w", ro.PeriodKey, err)
		}
	}
	return nil
}

// Get returns the obligation for a period key.
func (t *Tracker) Get(periodKey string) (model.Obligation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.byKey[periodKey]
	if !ok {
		return model.Obligation{}, fmt.Errorf("%w: %s", ErrNotFound, periodKey)
	}
	return o, nil
}

// ListOpen returns open obligations due on or before now, ordered by due
// date ascending.
func (t *Tracker) ListOpen(now time.Time) []model.Obligation {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []model.Obligation
	for _, o := range t.byKey {
		if o.Status == model.ObligationOpen && !o.Due.After(now) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

// MarkFulfilled transitions an obligation to fulfilled exactly once,
// recording the authority-issued reference. A second call fails with
// ErrAlreadyFulfilled and leaves the first reference untouched.
func (t *Tracker) MarkFulfilled(ctx context.Context, periodKey, authorityRef string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.byKey[periodKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, periodKey)
	}
	if o.Status == model.ObligationFulfilled {
		return fmt.Errorf("%w: %s fulfilled as %s", ErrAlreadyFulfilled, periodKey, o.AuthorityRef)
	}

	o.Status = model.ObligationFulfilled
	o.AuthorityRef = authorityRef
	return t.save(ctx, o)
}

func (t *Tracker) save(ctx context.Context, o model.Obligation) error {
	rec, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encoding obligation %s: %w", o.PeriodKey, err)
	}
	if err := t.store.Save(ctx, store.KindObligation, o.PeriodKey, rec); err != nil {
		return fmt.Errorf("saving obligation %s: %w", o.PeriodKey, err)
	}
	t.byKey[o.PeriodKey] = o
	return nil
}
