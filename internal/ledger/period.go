package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/store"
)

// CreatePeriod registers a new open period. Periods of the same kind must
// never overlap.
func (s *Service) CreatePeriod(ctx context.Context, p model.Period) error {
	if p.Key == "" {
		return fmt.Errorf("ledger: period key is required")
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("ledger: period %s end must be after start", p.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.periods[p.Key]; exists {
		return fmt.Errorf("ledger: period %s already exists", p.Key)
	}
	for _, existing := range s.periods {
		if existing.Kind != p.Kind {
			continue
		}
		if !p.End.Before(existing.Start) && !p.Start.After(existing.End) {
			return fmt.Errorf("%w: %s overlaps %s", ErrPeriodOverlap, p.Key, existing.Key)
		}
	}

	p.Status = model.PeriodOpen
	return s.savePeriod(ctx, p)
}

// Period returns the period for a key, or ErrPeriodNotFound.
func (s *Service) Period(key string) (model.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.periods[key]
	if !ok {
		return model.Period{}, fmt.Errorf("%w: %s", ErrPeriodNotFound, key)
	}
	return p, nil
}

// Periods returns all periods of a kind, unordered.
func (s *Service) Periods(kind model.TaxKind) []model.Period {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Period
	for _, p := range s.periods {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// ClosePeriod freezes the set of transactions eligible for a period. Only
// open periods can be closed.
func (s *Service) ClosePeriod(ctx context.Context, key string) error {
	return s.transitionPeriod(ctx, key, model.PeriodOpen, model.PeriodClosed)
}

// ReopenPeriod reverses a close so the period can be recomputed. Submitted
// periods stay frozen.
func (s *Service) ReopenPeriod(ctx context.Context, key string) error {
	return s.transitionPeriod(ctx, key, model.PeriodClosed, model.PeriodOpen)
}

// MarkSubmitted records that a return for the period was accepted by the
// authority.
func (s *Service) MarkSubmitted(ctx context.Context, key string) error {
	return s.transitionPeriod(ctx, key, model.PeriodClosed, model.PeriodSubmitted)
}

// frozenPeriodAt returns the closed or submitted period covering ts, if
// any. Callers must hold s.mu.
func (s *Service) frozenPeriodAt(ts time.Time) (model.Period, bool) {
	for _, p := range s.periods {
		if p.Status != model.PeriodOpen && p.Contains(ts) {
			return p, true
		}
	}
	return model.Period{}, false
}

func (s *Service) transitionPeriod(ctx context.Context, key string, from, to model.PeriodStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.periods[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPeriodNotFound, key)
	}
	if p.Status != from {
		return fmt.Errorf("%w: period %s is %s, want %s", ErrPeriodState, key, p.Status, from)
	}

	p.Status = to
	return s.savePeriod(ctx, p)
}

func (s *Service) savePeriod(ctx context.Context, p model.Period) error {
	rec, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding period %s: %w", p.Key, err)
	}
	if err := s.store.Save(ctx, store.KindPeriod, p.Key, rec); err != nil {
		return fmt.Errorf("saving period %s: %w", p.Key, err)
	}
	s.periods[p.Key] = p
	return nil
}
