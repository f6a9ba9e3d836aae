// Package accountplan manages the hierarchical chart of accounts.
package accountplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/store"
)

var (
	// ErrDuplicateCode is returned by Create when the code already exists.
	ErrDuplicateCode = errors.New("accountplan: duplicate account code")
	// ErrNotFound is returned by Get when the code is absent.
	ErrNotFound = errors.New("accountplan: account not found")
	// ErrAccountInUse is returned by Delete when a posting references the code.
	ErrAccountInUse = errors.New("accountplan: account referenced by postings")
)

// PostingChecker tests whether any posting references an account code. The
// ledger implements this; the plan never reaches into ledger state itself.
type PostingChecker interface {
	AccountInUse(code string) bool
}

// Service provides lookup and administration over the chart of accounts.
type Service struct {
	mu      sync.RWMutex
	store   store.Store
	byCode  map[string]model.Account
	ordered []string
}

// NewService loads the chart of accounts from the store.
func NewService(ctx context.Context, st store.Store) (*Service, error) {
	s := &Service{store: st, byCode: make(map[string]model.Account)}

	records, err := st.List(ctx, store.KindAccount)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	for _, rec := range records {
		var a model.Account
		if err := json.Unmarshal(rec, &a); err != nil {
			return nil, fmt.Errorf("decoding account: %w", err)
		}
		s.byCode[a.Code] = a
		s.ordered = append(s.ordered, a.Code)
	}
	return s, nil
}

// Create adds an account to the plan. Fails with ErrDuplicateCode if the
// code exists already.
func (s *Service) Create(ctx context.Context, a model.Account) error {
	if a.Code == "" {
		return fmt.Errorf("accountplan: account code is required")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("accountplan: invalid account type %q", a.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[a.Code]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, a.Code)
	}

	rec, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding account %s: %w", a.Code, err)
	}
	if err := s.store.Save(ctx, store.KindAccount, a.Code, rec); err != nil {
		return fmt.Errorf("saving account %s: %w", a.Code, err)
	}

	s.byCode[a.Code] = a
	s.ordered = append(s.ordered, a.Code)
	return nil
}

// Get returns the account for a code, or ErrNotFound.
func (s *Service) Get(code string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byCode[code]
	if !ok {
		return model.Account{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return a, nil
}

// Exists reports whether an account code exists.
func (s *Service) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok
}

// Delete removes an account. Fails with ErrAccountInUse if any posting
// references it.
func (s *Service) Delete(ctx context.Context, code string, postings PostingChecker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[code]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if postings != nil && postings.AccountInUse(code) {
		return fmt.Errorf("%w: %s", ErrAccountInUse, code)
	}

	if err := s.store.Delete(ctx, store.KindAccount, code); err != nil {
		return fmt.Errorf("deleting account %s: %w", code, err)
	}

	delete(s.byCode, code)
	for i, c := range s.ordered {
		if c == code {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}

// All returns all accounts in creation order.
func (s *Service) All() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Account, 0, len(s.ordered))
	for _, code := range s.ordered {
		out = append(out, s.byCode[code])
	}
	return out
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(t model.AccountType) []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Account
	for _, code := range s.ordered {
		if a := s.byCode[code]; a.Type == t {
			out = append(out, a)
		}
	}
	return out
}
