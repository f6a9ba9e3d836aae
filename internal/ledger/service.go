// Package ledger provides the append-only double-entry transaction store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tallied-dev/tallied/internal/metrics"
	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/store"
)

var (
	// ErrPeriodNotFound means no period exists for the given key.
	ErrPeriodNotFound = errors.New("ledger: period not found")
	// ErrPeriodOverlap means a new period overlaps an existing one of the
	// same kind.
	ErrPeriodOverlap = errors.New("ledger: period overlaps existing period")
	// ErrPeriodState means a period transition was requested from the
	// wrong status.
	ErrPeriodState = errors.New("ledger: invalid period state")
	// ErrPeriodFrozen means the transaction's timestamp falls inside a
	// closed or submitted period, whose transaction set is frozen.
	ErrPeriodFrozen = errors.New("ledger: period is frozen")
)

// Service is the ledger. Posting and period transitions commit under a
// single mutual-exclusion region per instance so concurrent posts can
// never both observe a pre-post balance.
type Service struct {
	mu       sync.Mutex
	store    store.Store
	accounts AccountChecker

	txns    []model.Transaction
	byID    map[uuid.UUID]int
	periods map[string]model.Period
	nextSeq int64

	now func() time.Time
}

// NewService loads ledger state from the store.
func NewService(ctx context.Context, st store.Store, accounts AccountChecker) (*Service, error) {
	s := &Service{
		store:    st,
		accounts: accounts,
		byID:     make(map[uuid.UUID]int),
		periods:  make(map[string]model.Period),
		now:      time.Now,
	}

	records, err := st.List(ctx, store.KindTransaction)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	for _, rec := range records {
		var tx model.Transaction
		if err := json.Unmarshal(rec, &tx); err != nil {
			return nil, fmt.Errorf("decoding transaction: %w", err)
		}
		s.byID[tx.ID] = len(s.txns)
		s.txns = append(s.txns, tx)
		if tx.Seq >= s.nextSeq {
			s.nextSeq = tx.Seq + 1
		}
	}

	periods, err := st.List(ctx, store.KindPeriod)
	if err != nil {
		return nil, fmt.Errorf("loading periods: %w", err)
	}
	for _, rec := range periods {
		var p model.Period
		if err := json.Unmarshal(rec, &p); err != nil {
			return nil, fmt.Errorf("decoding period: %w", err)
		}
		s.periods[p.Key] = p
	}

	return s, nil
}

// Post validates a draft transaction and commits it. On success the
// transaction transitions draft to posted and becomes immutable. No state
// changes on failure. Transactions whose timestamp falls inside a closed
// or submitted period are rejected with ErrPeriodFrozen.
func (s *Service) Post(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postLocked(ctx, tx)
}

func (s *Service) postLocked(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if tx.Status != "" && tx.Status != model.StatusDraft {
		return model.Transaction{}, fmt.Errorf("%w: %s is %s", ErrImmutable, tx.ID, tx.Status)
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if _, exists := s.byID[tx.ID]; exists {
		return model.Transaction{}, fmt.Errorf("%w: %s already posted", ErrImmutable, tx.ID)
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = s.now()
	}

	if verrs := ValidateTransaction(tx, s.accounts); len(verrs) > 0 {
		return model.Transaction{}, joinValidation(verrs)
	}
	if p, frozen := s.frozenPeriodAt(tx.Timestamp); frozen {
		return model.Transaction{}, fmt.Errorf("%w: %s falls in %s period %s",
			ErrPeriodFrozen, tx.Timestamp.Format("2006-01-02"), p.Status, p.Key)
	}

	tx.Status = model.StatusPosted
	tx.Seq = s.nextSeq

	if err := s.save(ctx, tx); err != nil {
		return model.Transaction{}, err
	}

	s.nextSeq++
	s.byID[tx.ID] = len(s.txns)
	s.txns = append(s.txns, tx)
	metrics.TransactionsPosted.Inc()
	return tx, nil
}

// Void creates an automatic reversing transaction for a posted transaction
// and marks the original void. The original's postings are retained for
// audit; the reversal cancels them from its own timestamp forward. Returns
// the reversal.
func (s *Service) Void(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	original := s.txns[idx]
	if original.Status == model.StatusVoid {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrAlreadyVoid, id)
	}
	if original.Status != model.StatusPosted {
		return model.Transaction{}, fmt.Errorf("%w: cannot void %s transaction", ErrImmutable, original.Status)
	}
	if p, frozen := s.frozenPeriodAt(original.Timestamp); frozen {
		return model.Transaction{}, fmt.Errorf("%w: %s belongs to %s period %s",
			ErrPeriodFrozen, id, p.Status, p.Key)
	}

	reversal, err := s.postLocked(ctx, original.Reversal(s.now()))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("posting reversal for %s: %w", id, err)
	}

	original.Status = model.StatusVoid
	original.VoidedBy = reversal.ID
	if err := s.save(ctx, original); err != nil {
		return model.Transaction{}, err
	}
	s.txns[idx] = original
	return reversal, nil
}

// Get returns a transaction by ID.
func (s *Service) Get(id uuid.UUID) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.txns[idx], nil
}

// BalanceAsOf folds all committed postings for an account up to and
// including date, in timestamp order with ties broken by insertion order,
// and returns a signed minor-unit balance on the account's normal side.
// Voided transactions stay in the fold; their reversals cancel them.
func (s *Service) BalanceAsOf(account model.Account, date time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]model.Transaction, 0, len(s.txns))
	for _, tx := range s.txns {
		if !tx.Timestamp.After(date) {
			ordered = append(ordered, tx)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Seq < ordered[j].Seq
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var debits, credits int64
	for _, tx := range ordered {
		for _, p := range tx.Postings {
			if p.AccountCode != account.Code {
				continue
			}
			if p.Side == model.SideDebit {
				debits += p.Amount
			} else {
				credits += p.Amount
			}
		}
	}

	if account.Type.NormalSide() == model.SideDebit {
		return debits - credits
	}
	return credits - debits
}

// PostedInRange returns the effective transactions whose timestamp falls in
// [start, end] inclusive, in posting order. Voided originals are excluded;
// their reversals are posted transactions and are included.
func (s *Service) PostedInRange(start, end time.Time) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, tx := range s.txns {
		if tx.Status != model.StatusPosted {
			continue
		}
		if tx.Timestamp.Before(start) || tx.Timestamp.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// AccountInUse reports whether any transaction ever posted references the
// account code. Implements accountplan.PostingChecker.
func (s *Service) AccountInUse(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.txns {
		for _, p := range tx.Postings {
			if p.AccountCode == code {
				return true
			}
		}
	}
	return false
}

func (s *Service) save(ctx context.Context, tx model.Transaction) error {
	rec, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encoding transaction %s: %w", tx.ID, err)
	}
	if err := s.store.Save(ctx, store.KindTransaction, tx.ID.String(), rec); err != nil {
		return fmt.Errorf("saving transaction %s: %w", tx.ID, err)
	}
	return nil
}
