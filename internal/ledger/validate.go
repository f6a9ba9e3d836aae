package ledger

import (
	"errors"
	"fmt"

	"github.com/tallied-dev/tallied/internal/model"
)

var (
	// ErrUnbalanced means a transaction's debits and credits differ in
	// minor units.
	ErrUnbalanced = errors.New("ledger: transaction is unbalanced")
	// ErrUnknownAccount means a posting references an account code absent
	// from the plan.
	ErrUnknownAccount = errors.New("ledger: unknown account")
	// ErrTooFewPostings means a transaction has fewer than two postings.
	ErrTooFewPostings = errors.New("ledger: at least two postings required")
	// ErrImmutable means a caller attempted to mutate a posted transaction.
	ErrImmutable = errors.New("ledger: posted transactions are immutable")
	// ErrNotFound means no transaction exists for the given ID.
	ErrNotFound = errors.New("ledger: transaction not found")
	// ErrAlreadyVoid means the transaction was already voided.
	ErrAlreadyVoid = errors.New("ledger: transaction already void")
)

// ValidationError describes a single invariant violation in a transaction.
type ValidationError struct {
	Err           error // sentinel the violation maps to
	TransactionID string
	Description   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s]: %s", e.TransactionID, e.Description)
}

func (e ValidationError) Unwrap() error { return e.Err }

// AccountChecker tests whether an account code exists in the chart of
// accounts.
type AccountChecker interface {
	Exists(code string) bool
}

// ValidateTransaction enforces the posting invariants on a draft
// transaction: at least two postings, exactly one positive-amount side per
// posting, all accounts known, and debits equal to credits in minor units.
// Monetary sums use integer arithmetic only.
func ValidateTransaction(tx model.Transaction, accounts AccountChecker) []ValidationError {
	var errs []ValidationError
	id := tx.ID.String()

	if len(tx.Postings) < 2 {
		errs = append(errs, ValidationError{
			Err:           ErrTooFewPostings,
			TransactionID: id,
			Description:   fmt.Sprintf("got %d postings, need at least 2", len(tx.Postings)),
		})
	}

	for i, p := range tx.Postings {
		if p.Side != model.SideDebit && p.Side != model.SideCredit {
			errs = append(errs, ValidationError{
				Err:           ErrUnbalanced,
				TransactionID: id,
				Description:   fmt.Sprintf("posting %d has invalid side %q", i, p.Side),
			})
		}
		if p.Amount <= 0 {
			errs = append(errs, ValidationError{
				Err:           ErrUnbalanced,
				TransactionID: id,
				Description:   fmt.Sprintf("posting %d amount must be positive, got %d", i, p.Amount),
			})
		}
		if !accounts.Exists(p.AccountCode) {
			errs = append(errs, ValidationError{
				Err:           ErrUnknownAccount,
				TransactionID: id,
				Description:   fmt.Sprintf("posting %d references unknown account %s", i, p.AccountCode),
			})
		}
	}

	if debits, credits := tx.DebitTotal(), tx.CreditTotal(); debits != credits {
		errs = append(errs, ValidationError{
			Err:           ErrUnbalanced,
			TransactionID: id,
			Description:   fmt.Sprintf("debits (%d) != credits (%d) minor units", debits, credits),
		})
	}

	return errs
}

// joinValidation collapses validation errors into a single error that
// errors.Is can match against the underlying sentinels.
func joinValidation(errs []ValidationError) error {
	joined := make([]error, len(errs))
	for i, ve := range errs {
		joined[i] = ve
	}
	return fmt.Errorf("validation failed: %w", errors.Join(joined...))
}
