// Package taxengine derives statutory VAT and income tax figures from
// ledger state for a closed period. Computation is a pure function of the
// period's transactions, the account plan, and the versioned config:
// recomputing without changing inputs yields an identical checksum.
package taxengine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallied-dev/tallied/internal/model"
)

// ErrPeriodNotClosed means computation was requested for a period that has
// not been administratively closed.
var ErrPeriodNotClosed = errors.New("taxengine: period not closed")

// LedgerReader is the slice of the ledger the engine needs.
type LedgerReader interface {
	Period(key string) (model.Period, error)
	PostedInRange(start, end time.Time) []model.Transaction
}

// PlanReader resolves account codes to accounts.
type PlanReader interface {
	Get(code string) (model.Account, error)
}

// Engine computes tax returns. It holds no mutable state and is safe for
// concurrent use across periods.
type Engine struct {
	ledger LedgerReader
	plan   PlanReader
	cfg    Config
	now    func() time.Time
}

// New creates an Engine pinned to a statutory configuration version.
func New(ledger LedgerReader, plan PlanReader, cfg Config) *Engine {
	return &Engine{ledger: ledger, plan: plan, cfg: cfg, now: time.Now}
}

// eligiblePeriod loads a period and checks it is frozen for computation.
// Submitted periods remain computable so divergence from the submitted
// figures can be detected by checksum.
func (e *Engine) eligiblePeriod(key string) (model.Period, error) {
	p, err := e.ledger.Period(key)
	if err != nil {
		return model.Period{}, err
	}
	if p.Status != model.PeriodClosed && p.Status != model.PeriodSubmitted {
		return model.Period{}, fmt.Errorf("%w: %s is %s", ErrPeriodNotClosed, key, p.Status)
	}
	return p, nil
}

// checksumInput is the canonical encoding of everything a computation
// depends on.
type checksumInput struct {
	PeriodKey     string        `json:"period_key"`
	Kind          model.TaxKind `json:"kind"`
	ConfigVersion string        `json:"config_version"`
	Transactions  []checksumTxn `json:"transactions"`
}

type checksumTxn struct {
	ID       string          `json:"id"`
	Seq      int64           `json:"seq"`
	Postings []model.Posting `json:"postings"`
}

func (e *Engine) checksum(p model.Period, kind model.TaxKind, txns []model.Transaction) string {
	in := checksumInput{
		PeriodKey:     p.Key,
		Kind:          kind,
		ConfigVersion: e.cfg.Version,
		Transactions:  make([]checksumTxn, 0, len(txns)),
	}
	for _, tx := range txns {
		in.Transactions = append(in.Transactions, checksumTxn{
			ID:       tx.ID.String(),
			Seq:      tx.Seq,
			Postings: tx.Postings,
		})
	}

	raw, _ := json.Marshal(in)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// netMovement returns an account's net period movement on its normal side
// in minor units: credit-net for income, debit-net for expenses.
func netMovement(acct model.Account, txns []model.Transaction) int64 {
	var debits, credits int64
	for _, tx := range txns {
		for _, p := range tx.Postings {
			if p.AccountCode != acct.Code {
				continue
			}
			if p.Side == model.SideDebit {
				debits += p.Amount
			} else {
				credits += p.Amount
			}
		}
	}
	if acct.Type.NormalSide() == model.SideDebit {
		return debits - credits
	}
	return credits - debits
}

// pounds converts a minor-unit amount to a major-unit decimal.
func pounds(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
