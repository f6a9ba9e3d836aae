package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusDraft  TransactionStatus = "draft"
	StatusPosted TransactionStatus = "posted"
	StatusVoid   TransactionStatus = "void"
)

// Posting is a single debit or credit line within a transaction. Amounts
// are signed minor-unit integers; monetary sums never touch floating point.
type Posting struct {
	AccountCode string `json:"account_code"`
	Amount      int64  `json:"amount"` // minor units, always positive
	Side        Side   `json:"side"`
}

// Transaction is a double-entry record. Once posted it is immutable;
// corrections are new reversing transactions, never mutations.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description,omitempty"`
	Postings    []Posting         `json:"postings"`
	Status      TransactionStatus `json:"status"`
	Currency    string            `json:"currency"`

	// Seq is the insertion order assigned at posting time, used to break
	// timestamp ties in balance folds.
	Seq int64 `json:"seq"`

	// ReversalOf links a reversing transaction back to the voided original.
	ReversalOf uuid.UUID `json:"reversal_of,omitempty"`
	// VoidedBy links a voided original to its reversing transaction.
	VoidedBy uuid.UUID `json:"voided_by,omitempty"`
}

// DebitTotal sums the debit postings in minor units.
func (t Transaction) DebitTotal() int64 {
	var sum int64
	for _, p := range t.Postings {
		if p.Side == SideDebit {
			sum += p.Amount
		}
	}
	return sum
}

// CreditTotal sums the credit postings in minor units.
func (t Transaction) CreditTotal() int64 {
	var sum int64
	for _, p := range t.Postings {
		if p.Side == SideCredit {
			sum += p.Amount
		}
	}
	return sum
}

// Balanced reports whether debits equal credits to the minor unit.
func (t Transaction) Balanced() bool {
	return t.DebitTotal() == t.CreditTotal()
}

// Reversal builds a draft transaction that undoes t by swapping the side
// of every posting. The original postings are retained on t for audit.
func (t Transaction) Reversal(now time.Time) Transaction {
	postings := make([]Posting, len(t.Postings))
	for i, p := range t.Postings {
		side := SideDebit
		if p.Side == SideDebit {
			side = SideCredit
		}
		postings[i] = Posting{AccountCode: p.AccountCode, Amount: p.Amount, Side: side}
	}
	return Transaction{
		ID:          uuid.New(),
		Timestamp:   now,
		Description: "Reversal: " + t.Description,
		Postings:    postings,
		Status:      StatusDraft,
		Currency:    t.Currency,
		ReversalOf:  t.ID,
	}
}
