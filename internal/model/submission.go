package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionState is the pipeline state machine position for a tax return.
type SubmissionState string

const (
	SubmissionComputed       SubmissionState = "computed"
	SubmissionAuthenticating SubmissionState = "authenticating"
	SubmissionSubmitting     SubmissionState = "submitting"
	SubmissionRetrying       SubmissionState = "retrying"
	SubmissionAccepted       SubmissionState = "accepted"
	SubmissionRejected       SubmissionState = "rejected"
	SubmissionError          SubmissionState = "error"
)

// SubmissionOutcome is the terminal classification of an attempt series.
type SubmissionOutcome string

const (
	OutcomePending  SubmissionOutcome = "pending"
	OutcomeAccepted SubmissionOutcome = "accepted"
	OutcomeRejected SubmissionOutcome = "rejected"
	OutcomeError    SubmissionOutcome = "error"
)

// SubmissionRecord is one row of the submission audit trail: one record
// per network attempt, appended and never overwritten or pruned. SeriesID
// groups the attempts of a single submit call; AttemptCount is the ordinal
// within the series.
type SubmissionRecord struct {
	ID            uuid.UUID         `json:"id"`
	SeriesID      uuid.UUID         `json:"series_id"`
	PeriodKey     string            `json:"period_key"`
	Checksum      string            `json:"checksum"`
	State         SubmissionState   `json:"state"`
	Outcome       SubmissionOutcome `json:"outcome"`
	AttemptCount  int               `json:"attempt_count"`
	LastAttemptAt time.Time         `json:"last_attempt_at,omitempty"`
	NextAttemptAt time.Time         `json:"next_attempt_at,omitempty"`
	AuthorityRef  string            `json:"authority_ref,omitempty"`
	ResponseBody  string            `json:"response_body,omitempty"`
	ErrorDetail   string            `json:"error_detail,omitempty"`

	// NeedsReconciliation marks an unknown-outcome timeout: the request was
	// dispatched but no response was read, so the authority must be queried
	// before any further attempt.
	NeedsReconciliation bool `json:"needs_reconciliation,omitempty"`
}
