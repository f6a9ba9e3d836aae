// Package metrics declares the Prometheus instruments for the core.
// They register on the default registry; serving them is the caller's
// concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsPosted counts successfully committed ledger transactions.
	TransactionsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallied_transactions_posted_total",
		Help: "Total ledger transactions committed",
	})

	// SubmissionAttempts counts network submission attempts by outcome
	// class (accepted, rejected, transient, error).
	SubmissionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallied_submission_attempts_total",
		Help: "Total return submission attempts, labeled by outcome",
	}, []string{"outcome"})

	// TokenRefreshes counts OAuth2 refresh grants by result.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallied_token_refreshes_total",
		Help: "Total OAuth2 token refreshes, labeled by result",
	}, []string{"result"})
)
