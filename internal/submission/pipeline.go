// Package submission drives a tax return through the authority exchange:
// idempotence check, authentication, network submission with bounded
// exponential backoff, and outcome recording. Every network attempt
// appends a SubmissionRecord, forming an audit trail that is never pruned;
// attempt count and next-eligible-time are persisted so a crashed process
// can resume outstanding retries.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallied-dev/tallied/internal/authority"
	"github.com/tallied-dev/tallied/internal/authsession"
	"github.com/tallied-dev/tallied/internal/metrics"
	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/obligations"
	"github.com/tallied-dev/tallied/internal/store"
)

var (
	// ErrAuthRequired means authentication failed terminally; the operator
	// must re-authorize before any submission can proceed.
	ErrAuthRequired = errors.New("submission: authorization required")
	// ErrRejected means the authority rejected the return (4xx validation
	// class). Rejections are terminal for this return version.
	ErrRejected = errors.New("submission: return rejected by authority")
	// ErrRetriesExhausted means the attempt ceiling was reached on
	// transient failures.
	ErrRetriesExhausted = errors.New("submission: retry attempts exhausted")
	// ErrUnknownOutcome means a timeout fired after the request was
	// dispatched; the authority must be reconciled before resubmitting.
	ErrUnknownOutcome = errors.New("submission: outcome unknown, reconciliation required")
	// ErrChecksumDivergence means the period already has an accepted
	// submission with different figures.
	ErrChecksumDivergence = errors.New("submission: accepted submission exists with divergent checksum")
)

// Client is the authority surface the pipeline needs; implemented by
// authority.Client.
type Client interface {
	SubmitVATReturn(ctx context.Context, vrn, periodKey string, lines map[string]decimal.Decimal) (authority.Receipt, error)
	Obligations(ctx context.Context, vrn string, from, to time.Time, status string) ([]authority.Obligation, error)
	ViewReturn(ctx context.Context, vrn, periodKey string) (map[string]decimal.Decimal, error)
}

// TokenSource is the authentication step of the pipeline.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}

// Pipeline submits tax returns for one taxpayer registration.
type Pipeline struct {
	store   store.Store
	tracker *obligations.Tracker
	auth    TokenSource
	client  Client
	vrn     string
	log     *slog.Logger

	maxAttempts int
	newBackoff  func() backoff.BackOff
	now         func() time.Time

	// perChecksum serializes concurrent submits of identical data so the
	// authority can never receive two accepted submissions for the same
	// checksum.
	mu          sync.Mutex
	perChecksum map[string]*sync.Mutex
}

// defaultMaxAttempts is the network attempt ceiling per submit call.
const defaultMaxAttempts = 5

// New creates a Pipeline.
func New(st store.Store, tracker *obligations.Tracker, auth TokenSource, client Client, vrn string, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:       st,
		tracker:     tracker,
		auth:        auth,
		client:      client,
		vrn:         vrn,
		log:         log,
		maxAttempts: defaultMaxAttempts,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = 0
			return b
		},
		now:         time.Now,
		perChecksum: make(map[string]*sync.Mutex),
	}
}

// Submit drives a tax return through the state machine. When an accepted
// record already exists for the same checksum the cached result is
// returned without touching the network.
func (p *Pipeline) Submit(ctx context.Context, ret model.TaxReturn) (model.SubmissionRecord, error) {
	lock := p.checksumLock(ret.Checksum)
	lock.Lock()
	defer lock.Unlock()

	records, err := p.Records(ctx)
	if err != nil {
		return model.SubmissionRecord{}, err
	}
	for _, rec := range records {
		if rec.Outcome != model.OutcomeAccepted {
			continue
		}
		if rec.Checksum == ret.Checksum {
			p.log.Info("submission already accepted, returning cached result",
				"period", ret.PeriodKey, "authority_ref", rec.AuthorityRef)
			return rec, nil
		}
		if rec.PeriodKey == ret.PeriodKey {
			return model.SubmissionRecord{}, fmt.Errorf("%w: period %s accepted as %s",
				ErrChecksumDivergence, ret.PeriodKey, rec.Checksum)
		}
	}

	if err := p.saveReturn(ctx, ret); err != nil {
		return model.SubmissionRecord{}, err
	}

	return p.run(ctx, ret, uuid.New(), 0)
}

// run executes the attempt loop for a series, starting after attempt
// number `done`.
func (p *Pipeline) run(ctx context.Context, ret model.TaxReturn, seriesID uuid.UUID, done int) (model.SubmissionRecord, error) {
	record := model.SubmissionRecord{
		SeriesID:  seriesID,
		PeriodKey: ret.PeriodKey,
		Checksum:  ret.Checksum,
		State:     model.SubmissionAuthenticating,
		Outcome:   model.OutcomePending,
	}

	// Authentication failures are actionable operator errors, reported and
	// never retried automatically.
	if _, err := p.auth.ValidToken(ctx); err != nil {
		if errors.Is(err, authsession.ErrAuthExpired) || errors.Is(err, authsession.ErrUnauthenticated) {
			record, aerr := p.append(ctx, record, func(r *model.SubmissionRecord) {
				r.State = model.SubmissionError
				r.Outcome = model.OutcomeError
				r.ErrorDetail = err.Error()
			})
			return record, errors.Join(fmt.Errorf("%w: %v", ErrAuthRequired, err), aerr)
		}
		return record, fmt.Errorf("authenticating: %w", err)
	}

	wait := p.newBackoff()
	var aerr error
	for attempt := done + 1; ; attempt++ {
		record.AttemptCount = attempt
		record, aerr = p.append(ctx, record, func(r *model.SubmissionRecord) {
			r.State = model.SubmissionSubmitting
			r.LastAttemptAt = p.now().UTC()
			r.NextAttemptAt = time.Time{}
		})
		if aerr != nil {
			// No attempt row means no attempt; stop before touching the
			// network so the audit trail never underreports.
			return record, fmt.Errorf("recording submission attempt: %w", aerr)
		}

		receipt, err := p.client.SubmitVATReturn(ctx, p.vrn, ret.PeriodKey, ret.Lines)
		if err == nil {
			raw, _ := json.Marshal(receipt)
			record, aerr = p.append(ctx, record, func(r *model.SubmissionRecord) {
				r.State = model.SubmissionAccepted
				r.Outcome = model.OutcomeAccepted
				r.AuthorityRef = receipt.FormBundleNumber
				r.ResponseBody = string(raw)
			})
			metrics.SubmissionAttempts.WithLabelValues("accepted").Inc()
			p.fulfill(ctx, ret.PeriodKey, receipt.FormBundleNumber)
			if aerr != nil {
				return record, fmt.Errorf("return accepted as %s but audit record not persisted: %w",
					receipt.FormBundleNumber, aerr)
			}
			return record, nil
		}

		var statusErr *authority.StatusError
		switch {
		case authority.IsUnknownOutcome(err):
			record, aerr = p.append(ctx, record, func(r *model.SubmissionRecord) {
				r.State = model.SubmissionError
				r.Outcome = model.OutcomeError
				r.ErrorDetail = err.Error()
				r.NeedsReconciliation = true
			})
			metrics.SubmissionAttempts.WithLabelValues("unknown").Inc()
			return record, errors.Join(fmt.Errorf("%w: %v", ErrUnknownOutcome, err), aerr)

		case errors.As(err, &statusErr) && statusErr.Rejection():
			record, aerr = p.append(ctx, record, func(r *model.SubmissionRecord) {
				r.State = model.SubmissionRejected
				r.Outcome = model.OutcomeRejected
				r.ErrorDetail = statusErr.Body
			})
			metrics.SubmissionAttempts.WithLabelValues("rejected").Inc()
			return record, errors.Join(fmt.Errorf("%w: %v", ErrRejected, err), aerr)
		}

		// Transport-level or 5xx-class failure: transient.
		metrics.SubmissionAttempts.WithLabelValues("transient").Inc()
		if attempt >= p.maxAttempts {
			record, aerr = p.append(ctx, record, func(r *model.SubmissionRecord) {
				r.State = model.SubmissionError
				r.Outcome = model.OutcomeError
				r.ErrorDetail = err.Error()
			})
			return record, errors.Join(
				fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, err), aerr)
		}

		delay := wait.NextBackOff()
		record, aerr = p.append(ctx, record, func(r *model.SubmissionRecord) {
			r.State = model.SubmissionRetrying
			r.ErrorDetail = err.Error()
			r.NextAttemptAt = p.now().UTC().Add(delay)
		})
		if aerr != nil {
			// Without a persisted retry row Resume cannot pick the series
			// back up, so the loop must not continue silently.
			return record, fmt.Errorf("recording retry state: %w", aerr)
		}
		p.log.Warn("submission attempt failed, backing off",
			"period", ret.PeriodKey, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			// The retry stays outstanding in the persisted record and can
			// be picked up by Resume.
			return record, ctx.Err()
		case <-timer.C:
		}
	}
}

// Resume re-enters the retry loop for series whose persisted
// next-eligible-time has passed, continuing their attempt counts.
func (p *Pipeline) Resume(ctx context.Context) error {
	records, err := p.Records(ctx)
	if err != nil {
		return err
	}

	// Records list in insertion order; the last row per series wins.
	latest := make(map[uuid.UUID]model.SubmissionRecord)
	for _, rec := range records {
		latest[rec.SeriesID] = rec
	}

	for seriesID, rec := range latest {
		if rec.State != model.SubmissionRetrying || rec.NextAttemptAt.After(p.now()) {
			continue
		}
		ret, err := p.loadReturn(ctx, rec.Checksum)
		if err != nil {
			p.log.Error("cannot resume submission, stored return missing",
				"series", seriesID, "checksum", rec.Checksum, "error", err)
			continue
		}

		lock := p.checksumLock(ret.Checksum)
		lock.Lock()
		_, err = p.run(ctx, ret, seriesID, rec.AttemptCount)
		lock.Unlock()
		if err != nil {
			p.log.Warn("resumed submission did not complete", "series", seriesID, "error", err)
		}
	}
	return nil
}

// Reconcile resolves an unknown-outcome submission by querying the
// authority's view of the obligation. Returns true when the authority
// shows the period fulfilled; the obligation is then marked locally and
// the authority's recorded figures are cross-checked against the stored
// return, with any divergence noted on the reconciled audit row.
func (p *Pipeline) Reconcile(ctx context.Context, rec model.SubmissionRecord) (bool, error) {
	ob, err := p.tracker.Get(rec.PeriodKey)
	if err != nil {
		return false, err
	}

	remote, err := p.client.Obligations(ctx, p.vrn, ob.Start, ob.End, authority.ObligationStatusFulfilled)
	if err != nil {
		return false, fmt.Errorf("querying authority obligations: %w", err)
	}
	for _, ro := range remote {
		if ro.PeriodKey != rec.PeriodKey {
			continue
		}
		detail := p.crossCheck(ctx, rec)
		_, aerr := p.append(ctx, rec, func(r *model.SubmissionRecord) {
			r.State = model.SubmissionAccepted
			r.Outcome = model.OutcomeAccepted
			r.NeedsReconciliation = false
			r.ErrorDetail = detail
		})
		p.fulfill(ctx, rec.PeriodKey, "reconciled:"+rec.PeriodKey)
		return true, aerr
	}
	return false, nil
}

// crossCheck fetches the authority's copy of the submitted return and
// compares it line by line with the stored figures. A non-empty result
// describes the first divergence; view failures are logged and skipped
// since the reconciliation outcome does not depend on them.
func (p *Pipeline) crossCheck(ctx context.Context, rec model.SubmissionRecord) string {
	stored, err := p.loadReturn(ctx, rec.Checksum)
	if err != nil {
		p.log.Warn("stored return missing, skipping figure cross-check",
			"period", rec.PeriodKey, "checksum", rec.Checksum, "error", err)
		return ""
	}
	remote, err := p.client.ViewReturn(ctx, p.vrn, rec.PeriodKey)
	if err != nil {
		p.log.Warn("viewing submitted return", "period", rec.PeriodKey, "error", err)
		return ""
	}

	ids := make([]string, 0, len(remote))
	for id := range remote {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		local, ok := stored.Lines[id]
		if !ok || local.Equal(remote[id]) {
			continue
		}
		p.log.Warn("authority figures differ from stored return",
			"period", rec.PeriodKey, "line", id, "authority", remote[id], "stored", local)
		return fmt.Sprintf("authority reports %s=%s, stored return has %s", id, remote[id], local)
	}
	return ""
}

// Records returns the full submission audit trail in insertion order.
func (p *Pipeline) Records(ctx context.Context) ([]model.SubmissionRecord, error) {
	raw, err := p.store.List(ctx, store.KindSubmission)
	if err != nil {
		return nil, fmt.Errorf("loading submission records: %w", err)
	}
	out := make([]model.SubmissionRecord, 0, len(raw))
	for _, rec := range raw {
		var r model.SubmissionRecord
		if err := json.Unmarshal(rec, &r); err != nil {
			return nil, fmt.Errorf("decoding submission record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// append persists a new audit row derived from the previous one. The
// mutated record is returned even on a failed write so an outcome already
// decided by the authority is never lost; the error reports the write.
func (p *Pipeline) append(ctx context.Context, prev model.SubmissionRecord, mutate func(*model.SubmissionRecord)) (model.SubmissionRecord, error) {
	rec := prev
	rec.ID = uuid.New()
	mutate(&rec)

	raw, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("encoding submission record: %w", err)
	}
	if err := p.store.Save(ctx, store.KindSubmission, rec.ID.String(), raw); err != nil {
		return rec, fmt.Errorf("persisting submission record %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (p *Pipeline) fulfill(ctx context.Context, periodKey, authorityRef string) {
	err := p.tracker.MarkFulfilled(ctx, periodKey, authorityRef)
	if err != nil && !errors.Is(err, obligations.ErrNotFound) {
		p.log.Warn("marking obligation fulfilled", "period", periodKey, "error", err)
	}
}

func (p *Pipeline) checksumLock(checksum string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.perChecksum[checksum]; !ok {
		p.perChecksum[checksum] = &sync.Mutex{}
	}
	return p.perChecksum[checksum]
}

func (p *Pipeline) saveReturn(ctx context.Context, ret model.TaxReturn) error {
	raw, err := json.Marshal(ret)
	if err != nil {
		return fmt.Errorf("encoding tax return: %w", err)
	}
	if err := p.store.Save(ctx, store.KindTaxReturn, ret.Checksum, raw); err != nil {
		return fmt.Errorf("saving tax return: %w", err)
	}
	return nil
}

func (p *Pipeline) loadReturn(ctx context.Context, checksum string) (model.TaxReturn, error) {
	raw, err := p.store.Load(ctx, store.KindTaxReturn, checksum)
	if err != nil {
		return model.TaxReturn{}, err
	}
	var ret model.TaxReturn
	if err := json.Unmarshal(raw, &ret); err != nil {
		return model.TaxReturn{}, fmt.Errorf("decoding tax return: %w", err)
	}
	return ret, nil
}
