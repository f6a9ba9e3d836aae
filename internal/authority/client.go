// Package authority is the HTTPS client for the tax authority's MTD REST
// API: obligation listing, return submission, and return retrieval. Only
// the subset of the API surface the core needs is covered; request and
// response bodies are structured line-identifier to value mappings.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// acceptHeader pins the authority's versioned media type.
const acceptHeader = "application/vnd.hmrc.1.0+json"

// Obligation statuses as the authority encodes them.
const (
	ObligationStatusOpen      = "O"
	ObligationStatusFulfilled = "F"
)

// TokenSource supplies a valid bearer token; implemented by
// authsession.Session.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}

// StatusError is a non-2xx response from the authority.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("authority returned %d: %s", e.Code, e.Body)
}

// Transient reports whether the failure class is retriable (5xx).
func (e *StatusError) Transient() bool { return e.Code >= 500 }

// Rejection reports whether the authority rejected the request itself
// (4xx validation class). Rejections are never retried verbatim.
func (e *StatusError) Rejection() bool { return e.Code >= 400 && e.Code < 500 }

// Obligation is one entry of the authority's obligation listing.
type Obligation struct {
	PeriodKey string    `json:"periodKey"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Due       time.Time `json:"due"`
	Status    string    `json:"status"`
	Received  time.Time `json:"received,omitempty"`
}

// Receipt is the authority's acceptance of a submitted return.
type Receipt struct {
	ProcessingDate   time.Time `json:"processingDate"`
	FormBundleNumber string    `json:"formBundleNumber"`
	PaymentIndicator string    `json:"paymentIndicator,omitempty"`
	ChargeRefNumber  string    `json:"chargeRefNumber,omitempty"`
}

// Client talks to one authority environment for one taxpayer registration.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// New creates a Client. httpClient may be nil for a default with a 30s
// timeout; callers control per-request deadlines via context.
func New(base string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: base, http: httpClient, tokens: tokens}
}

// Obligations lists VAT obligations for a registration over a date window.
// status may be empty, ObligationStatusOpen, or ObligationStatusFulfilled.
func (c *Client) Obligations(ctx context.Context, vrn string, from, to time.Time, status string) ([]Obligation, error) {
	q := url.Values{
		"from": {from.Format("2006-01-02")},
		"to":   {to.Format("2006-01-02")},
	}
	if status != "" {
		q.Set("status", status)
	}

	var out struct {
		Obligations []Obligation `json:"obligations"`
	}
	path := fmt.Sprintf("/organisations/vat/%s/obligations", vrn)
	if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Obligations, nil
}

// SubmitVATReturn submits the 9-box figures for a period. The body is the
// line mapping plus the authority's period key and the mandatory finalised
// declaration.
func (c *Client) SubmitVATReturn(ctx context.Context, vrn, periodKey string, lines map[string]decimal.Decimal) (Receipt, error) {
	body := make(map[string]any, len(lines)+2)
	for id, v := range lines {
		body[id] = v
	}
	body["periodKey"] = periodKey
	body["finalised"] = true

	var receipt Receipt
	path := fmt.Sprintf("/organisations/vat/%s/returns", vrn)
	if err := c.do(ctx, http.MethodPost, path, body, &receipt); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// ViewReturn retrieves the authority's copy of a previously submitted
// return, used to reconcile unknown-outcome submissions.
func (c *Client) ViewReturn(ctx context.Context, vrn, periodKey string) (map[string]decimal.Decimal, error) {
	var out map[string]json.RawMessage
	path := fmt.Sprintf("/organisations/vat/%s/returns/%s", vrn, url.PathEscape(periodKey))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	lines := make(map[string]decimal.Decimal)
	for id, raw := range out {
		var v decimal.Decimal
		if err := json.Unmarshal(raw, &v); err != nil {
			continue // non-numeric fields (periodKey, …) are not lines
		}
		lines[id] = v
	}
	return lines, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling authority: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// IsUnknownOutcome reports whether a submission error leaves the
// authority's state unknown: the request may have been dispatched but no
// response was read. Such failures require reconciliation, never a blind
// retry.
func IsUnknownOutcome(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
