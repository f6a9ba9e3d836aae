package authority

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) ValidToken(context.Context) (string, error) { return string(t), nil }

func TestObligations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organisations/vat/123456789/obligations", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.hmrc.1.0+json", r.Header.Get("Accept"))
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-12-31", r.URL.Query().Get("to"))
		assert.Equal(t, "O", r.URL.Query().Get("status"))

		json.NewEncoder(w).Encode(map[string]any{
			"obligations": []map[string]any{{
				"periodKey": "25A1",
				"start":     "2025-01-01T00:00:00Z",
				"end":       "2025-03-31T00:00:00Z",
				"due":       "2025-05-07T00:00:00Z",
				"status":    "O",
			}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("access-token"), srv.Client())
	got, err := c.Obligations(context.Background(),
		"123456789",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		ObligationStatusOpen)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "25A1", got[0].PeriodKey)
	assert.Equal(t, "O", got[0].Status)
}

func TestSubmitVATReturn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/organisations/vat/123456789/returns", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "25A1", body["periodKey"])
		assert.Equal(t, true, body["finalised"])
		assert.EqualValues(t, 240, body["vatDueSales"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"processingDate":   "2025-05-01T12:00:00Z",
			"formBundleNumber": "256660290587",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("access-token"), srv.Client())
	receipt, err := c.SubmitVATReturn(context.Background(), "123456789", "25A1", map[string]decimal.Decimal{
		"vatDueSales": decimal.RequireFromString("240"),
	})
	require.NoError(t, err)
	assert.Equal(t, "256660290587", receipt.FormBundleNumber)
}

func TestViewReturn_FiltersNonNumericFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organisations/vat/123456789/returns/25A1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"periodKey":   "25A1",
			"vatDueSales": 240.00,
			"netVatDue":   240.00,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("access-token"), srv.Client())
	lines, err := c.ViewReturn(context.Background(), "123456789", "25A1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.True(t, lines["vatDueSales"].Equal(decimal.RequireFromString("240")))
}

func TestStatusErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":"INVALID_PERIOD_KEY"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("access-token"), srv.Client())
	_, err := c.SubmitVATReturn(context.Background(), "123456789", "bad", nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Code)
	assert.True(t, statusErr.Rejection())
	assert.False(t, statusErr.Transient())
	assert.Contains(t, statusErr.Body, "INVALID_PERIOD_KEY")
}

func TestStatusErrorTransient(t *testing.T) {
	e := &StatusError{Code: http.StatusServiceUnavailable}
	assert.True(t, e.Transient())
	assert.False(t, e.Rejection())
}

func TestIsUnknownOutcome(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	assert.True(t, IsUnknownOutcome(ctx.Err()))
	assert.False(t, IsUnknownOutcome(context.Canceled))
	assert.False(t, IsUnknownOutcome(&StatusError{Code: 503}))
}

func TestDo_TokenSourceFailurePropagates(t *testing.T) {
	c := New("http://unused.invalid", failingToken{}, nil)

	_, err := c.Obligations(context.Background(), "123456789", time.Now(), time.Now(), "")
	assert.Error(t, err)
}

type failingToken struct{}

func (failingToken) ValidToken(context.Context) (string, error) {
	return "", assert.AnError
}
