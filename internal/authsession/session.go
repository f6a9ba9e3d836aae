// Package authsession owns the OAuth2 token lifecycle for the authority
// API: acquisition via the authorization-code grant, transparent refresh
// with a single in-flight refresh per session, and expiry detection.
// Token values are handed to the injected secrets store and never logged.
package authsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tallied-dev/tallied/internal/metrics"
	"github.com/tallied-dev/tallied/internal/model"
)

// State is the session's position in its lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthorizing     State = "authorizing"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
	StateExpired         State = "expired"
)

// refreshMargin is how close to expiry a token may get before ValidToken
// refreshes it.
const refreshMargin = 60 * time.Second

var (
	// ErrAuthExpired means the refresh token itself is no longer usable
	// and the operator must re-authorize.
	ErrAuthExpired = errors.New("authsession: authorization expired")
	// ErrUnauthenticated means no token has ever been acquired.
	ErrUnauthenticated = errors.New("authsession: not authenticated")
	// ErrNoToken is returned by a TokenStore whose backing store holds
	// no persisted token.
	ErrNoToken = errors.New("authsession: no stored token")
)

// TokenStore is the secrets-store boundary the session persists its token
// through. LoadToken returns an error wrapping ErrNoToken when nothing
// has been persisted; any other error is a store failure and is surfaced
// to the caller rather than treated as an absent token.
type TokenStore interface {
	LoadToken(ctx context.Context) (model.AuthToken, error)
	SaveToken(ctx context.Context, token model.AuthToken) error
}

// Config is the OAuth2 application registration.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string // authorization consent endpoint
	TokenURL     string // token grant endpoint
	RedirectURI  string
	Scopes       []string
}

// Session manages one token lifecycle. Safe for concurrent use; concurrent
// callers observing a refresh in progress wait for its completion rather
// than issuing a duplicate refresh, since refresh tokens are single-use at
// the authority.
type Session struct {
	cfg    Config
	http   *http.Client
	tokens TokenStore
	log    *slog.Logger

	mu     sync.Mutex
	state  State
	token  model.AuthToken
	loaded bool

	refresh singleflight.Group
	now     func() time.Time
}

// NewSession creates a Session. httpClient may be nil for the default.
func NewSession(cfg Config, tokens TokenStore, httpClient *http.Client, log *slog.Logger) *Session {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		http:   httpClient,
		tokens: tokens,
		log:    log,
		state:  StateUnauthenticated,
		now:    time.Now,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AuthorizationURL builds the consent URL the operator must visit. state
// is the caller's CSRF token.
func (s *Session) AuthorizationURL(state string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {s.cfg.ClientID},
		"redirect_uri":  {s.cfg.RedirectURI},
		"scope":         {strings.Join(s.cfg.Scopes, " ")},
		"state":         {state},
	}
	return s.cfg.AuthURL + "?" + q.Encode()
}

// Acquire exchanges an authorization code for a token pair and persists
// it. The interactive consent step that produced the code is the caller's
// concern.
func (s *Session) Acquire(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("authsession: authorization code is required")
	}

	s.mu.Lock()
	s.state = StateAuthorizing
	s.mu.Unlock()

	token, err := s.grant(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {s.cfg.RedirectURI},
	})
	if err != nil {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.state = StateAuthenticated
	s.mu.Unlock()

	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	s.log.Info("authority authorization acquired", "expiry", token.Expiry)
	return nil
}

// ValidToken returns the current access token, transparently refreshing
// when it expires within the safety margin. Fails with ErrAuthExpired if
// the refresh token itself has expired.
func (s *Session) ValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		switch token, err := s.tokens.LoadToken(ctx); {
		case err == nil:
			s.token = token
			s.state = StateAuthenticated
			s.loaded = true
		case errors.Is(err, ErrNoToken):
			s.loaded = true
		default:
			// A failing store is not the same as never having
			// authorized; leave the session unloaded so a later call
			// can retry.
			s.mu.Unlock()
			return "", fmt.Errorf("loading persisted token: %w", err)
		}
	}
	token := s.token
	s.mu.Unlock()

	if token.ValidAt(s.now(), refreshMargin) {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		if token.AccessToken == "" {
			return "", ErrUnauthenticated
		}
		s.setState(StateExpired)
		return "", ErrAuthExpired
	}

	// Single-flight: at most one refresh in flight per session; everyone
	// else waits for its result.
	result, err, _ := s.refresh.Do("refresh", func() (any, error) {
		return s.doRefresh(ctx, token.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	return result.(model.AuthToken).AccessToken, nil
}

func (s *Session) doRefresh(ctx context.Context, refreshToken string) (model.AuthToken, error) {
	s.setState(StateRefreshing)

	token, err := s.grant(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		var ge *grantError
		if errors.As(err, &ge) && ge.Terminal() {
			s.setState(StateExpired)
			metrics.TokenRefreshes.WithLabelValues("expired").Inc()
			return model.AuthToken{}, fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
		s.setState(StateAuthenticated)
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return model.AuthToken{}, fmt.Errorf("refreshing token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.state = StateAuthenticated
	s.mu.Unlock()

	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return model.AuthToken{}, fmt.Errorf("persisting refreshed token: %w", err)
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	s.log.Debug("access token refreshed", "expiry", token.Expiry)
	return token, nil
}

// grantError is a non-2xx response from the token endpoint.
type grantError struct {
	Status int
	Code   string // OAuth2 error code, e.g. "invalid_grant"
}

func (e *grantError) Error() string {
	return fmt.Sprintf("token endpoint returned %d (%s)", e.Status, e.Code)
}

// Terminal reports whether the grant failure means re-authorization is
// required rather than a retry.
func (e *grantError) Terminal() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnauthorized
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (s *Session) grant(ctx context.Context, form url.Values) (model.AuthToken, error) {
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("building grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.ClientID, s.cfg.ClientSecret)

	resp, err := s.http.Do(req)
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("reading grant response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &oauthErr)
		return model.AuthToken{}, &grantError{Status: resp.StatusCode, Code: oauthErr.Error}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return model.AuthToken{}, fmt.Errorf("decoding grant response: %w", err)
	}
	if tr.ExpiresIn == 0 {
		tr.ExpiresIn = 3600
	}

	var scopes []string
	if tr.Scope != "" {
		scopes = strings.Fields(tr.Scope)
	}
	return model.AuthToken{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Expiry:       s.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scopes:       scopes,
	}, nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
