package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"exmcp/internal/domain"
	"exmcp/internal/infra/telemetry"
)

const (
	tokenPath    = "/accounts/api/v2/oauth2/token"
	safetyMargin = domain.TokenSafetyMarginSeconds * time.Second

	refreshKey = "token"
)

// Token is a bearer credential with its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be handed out at now, keeping
// the safety margin before the real expiry.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	if t.Value == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	OrgID        string
	Timeout      time.Duration
}

// Manager owns the single cached access token for the process. Reads of a
// valid cached token take the fast path with no exclusion beyond an RLock;
// refreshes are collapsed so at most one identity exchange is in flight.
type Manager struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time

	mu    sync.RWMutex
	token Token

	group singleflight.Group
}

func NewManager(cfg Config, logger *zap.Logger, metrics *telemetry.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultHTTPTimeoutSeconds * time.Second
	}
	return &Manager{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("auth"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Token returns a bearer token valid for at least the safety margin,
// performing a client-credentials exchange only when the cached token is
// absent or too close to expiry. Concurrent callers share one exchange.
func (m *Manager) Token(ctx context.Context) (Token, error) {
	m.mu.RLock()
	cached := m.token
	m.mu.RUnlock()
	if cached.Valid(m.now(), safetyMargin) {
		return cached, nil
	}

	v, err, _ := m.group.Do(refreshKey, func() (any, error) {
		// A caller that queued behind a finished refresh sees the fresh
		// token here and skips the exchange.
		m.mu.RLock()
		current := m.token
		m.mu.RUnlock()
		if current.Valid(m.now(), safetyMargin) {
			return current, nil
		}
		return m.refresh(ctx)
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

// Invalidate drops the cached token so the next caller forces an exchange.
// Used by the HTTP adapter when the catalog rejects a bearer token.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.token = Token{}
	m.mu.Unlock()
}

func (m *Manager) refresh(ctx context.Context) (Token, error) {
	const op = "auth.refresh"

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)

	endpoint := strings.TrimRight(m.cfg.BaseURL, "/") + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, domain.E(domain.CodeUnexpectedResponse, op, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		m.metrics.ObserveTokenRefresh(err)
		return Token{}, domain.E(domain.CodeNetworkFailure, op, "identity endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		m.metrics.ObserveTokenRefresh(err)
		return Token{}, domain.E(domain.CodeNetworkFailure, op, "read token response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err := domain.E(domain.CodeInvalidCredentials, op, "identity provider rejected client credentials", nil)
		m.metrics.ObserveTokenRefresh(err)
		return Token{}, err
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err := domain.E(domain.CodeUnexpectedResponse, op, "identity endpoint returned status "+resp.Status, nil)
		m.metrics.ObserveTokenRefresh(err)
		return Token{}, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		wrapped := domain.E(domain.CodeUnexpectedResponse, op, "malformed token response", err)
		m.metrics.ObserveTokenRefresh(wrapped)
		return Token{}, wrapped
	}
	if payload.AccessToken == "" {
		err := domain.E(domain.CodeUnexpectedResponse, op, "token response missing access_token", nil)
		m.metrics.ObserveTokenRefresh(err)
		return Token{}, err
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = domain.DefaultTokenExpirySeconds
	}

	token := Token{
		Value:     payload.AccessToken,
		ExpiresAt: m.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	m.metrics.ObserveTokenRefresh(nil)
	m.logger.Info("access token refreshed",
		zap.Time("expires_at", token.ExpiresAt),
		zap.String("token", telemetry.MaskSecret(token.Value)),
	)
	return token, nil
}
