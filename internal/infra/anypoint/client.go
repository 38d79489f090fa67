package anypoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"exmcp/internal/domain"
	"exmcp/internal/infra/auth"
	"exmcp/internal/infra/telemetry"
)

// TokenSource supplies bearer tokens for catalog calls.
type TokenSource interface {
	Token(ctx context.Context) (auth.Token, error)
	Invalidate()
}

type Config struct {
	BaseURL          string
	OrgID            string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// Client is the outbound HTTP adapter for the Exchange catalog API. Every
// call attaches the current bearer token, applies the shared timeout and
// response-size ceiling, and translates statuses into domain errors.
type Client struct {
	cfg     Config
	tokens  TokenSource
	http    *http.Client
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

func NewClient(cfg Config, tokens TokenSource, logger *zap.Logger, metrics *telemetry.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultHTTPTimeoutSeconds * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = domain.DefaultMaxResponseBytes
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("anypoint"),
		metrics: metrics,
	}
}

// get performs one authenticated GET against the catalog. A 401/403
// triggers exactly one forced token refresh and one retry.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	body, status, err := c.attempt(ctx, operation, path, query)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.tokens.Invalidate()
		body, status, err = c.attempt(ctx, operation, path, query)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, domain.E(domain.CodeInvalidCredentials, operation,
				"catalog rejected bearer token after forced refresh", nil)
		}
	}
	return body, err
}

func (c *Client) attempt(ctx context.Context, operation, path string, query url.Values) ([]byte, int, error) {
	start := time.Now()
	requestID := uuid.NewString()

	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.metrics.ObserveCatalogRequest(operation, time.Since(start), err)
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, domain.E(domain.CodeRequest, operation, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := domain.E(domain.CodeNetworkFailure, operation, "catalog unreachable", err)
		c.metrics.ObserveCatalogRequest(operation, time.Since(start), wrapped)
		return nil, 0, wrapped
	}
	defer resp.Body.Close()

	body, err := c.readBounded(resp.Body)
	duration := time.Since(start)
	if err != nil {
		wrapped := domain.Wrap(domain.CodeRequest, operation, err)
		c.metrics.ObserveCatalogRequest(operation, duration, wrapped)
		return nil, resp.StatusCode, wrapped
	}

	c.logger.Debug("catalog request",
		telemetry.OperationField(operation),
		telemetry.RequestIDField(requestID),
		zap.String("url", target),
		telemetry.StatusField(resp.StatusCode),
		telemetry.DurationField(duration),
	)

	statusErr := statusError(operation, resp.StatusCode)
	c.metrics.ObserveCatalogRequest(operation, duration, statusErr)
	if statusErr != nil {
		return nil, resp.StatusCode, statusErr
	}
	return body, resp.StatusCode, nil
}

func (c *Client) readBounded(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.cfg.MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", c.cfg.MaxResponseBytes)
	}
	return body, nil
}

// Download fetches archive bytes from a pre-signed link. The link already
// embeds its authorization, so no bearer header is attached. maxBytes
// guards against resource exhaustion from an oversized archive.
func (c *Client) Download(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	const operation = "download"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.E(domain.CodeRequest, operation, "build download request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := domain.E(domain.CodeNetworkFailure, operation, "archive host unreachable", err)
		c.metrics.ObserveCatalogRequest(operation, time.Since(start), wrapped)
		return nil, wrapped
	}
	defer resp.Body.Close()

	if err := statusError(operation, resp.StatusCode); err != nil {
		c.metrics.ObserveCatalogRequest(operation, time.Since(start), err)
		return nil, err
	}

	if maxBytes <= 0 {
		maxBytes = domain.DefaultMaxArchiveBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		wrapped := domain.E(domain.CodeNetworkFailure, operation, "read archive", err)
		c.metrics.ObserveCatalogRequest(operation, time.Since(start), wrapped)
		return nil, wrapped
	}
	if int64(len(body)) > maxBytes {
		wrapped := domain.E(domain.CodeArchiveTooLarge, operation,
			fmt.Sprintf("archive exceeds %d bytes", maxBytes), nil)
		c.metrics.ObserveCatalogRequest(operation, time.Since(start), wrapped)
		return nil, wrapped
	}

	c.metrics.ObserveCatalogRequest(operation, time.Since(start), nil)
	return body, nil
}

func statusError(operation string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.E(domain.CodeInvalidCredentials, operation, "catalog rejected credentials", nil)
	case status == http.StatusNotFound:
		return domain.E(domain.CodeNotFound, operation, "catalog resource not found", nil)
	case status == http.StatusTooManyRequests || status >= 500:
		return domain.E(domain.CodeRetryable, operation,
			fmt.Sprintf("catalog returned status %d; retry with backoff", status), nil)
	default:
		return domain.E(domain.CodeRequest, operation,
			fmt.Sprintf("catalog returned status %d", status), nil)
	}
}
