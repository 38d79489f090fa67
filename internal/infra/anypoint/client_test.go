package anypoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"exmcp/internal/domain"
	"exmcp/internal/infra/auth"
)

type fakeTokens struct {
	value       atomic.Value
	invalidated atomic.Int64
	issued      atomic.Int64
}

func newFakeTokens(value string) *fakeTokens {
	f := &fakeTokens{}
	f.value.Store(value)
	return f
}

func (f *fakeTokens) Token(context.Context) (auth.Token, error) {
	f.issued.Add(1)
	return auth.Token{
		Value:     f.value.Load().(string),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeTokens) Invalidate() {
	f.invalidated.Add(1)
	f.value.Store("refreshed-token")
}

func newClientForTest(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:          baseURL,
		OrgID:            "org-123",
		Timeout:          5 * time.Second,
		MaxResponseBytes: 1 << 20,
	}, tokens, nil, nil)
}

func TestGetAttachesBearerToken(t *testing.T) {
	var seen atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := newClientForTest(t, server.URL, newFakeTokens("tok-abc"))

	_, err := c.ListAssets(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-abc", seen.Load())
}

func TestForcedRefreshOn401(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "Bearer refreshed-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tokens := newFakeTokens("stale-token")
	c := newClientForTest(t, server.URL, tokens)

	_, err := c.ListAssets(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), tokens.invalidated.Load())
	require.Equal(t, int64(2), calls.Load())
}

func TestPersistent401IsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := newFakeTokens("bad-token")
	c := newClientForTest(t, server.URL, tokens)

	_, err := c.ListAssets(context.Background(), "", nil, 10)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeInvalidCredentials))
	// One forced refresh, one retry, no more.
	require.Equal(t, int64(1), tokens.invalidated.Load())
}

func TestRetryableStatusIsNotRetriedInternally(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newClientForTest(t, server.URL, newFakeTokens("tok"))

	_, err := c.ListAssets(context.Background(), "", nil, 10)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeRetryable))
	require.True(t, domain.IsRetryable(err))
	require.Equal(t, int64(1), calls.Load())
}

func TestOversizedResponseRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	c := NewClient(Config{
		BaseURL:          server.URL,
		OrgID:            "org-123",
		Timeout:          5 * time.Second,
		MaxResponseBytes: 1024,
	}, newFakeTokens("tok"), nil, nil)

	_, err := c.ListAssets(context.Background(), "", nil, 10)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeRequest))
}

func TestDownloadEnforcesArchiveCeiling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(strings.Repeat("z", 2048)))
	}))
	defer server.Close()

	c := newClientForTest(t, server.URL, newFakeTokens("tok"))

	_, err := c.Download(context.Background(), server.URL+"/archive.zip", 512)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeArchiveTooLarge))

	data, err := c.Download(context.Background(), server.URL+"/archive.zip", 4096)
	require.NoError(t, err)
	require.Len(t, data, 2048)
}
