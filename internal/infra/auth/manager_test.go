package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"exmcp/internal/domain"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, tokenPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		exchanges.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	}))
}

func newManagerForTest(t *testing.T, baseURL string) *Manager {
	t.Helper()
	return NewManager(Config{
		BaseURL:      baseURL,
		ClientID:     "client",
		ClientSecret: "secret",
		OrgID:        "org",
		Timeout:      5 * time.Second,
	}, nil, nil)
}

func TestTokenReuseSkipsNetwork(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges)
	defer server.Close()

	m := newManagerForTest(t, server.URL)

	first, err := m.Token(context.Background())
	require.NoError(t, err)
	second, err := m.Token(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(1), exchanges.Load())
}

func TestConcurrentCallersShareOneExchange(t *testing.T) {
	var exchanges atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		time.Sleep(20 * time.Millisecond) // widen the refresh window
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-shared",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	m := newManagerForTest(t, server.URL)

	const callers = 16
	tokens := make([]Token, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.Token(context.Background())
			require.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), exchanges.Load())
	for _, tok := range tokens {
		require.Equal(t, "tok-shared", tok.Value)
	}
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges)
	defer server.Close()

	m := newManagerForTest(t, server.URL)

	now := time.Now()
	m.now = func() time.Time { return now }

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), exchanges.Load())

	// Inside the safety margin the cached token must not be handed out.
	now = now.Add(3600*time.Second - 30*time.Second)
	_, err = m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), exchanges.Load())
}

func TestInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	m := newManagerForTest(t, server.URL)

	_, err := m.Token(context.Background())
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeInvalidCredentials))
}

func TestMalformedTokenResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	m := newManagerForTest(t, server.URL)

	_, err := m.Token(context.Background())
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeUnexpectedResponse))
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	m := newManagerForTest(t, server.URL)

	_, err := m.Token(context.Background())
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeNetworkFailure))
}

func TestInvalidateForcesExchange(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges)
	defer server.Close()

	m := newManagerForTest(t, server.URL)

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	m.Invalidate()
	_, err = m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), exchanges.Load())
}
