package restapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/perpvault/config"
	"github.com/thrasher-corp/perpvault/engine"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := &config.Config{
		Vault: config.VaultConfig{
			Owner:       "owner",
			MaxLeverage: 50,
			WhitelistedTokens: []config.TokenConfig{
				{Token: "BNB", FeedSource: "chainlink-bnb", FeedDecimals: 8, TokenDecimals: 18},
			},
		},
		Market: config.MarketConfig{MaxTimeDelay: 300},
		Executor: config.ExecutorConfig{PollInterval: time.Second},
		Server: config.ServerConfig{RateLimitPerSec: 10, RateLimitBurst: 20},
	}
	eng, err := engine.New(cfg)
	require.NoError(t, err)
	return eng
}

func TestHandlePool(t *testing.T) {
	t.Parallel()
	eng := testEngine(t)
	s := New(eng, 1000, 1000)

	req := httptest.NewRequest(http.MethodGet, "/v1/vault/pool", nil)
	resp := httptest.NewRecorder()
	s.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "poolAmount")
}

func TestHandlePositionNotFound(t *testing.T) {
	t.Parallel()
	eng := testEngine(t)
	s := New(eng, 1000, 1000)

	req := httptest.NewRequest(http.MethodGet, "/v1/vault/position/alice/BNB/true", nil)
	resp := httptest.NewRecorder()
	s.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandlePauseRejectsBadTOTP(t *testing.T) {
	t.Parallel()
	eng := testEngine(t)
	s := New(eng, 1000, 1000)

	body := `{"caller":"owner","totp":"000000","paused":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/pause", strings.NewReader(body))
	resp := httptest.NewRecorder()
	s.ServeHTTP(resp, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	t.Parallel()
	eng := testEngine(t)
	s := New(eng, 1, 1)

	req := httptest.NewRequest(http.MethodGet, "/v1/vault/pool", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	first := httptest.NewRecorder()
	s.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	s.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
