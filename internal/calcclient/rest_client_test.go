package calcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"option-calc-go/internal/api"
	"option-calc-go/internal/config"
	"option-calc-go/internal/valuation"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	rc := &RestClient{
		client:  resty.New().SetBaseURL(server.URL),
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		backoff: time.Millisecond,
	}

	return rc, server
}

func premium(f float64) *float64 { return &f }

func TestCalculate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/calc", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NotEmpty(t, r.Header.Get(api.RequestIDHeader))

			var req api.CalcRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "VIOP", req.Market)
			assert.Equal(t, 410.0, *req.PremiumInput)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"days_to_expiry": 30, "notional": 44000, "net_option_premium": 179, "breakeven_price": 44.179, "settlement_cashflow": null}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		resp, err := rc.Calculate(context.Background(), api.CalcRequest{Market: "VIOP", PremiumInput: premium(410)})

		require.NoError(t, err)
		assert.Equal(t, 30, resp.DaysToExpiry)
		assert.Equal(t, 44000.0, resp.Notional)
		require.NotNil(t, resp.BreakevenPrice)
		assert.Equal(t, 44.179, *resp.BreakevenPrice)
		assert.Nil(t, resp.SettlementCashflow)
	})

	t.Run("ValidationErrorNotRetried", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid trade", "fields": [{"field": "expiry_date", "message": "cannot be before valuation_date"}]}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		resp, err := rc.Calculate(context.Background(), api.CalcRequest{})

		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Len(t, apiErr.Response.Fields, 1)
		assert.Equal(t, "expiry_date", apiErr.Response.Fields[0].Field)
		assert.Contains(t, err.Error(), "expiry_date cannot be before valuation_date")
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"days_to_expiry": 7}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		resp, err := rc.Calculate(context.Background(), api.CalcRequest{Market: "VIOP"})

		require.NoError(t, err)
		assert.Equal(t, 7, resp.DaysToExpiry)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`boom`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.Calculate(context.Background(), api.CalcRequest{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to calculate")
		assert.Contains(t, err.Error(), "request failed after 3 attempts")
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&calls))
	})
}

func TestRetryAfterHonored(t *testing.T) {
	var calls int32
	var first time.Time
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.GreaterOrEqual(t, time.Since(first), 900*time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	resp, err := rc.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestContextCancelledDuringBackoff(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := rc.Health(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeeProfiles(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fee-profiles", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name": "default", "commission_per_mille": 5, "is_default": true}, {"name": "vip", "commission_per_mille": 1}]`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	profiles, err := rc.FeeProfiles(context.Background())

	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.True(t, profiles[0].IsDefault)
	assert.Equal(t, "vip", profiles[1].Name)
	assert.Equal(t, 1.0, profiles[1].CommissionPerMille)
}

func TestConventions(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conventions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"commission_base": "notional", "interest_base": "net_premium", "units": [{"market": "VIOP", "underlying_type": "FX", "strike_divisor": 1000, "strike_scaled_above": 1000, "premium_quote": "per_contract"}]}`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	conv, err := rc.Conventions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "net_premium", conv.InterestBase)
	require.Len(t, conv.Units, 1)
	assert.Equal(t, "per_contract", conv.Units[0].PremiumQuote)
}

func TestNewRestClient(t *testing.T) {
	cfg := &config.Client{BaseURL: "http://localhost:8080/", Timeout: 5 * time.Second, RateLimit: 10, RateLimitBurst: 5}

	rc := NewRestClient(cfg, zap.NewNop())

	require.NotNil(t, rc)
	assert.Equal(t, "http://localhost:8080", rc.client.BaseURL)
	assert.Equal(t, rate.Limit(10), rc.limiter.Limit())
	assert.Equal(t, 5, rc.limiter.Burst())
}

func TestAgainstServer(t *testing.T) {
	// The real router answers with the same DTOs the client decodes.
	cfg := &config.Config{Server: config.Server{Mode: "test"}}
	srv := api.NewServer(cfg, zap.NewNop(), valuation.NewEngine(valuation.Conventions{}), nil, nil)
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	rc := NewRestClient(&config.Client{BaseURL: server.URL}, zap.NewNop())

	health, err := rc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	profiles, err := rc.FeeProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)

	conv, err := rc.Conventions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "notional", conv.CommissionBase)
	assert.Len(t, conv.Units, 4)
}
