package calcclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"option-calc-go/internal/api"
	"option-calc-go/internal/config"
	"option-calc-go/internal/models"
)

const (
	maxRetries     = 3
	defaultBackoff = time.Second
)

// Client defines the calculator service operations used by the CLI.
type Client interface {
	Calculate(ctx context.Context, req api.CalcRequest) (*api.CalcResponse, error)
	FeeProfiles(ctx context.Context) ([]models.FeeProfile, error)
	Conventions(ctx context.Context) (*api.ConventionsResponse, error)
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// RestClient is a client for the calculator REST API.
// It implements the Client interface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// ensure RestClient implements the interface
var _ Client = (*RestClient)(nil)

// APIError is a non-retryable error answer from the service.
type APIError struct {
	StatusCode int
	Response   api.ErrorResponse
}

func (e *APIError) Error() string {
	if len(e.Response.Fields) == 0 {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Response.Error)
	}
	parts := make([]string, 0, len(e.Response.Fields))
	for _, f := range e.Response.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Response.Error, strings.Join(parts, "; "))
}

// NewRestClient creates a new calculator REST API client.
func NewRestClient(cfg *config.Client, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	logger.Debug("Using calculator service", zap.String("base_url", cfg.BaseURL))

	return &RestClient{
		client:  client,
		logger:  logger.Named("calc-client"),
		limiter: rate.NewLimiter(limit, burst),
		backoff: defaultBackoff,
	}
}

// Calculate values a position on the remote service.
func (c *RestClient) Calculate(ctx context.Context, calc api.CalcRequest) (*api.CalcResponse, error) {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(calc).
		SetResult(&api.CalcResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/calc", req)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate: %w", err)
	}
	return resp.Result().(*api.CalcResponse), nil
}

// FeeProfiles lists the fee profiles the service knows.
func (c *RestClient) FeeProfiles(ctx context.Context) ([]models.FeeProfile, error) {
	var profiles []models.FeeProfile
	req := c.client.R().SetResult(&profiles)

	if _, err := c.doRequest(ctx, http.MethodGet, "/api/fee-profiles", req); err != nil {
		return nil, fmt.Errorf("failed to list fee profiles: %w", err)
	}
	return profiles, nil
}

// Conventions fetches the conventions the service applies.
func (c *RestClient) Conventions(ctx context.Context) (*api.ConventionsResponse, error) {
	req := c.client.R().SetResult(&api.ConventionsResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/conventions", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get conventions: %w", err)
	}
	return resp.Result().(*api.ConventionsResponse), nil
}

// Health checks that the service is up.
func (c *RestClient) Health(ctx context.Context) (*api.HealthResponse, error) {
	req := c.client.R().SetResult(&api.HealthResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/health", req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return resp.Result().(*api.HealthResponse), nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx).
		SetError(&api.ErrorResponse{}).
		SetHeader(api.RequestIDHeader, uuid.New().String())

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= http.StatusInternalServerError {
				shouldRetry = true
			}
			err = apiError(resp)
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}
		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// 1x, 2x, 4x the base backoff
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

func apiError(resp *resty.Response) *APIError {
	out := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*api.ErrorResponse); ok && body != nil && body.Error != "" {
		out.Response = *body
	} else {
		out.Response.Error = strings.TrimSpace(resp.String())
		if out.Response.Error == "" {
			out.Response.Error = resp.Status()
		}
	}
	return out
}
