package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// restClient wraps an HTTP client with a token-bucket limiter and a
// circuit breaker so a misbehaving venue cannot stall the whole
// snapshot build.
type restClient struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// RESTConfig tunes one venue client.
type RESTConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	RequestsPerSec   float64       `yaml:"requests_per_sec"`
	Burst            int           `yaml:"burst"`
	BreakerThreshold uint32        `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// DefaultRESTConfig returns venue client settings that stay well under
// public API limits.
func DefaultRESTConfig(baseURL string) RESTConfig {
	return RESTConfig{
		BaseURL:          baseURL,
		Timeout:          10 * time.Second,
		RequestsPerSec:   2.0,
		Burst:            4,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

func newRESTClient(name string, cfg RESTConfig) *restClient {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
	}
	return &restClient{
		name:    name,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// getJSON fetches baseURL+path and decodes the body into out. The call
// waits for limiter budget and runs inside the breaker.
func (c *restClient) getJSON(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", c.name, err)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("%s: %s returned %d: %s", c.name, path, resp.StatusCode, string(body))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", c.name, path, err)
		}
		return nil, nil
	})
	return err
}
