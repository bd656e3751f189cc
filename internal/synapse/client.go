// Package synapse is a small client for the Synapse repository REST API covering
// the table queries, annotation updates and snapshots used by the scheduled jobs.
package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

// Config configures the client
type Config struct {
	BaseURL         string
	AuthToken       string
	StatusField     string
	Timeout         time.Duration
	RateLimit       float64 // requests per second
	RateBurst       int
	PollInterval    time.Duration // first wait between async job polls
	MaxPollInterval time.Duration
	UserAgent       string

	// Transport allows injecting a custom HTTP transport (tests)
	Transport http.RoundTripper
}

// Client is a rate-limited Synapse REST client. Requests are never retried.
type Client struct {
	config      *Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a client, filling unset config fields with defaults
func NewClient(config *Config, logger *slog.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.RateBurst == 0 {
		config.RateBurst = 2
	}
	if config.PollInterval == 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	if config.MaxPollInterval == 0 {
		config.MaxPollInterval = 10 * time.Second
	}
	if config.StatusField == "" {
		config.StatusField = "dataStatus"
	}
	if config.UserAgent == "" {
		config.UserAgent = "synapse-jobs/1.0"
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		logger:      logger,
	}
}

// HTTPError is returned for non-2xx responses
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Reason     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("synapse %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Reason)
}

// Is lets errors.Is match a 404 against domain.ErrEntityNotFound
func (e *HTTPError) Is(target error) bool {
	return target == domain.ErrEntityNotFound && e.StatusCode == http.StatusNotFound
}

// do executes one request. out is decoded only for 200/201 responses; the status code
// is returned so async polling can tell "still processing" (202) apart from a result.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("synapse %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("Synapse request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return resp.StatusCode, &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Reason:     errorReason(data),
		}
	}

	if out != nil && resp.StatusCode != http.StatusAccepted && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}

	return resp.StatusCode, nil
}

// errorReason extracts the "reason" field Synapse puts in error bodies
func errorReason(body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Reason != "" {
		return payload.Reason
	}
	return strings.TrimSpace(string(body))
}

type asyncToken struct {
	Token string `json:"token"`
}

// runAsync starts an asynchronous job and polls its result endpoint until it stops
// answering 202, decoding the final body into out
func (c *Client) runAsync(ctx context.Context, startPath, getPathPrefix string, request, out any) error {
	var token asyncToken
	if _, err := c.do(ctx, http.MethodPost, startPath, request, &token); err != nil {
		return fmt.Errorf("start async job: %w", err)
	}
	if token.Token == "" {
		return errors.New("start async job: empty job token")
	}

	getPath := getPathPrefix + "/" + token.Token
	wait := c.config.PollInterval

	for {
		status, err := c.do(ctx, http.MethodGet, getPath, nil, out)
		if err != nil {
			return fmt.Errorf("async job %s: %w", token.Token, err)
		}
		if status != http.StatusAccepted {
			return nil
		}

		c.logger.Debug("Async job processing",
			slog.String("token", token.Token),
			slog.Duration("retry_after", wait),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("async job %s: %w", token.Token, ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > c.config.MaxPollInterval {
			wait = c.config.MaxPollInterval
		}
	}
}
