// Package fetchers adapts upstream sources (schedule, pitch events,
// rosters, weather, lineups, umpires, sportsbook odds) into the
// internal record types the feature store and odds normalizer consume.
// Each fetcher is a pure function of its inputs to records: retries and
// skips stay local to the fetcher, never bubbling into a pipeline
// crash.
package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"stormlightlabs.org/mlbedge/internal/cache"
	"stormlightlabs.org/mlbedge/internal/core"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Client is the shared HTTP client every fetcher embeds. It bounds
// every call with a timeout, retries transient failures with
// exponential backoff, and throttles outbound calls against a shared
// Redis-backed limiter so every fetcher process respects the same
// upstream quota.
type Client struct {
	httpClient *http.Client
	limiter    *redis_rate.Limiter
	limit      redis_rate.Limit
	limiterKey string
	log        *log.Logger
	maxRetries uint64
	cache      *cache.Client
	cacheTTL   time.Duration
}

// NewClient builds a fetcher client throttled to requestsPerSecond with
// the given burst allowance, coordinated through rdb so that multiple
// fetcher processes share one quota.
func NewClient(rdb *redis.Client, source string, requestsPerSecond, burst int, logger *log.Logger) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    redis_rate.NewLimiter(rdb),
		limit:      redis_rate.Limit{Rate: requestsPerSecond, Burst: burst, Period: time.Second},
		limiterKey: "mlbedge:fetch:" + source,
		log:        logger,
		maxRetries: defaultMaxRetries,
	}
}

// WithCache enables cache-aside caching of upstream GET responses,
// keyed by URL under the "upstream" cache type, with the given TTL. A
// schedule/lineup/odds poll repeated seconds apart (e.g. during a
// daily run's per-game loop) hits Redis instead of the upstream source
// the second time.
func (c *Client) WithCache(cacheClient *cache.Client, ttl time.Duration) *Client {
	c.cache = cacheClient
	c.cacheTTL = ttl
	return c
}

// getJSON performs a rate-limited, retried GET and decodes the JSON
// body into out. Transport errors, 429 and 5xx responses are retried
// and surface as a core.TransientFetchError once retries run out;
// other non-200 responses return immediately as a plain error, so
// callers can distinguish "degrade and flag" from "give up".
func (c *Client) getJSON(ctx context.Context, source, url string, out any) error {
	var cacheKey string
	if c.cache != nil {
		cacheKey = c.cache.UpstreamKey(http.MethodGet, source, url)
		if c.cache.Get(ctx, cacheKey, out) {
			return nil
		}
	}

	if err := c.waitForSlot(ctx); err != nil {
		return err
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "mlbedge/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &core.TransientFetchError{Source: source, Attempt: attempt, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &core.TransientFetchError{Source: source, Attempt: attempt, Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &core.TransientFetchError{Source: source, Attempt: attempt, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%s: non-retryable status %d: %s", source, resp.StatusCode, string(body)))
		}

		return json.Unmarshal(body, out)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		c.log.Warn("fetch exhausted retries", "source", source, "err", err)
		return err
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, out, c.cacheTTL)
	}
	return nil
}

// waitForSlot blocks until the shared limiter admits one more request,
// polling its retry-after hint rather than busy-looping.
func (c *Client) waitForSlot(ctx context.Context) error {
	for {
		res, err := c.limiter.Allow(ctx, c.limiterKey, c.limit)
		if err != nil {
			return err
		}
		if res.Allowed > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(res.RetryAfter):
		}
	}
}
