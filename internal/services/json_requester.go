package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"maxtrack/internal/cache"
)

// JSONRequester performs GET requests for JSON documents, caching response
// bodies by URL and throttling requests that miss the cache
type JSONRequester struct {
	client   *resty.Client
	cache    cache.Cache
	limiter  *rate.Limiter
	ttl      time.Duration
	platform string

	requests atomic.Int64
}

// NewJSONRequester creates a requester. ratePerSecond <= 0 disables
// throttling; a nil responses cache disables caching.
func NewJSONRequester(platform, userAgent string, ratePerSecond float64, responses cache.Cache, ttl time.Duration) *JSONRequester {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json")
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}

	return &JSONRequester{
		client:   client,
		cache:    responses,
		limiter:  limiter,
		ttl:      ttl,
		platform: platform,
	}
}

// Requests returns the number of network requests issued
func (r *JSONRequester) Requests() int64 {
	return r.requests.Load()
}

// GetJSON decodes the document at url into out. A 404 yields ErrNotFound.
func (r *JSONRequester) GetJSON(ctx context.Context, operation, url string, out interface{}) error {
	body, err := r.get(ctx, operation, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &PlatformError{
			Platform:  r.platform,
			Operation: operation,
			Message:   "failed to parse response",
			URL:       url,
			Err:       err,
		}
	}
	return nil
}

func (r *JSONRequester) get(ctx context.Context, operation, url string) ([]byte, error) {
	cacheKey := r.platform + ":url:" + url

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey)
		if err != nil {
			slog.Warn("Response cache read failed", "platform", r.platform, "url", url, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	r.requests.Add(1)
	resp, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &PlatformError{
			Platform:  r.platform,
			Operation: operation,
			Message:   "request failed",
			URL:       url,
			Err:       err,
		}
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, &PlatformError{
			Platform:  r.platform,
			Operation: operation,
			Message:   "not found",
			URL:       url,
			Err:       ErrNotFound,
		}
	case resp.StatusCode() != http.StatusOK:
		return nil, &PlatformError{
			Platform:  r.platform,
			Operation: operation,
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
			URL:       url,
		}
	}

	body := resp.Body()
	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, body, r.ttl); err != nil {
			slog.Warn("Response cache write failed", "platform", r.platform, "url", url, "error", err)
		}
	}
	return body, nil
}
