package schemathesis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// FetchOption configures retrieval of remote schema documents.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	client  *http.Client
	limiter *rate.Limiter
	maxSize int64
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxSize: 32 << 20, // 32 MB
	}
}

// WithHTTPClient sets the client used for http and https URIs.
func WithHTTPClient(c *http.Client) FetchOption {
	return func(cfg *fetchConfig) {
		if c != nil {
			cfg.client = c
		}
	}
}

// WithFetchLimiter throttles remote fetches. Share one limiter across
// sources to bound the request rate against a single schema host when
// many test packages are collected in parallel.
func WithFetchLimiter(l *rate.Limiter) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.limiter = l
	}
}

// WithMaxDocumentSize caps the number of bytes read from a remote document.
func WithMaxDocumentSize(n int64) FetchOption {
	return func(cfg *fetchConfig) {
		if n > 0 {
			cfg.maxSize = n
		}
	}
}

// fetch downloads a schema document.
func fetch(ctx context.Context, uri string, cfg fetchConfig) ([]byte, error) {
	if cfg.limiter != nil {
		if err := cfg.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/x-yaml, text/yaml")

	resp, err := cfg.client.Do(req)
	if err != nil {
		// The client error already names the method and URL.
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed below

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrFetch, uri, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, cfg.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
	}
	if int64(len(data)) > cfg.maxSize {
		return nil, fmt.Errorf("%w: %s: document exceeds %d bytes", ErrFetch, uri, cfg.maxSize)
	}

	return data, nil
}
