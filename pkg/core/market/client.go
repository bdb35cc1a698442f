// Package market fetches fundamentals, price history and news from the
// Yahoo Finance JSON endpoints.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"stockcheckertool/pkg/core/config"
	"stockcheckertool/pkg/retrier"
)

// Client talks to one Yahoo Finance host.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	retry     *retrier.Retrier
	defaults  config.MarketDefaults
	log       zerolog.Logger
}

// NewClient builds a client from the market settings.
func NewClient(cfg config.MarketConfig, defaults config.MarketDefaults, log zerolog.Logger) *Client {
	opts := []retrier.Option{retrier.WithRetries(cfg.Retries), retrier.WithRetryIf(isTransient)}
	if cfg.RetryDelay > 0 {
		opts = append(opts, retrier.WithInitialInterval(cfg.RetryDelay))
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		retry:     retrier.New(retrier.DefaultPolicy(), opts...),
		defaults:  defaults,
		log:       log.With().Str("component", "market").Logger(),
	}
}

// Defaults returns the market defaults the client fills gaps with.
func (c *Client) Defaults() config.MarketDefaults {
	return c.defaults
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.url, e.code)
}

func (e *statusError) Unwrap() error {
	if e.code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUpstream
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// getJSON fetches path relative to the base URL and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retrier.Permanent(err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Debug().Err(err).Str("url", endpoint).Msg("request failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			c.log.Debug().Int("status", resp.StatusCode).Str("url", endpoint).Msg("non-200 response")
			return &statusError{code: resp.StatusCode, url: path}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retrier.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	})
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUpstream) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func normalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", fmt.Errorf("empty ticker: %w", ErrNotFound)
	}
	return t, nil
}
