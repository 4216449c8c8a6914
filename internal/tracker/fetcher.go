// Package tracker provides the storefront page fetcher.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Default fetcher settings
const (
	// DefaultStorefrontURL is the detail page base; the identifier is passed as ?id=
	DefaultStorefrontURL = "https://play.google.com/store/apps/details"
	// DefaultUserAgent is a desktop browser string; the storefront serves reduced
	// markup to unknown agents
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	// DefaultTimeout bounds a single page request
	DefaultTimeout = 30 * time.Second
	// DefaultDelay is slept before every request after the first
	DefaultDelay = 1 * time.Second
	// DefaultLanguage keeps dates in English month names
	DefaultLanguage = "en"
)

// maxPageSize caps the amount of markup read from a single response.
const maxPageSize = 8 << 20

// ErrFetch is the sentinel wrapped by every FetchError
var ErrFetch = errors.New("fetch failed")

// FetchErrorKind classifies a fetch failure.
type FetchErrorKind string

// Fetch error kinds
const (
	FetchNotFound   FetchErrorKind = "not found"
	FetchHTTPStatus FetchErrorKind = "http status"
	FetchTimeout    FetchErrorKind = "timeout"
	FetchNetwork    FetchErrorKind = "network error"
)

// FetchError is returned by Fetch for transport and HTTP failures.
type FetchError struct {
	Kind FetchErrorKind
	// StatusCode is set for FetchNotFound and FetchHTTPStatus
	StatusCode int
	// Detail carries the underlying error text for FetchNetwork and FetchTimeout
	Detail string
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchNotFound:
		return "app not found on storefront"
	case FetchHTTPStatus:
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	case FetchTimeout:
		return "request timed out: " + e.Detail
	default:
		return "network error: " + e.Detail
	}
}

// Unwrap allows errors.Is(err, ErrFetch)
func (e *FetchError) Unwrap() error {
	return ErrFetch
}

// FetchConfig holds the HTTP settings used by the Fetcher.
type FetchConfig struct {
	// BaseURL is the storefront detail page URL
	BaseURL string
	// UserAgent is sent with every request
	UserAgent string
	// Timeout bounds each request
	Timeout time.Duration
	// Delay is slept before every request except the first
	Delay time.Duration
	// Language is sent as the hl query parameter when set
	Language string
	// Country is sent as the gl query parameter when set
	Country string
}

// DefaultFetchConfig returns the default fetch configuration.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		BaseURL:   DefaultStorefrontURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Delay:     DefaultDelay,
		Language:  DefaultLanguage,
	}
}

// PageFetcher retrieves the detail page markup for an identifier.
type PageFetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Fetcher fetches storefront detail pages with a fixed inter-request delay.
type Fetcher struct {
	client *http.Client
	config FetchConfig
	// delayFunc allows overriding the delay function for testing
	delayFunc func(context.Context, time.Duration) error
	// requests counts issued requests; the first one is not delayed
	requests int
}

// NewFetcher creates a Fetcher from the given configuration.
// Zero fields fall back to the defaults.
func NewFetcher(config FetchConfig) *Fetcher {
	defaults := DefaultFetchConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Delay < 0 {
		config.Delay = 0
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		config:    config,
		delayFunc: sleepContext,
	}
}

// SetHTTPClient sets a custom underlying HTTP client (useful for testing).
// The configured timeout is kept.
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	client.Timeout = f.config.Timeout
	f.client = client
}

// SetDelayFunc sets a custom delay function (useful for testing).
func (f *Fetcher) SetDelayFunc(fn func(context.Context, time.Duration) error) {
	f.delayFunc = fn
}

// Config returns the fetch configuration.
func (f *Fetcher) Config() FetchConfig {
	return f.config
}

// PageURL builds the detail page URL for an identifier.
func (f *Fetcher) PageURL(id string) (string, error) {
	u, err := url.Parse(f.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid storefront URL: %w", err)
	}
	q := u.Query()
	q.Set("id", id)
	if f.config.Language != "" {
		q.Set("hl", f.config.Language)
	}
	if f.config.Country != "" {
		q.Set("gl", f.config.Country)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch retrieves the detail page for id.
// Transport and HTTP failures are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	pageURL, err := f.PageURL(id)
	if err != nil {
		return nil, err
	}

	if f.requests > 0 && f.config.Delay > 0 {
		if err := f.delayFunc(ctx, f.config.Delay); err != nil {
			return nil, err
		}
	}
	f.requests++

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	if f.config.Language != "" {
		req.Header.Set("Accept-Language", f.config.Language)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTimeoutError(err) {
			return nil, &FetchError{Kind: FetchTimeout, Detail: err.Error()}
		}
		return nil, &FetchError{Kind: FetchNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Kind: FetchNotFound, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Kind: FetchHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		if isTimeoutError(err) {
			return nil, &FetchError{Kind: FetchTimeout, Detail: err.Error()}
		}
		return nil, &FetchError{Kind: FetchNetwork, Detail: err.Error()}
	}

	return body, nil
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	// Check for context deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Check for net.Error timeout
	type timeoutError interface {
		Timeout() bool
	}
	var te timeoutError
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}
