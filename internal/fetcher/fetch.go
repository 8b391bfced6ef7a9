// Package fetcher downloads remote playlist and guide documents.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxBytes caps a downloaded document. Full XMLTV dumps for large
// providers run to a few hundred megabytes uncompressed.
const DefaultMaxBytes = 512 << 20

var (
	// ErrStatus is returned for any non-200 response.
	ErrStatus = errors.New("unexpected HTTP status")
	// ErrTooLarge is returned when the body exceeds the size cap.
	ErrTooLarge = errors.New("document too large")
	// ErrUnsupportedURL is returned for anything but http and https URLs.
	ErrUnsupportedURL = errors.New("unsupported URL")
	// ErrUpstream wraps transport failures: DNS, refused connections, timeouts.
	ErrUpstream = errors.New("upstream unreachable")
)

// Fetcher performs GET requests with a fixed user agent and timeout.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// New returns a Fetcher. userAgent is optional.
func New(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  DefaultMaxBytes,
	}
}

// Fetch downloads rawURL and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, f.maxBytes)
	}
	return body, nil
}

// Fetch downloads rawURL with a one-off Fetcher.
func Fetch(ctx context.Context, rawURL, userAgent string, timeout time.Duration) ([]byte, error) {
	return New(userAgent, timeout).Fetch(ctx, rawURL)
}
