package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/net/html/charset"

	"gradlist/internal/config"
)

// Admission pages sit behind anti-scraping defenses that reject obvious
// bot traffic, so each attempt presents a rotated desktop browser
// signature.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

var ErrBadURL = errors.New("invalid url")

// statusError marks 429/503 responses, whose retry delay scales
// linearly with the attempt number instead of staying fixed.
type statusError struct{ status int }

func (e *statusError) Error() string { return fmt.Sprintf("http status %d", e.status) }

type Fetcher struct {
	cfg        config.Config
	httpClient *http.Client
}

func NewFetcher(cfg config.Config) *Fetcher {
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
	}
}

// FetchHTML downloads a page with the configured retry policy. A URL
// without scheme or host is rejected before any network attempt. HTTP
// errors other than 429/503 are terminal.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrBadURL, rawURL)
	}

	baseDelay := time.Duration(f.cfg.FetchRetryDelayMs) * time.Millisecond
	attempts := f.cfg.FetchRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var page string
	err = retry.Do(
		func() error {
			body, err := f.fetchOnce(ctx, parsed.String())
			if err != nil {
				return err
			}
			page = body
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			return retryDelay(baseDelay, n, err)
		}),
	)
	if err != nil {
		return "", err
	}
	return page, nil
}

// retryDelay is the backoff policy: throttling responses (429/503) wait
// base × attempt number, everything else waits the fixed base delay.
// n is the zero-based index of the attempt that just failed.
func retryDelay(base time.Duration, n uint, err error) time.Duration {
	var se *statusError
	if errors.As(err, &se) {
		return base * time.Duration(n+1)
	}
	return base
}

// PageText fetches a page and reduces it to visible plain text. An
// empty result means the page had no usable content, not a fatal error.
func (f *Fetcher) PageText(ctx context.Context, rawURL string) (string, error) {
	html, err := f.FetchHTML(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return ExtractText(html), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	// Accept-Encoding is left to the transport: it advertises gzip on
	// the wire and transparently decompresses, which a manual header
	// would disable.

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return "", &statusError{resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", retry.Unrecoverable(fmt.Errorf("http status %d", resp.StatusCode))
	}

	// charset.NewReader honors a declared charset and falls back to
	// UTF-8 when the response declares none.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
