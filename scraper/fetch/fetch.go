// Package fetch issues outbound requests to the property portal with a fixed
// browser-like header set. It never retries on its own unless Retries is set;
// callers own the retry policy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"rightmove-scraper/utils"
)

const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	AcceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptLanguage = "en-US,en;q=0.5"
)

// ErrBodyTooLarge is wrapped in a NetworkError when a response exceeds
// Options.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// NetworkError reports a failed fetch. StatusCode is 0 for transport
// failures and timeouts.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Options configures a Fetcher. Zero values give a 20s timeout, no retries,
// no rate limit and a 32 MiB body cap.
type Options struct {
	Timeout      time.Duration
	Retries      int
	RPS          float64
	Burst        int
	MaxBodyBytes int64
	Logger       *utils.Logger
}

// Fetcher is safe for concurrent use. Build one per process and pass it to
// the components that need it.
type Fetcher struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	maxBody int64
	logger  *utils.Logger
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	if opts.Logger == nil {
		opts.Logger = utils.Discard()
	}

	c := retryablehttp.NewClient()
	c.RetryMax = opts.Retries
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = opts.Timeout
	c.Logger = nil
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &Fetcher{client: c, maxBody: opts.MaxBodyBytes, logger: opts.Logger}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return f
}

// Fetch GETs url and returns the raw body. Redirects are followed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{URL: url, Err: err}
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("Accept-Language", AcceptLanguage)

	f.logger.Debug("[fetch] GET %s", url)
	resp, err := f.client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := readAllLimit(resp.Body, f.maxBody)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return body, nil
}

// FetchText is Fetch decoded as a string.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	b, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}
