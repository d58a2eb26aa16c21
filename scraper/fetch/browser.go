package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"rightmove-scraper/utils"
)

// BrowserFetcher renders pages in headless Chrome and returns the final DOM.
// It only serves text; media downloads stay on the HTTP Fetcher.
type BrowserFetcher struct {
	logger      *utils.Logger
	timeout     time.Duration
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewBrowserFetcher starts a browser process. chromeBin may be empty, in
// which case well-known locations are searched.
func NewBrowserFetcher(chromeBin string, timeout time.Duration, logger *utils.Logger) (*BrowserFetcher, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger.Info("[browser] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Launch eagerly so a missing binary fails at startup.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	return &BrowserFetcher{
		logger:      logger,
		timeout:     timeout,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// FetchText opens url in a new tab and returns the rendered HTML.
func (b *BrowserFetcher) FetchText(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(browserHeaders()),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}
	b.logger.Debug("[browser] rendered %s (%d bytes)", url, len(html))
	return html, nil
}

// browserHeaders are sent with every tab request on top of the User-Agent
// set at launch.
func browserHeaders() network.Headers {
	return network.Headers{
		"Accept":          AcceptHeader,
		"Accept-Language": AcceptLanguage,
	}
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// findChromeBinary returns the path to a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
