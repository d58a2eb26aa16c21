// Package rightmove talks to the Rightmove portal: typeahead location lookup,
// the paginated search API, listing detail pages and listing media.
package rightmove

import (
	"context"
	"strings"

	"rightmove-scraper/utils"
)

const (
	DefaultBaseURL = "https://www.rightmove.co.uk"

	// PageSize is the number of results the search API returns per page.
	PageSize = 24
	// MaxResults caps how far into a result set pagination goes.
	MaxResults = 1000
)

// Fetcher is the HTTP surface the client needs. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchText(ctx context.Context, url string) (string, error)
}

// PageFetcher renders a listing detail page. Either the HTTP fetcher or a
// *fetch.BrowserFetcher.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// LocationCache stores typeahead results keyed by the normalized query.
type LocationCache interface {
	GetLocations(ctx context.Context, query string) ([]string, bool, error)
	SetLocations(ctx context.Context, query string, ids []string) error
}

type Options struct {
	BaseURL           string
	SearchConcurrency int
	MediaConcurrency  int
	// RateLimitMs spaces media download starts.
	RateLimitMs int
	Detail      PageFetcher
	Cache       LocationCache
	Logger      *utils.Logger
}

type Client struct {
	http    Fetcher
	detail  PageFetcher
	cache   LocationCache
	baseURL string

	searchConcurrency int
	mediaConcurrency  int
	rateLimitMs       int

	logger *utils.Logger
}

func New(f Fetcher, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SearchConcurrency <= 0 {
		opts.SearchConcurrency = 16
	}
	if opts.MediaConcurrency <= 0 {
		opts.MediaConcurrency = 8
	}
	if opts.Detail == nil {
		opts.Detail = f
	}
	if opts.Logger == nil {
		opts.Logger = utils.Discard()
	}
	return &Client{
		http:              f,
		detail:            opts.Detail,
		cache:             opts.Cache,
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		searchConcurrency: opts.SearchConcurrency,
		mediaConcurrency:  opts.MediaConcurrency,
		rateLimitMs:       opts.RateLimitMs,
		logger:            opts.Logger,
	}
}
