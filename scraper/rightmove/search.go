package rightmove

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

type searchPage struct {
	ResultCount json.RawMessage         `json:"resultCount"`
	Properties  []models.ListingSummary `json:"properties"`
}

func (c *Client) searchURL(locationID string, index int) string {
	q := url.Values{}
	q.Set("areaSizeUnit", "sqft")
	q.Set("channel", "BUY")
	q.Set("currencyCode", "GBP")
	q.Set("includeSSTC", "false")
	q.Set("index", strconv.Itoa(index))
	q.Set("isFetching", "false")
	q.Set("locationIdentifier", locationID)
	q.Set("numberOfPropertiesPerPage", strconv.Itoa(PageSize))
	q.Set("radius", "0.0")
	q.Set("sortType", "6")
	q.Set("viewType", "LIST")
	return c.baseURL + "/api/_search?" + q.Encode()
}

// ParseResultCount reads "1,234", "1234" or 1234.
func ParseResultCount(raw []byte) (int, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("search: bad resultCount %q: %w", string(raw), err)
	}
	return n, nil
}

// PageOffsets lists the index values still to fetch after page 0, bounded by
// MaxResults.
func PageOffsets(total int) []int {
	limit := total
	if limit > MaxResults {
		limit = MaxResults
	}
	var offsets []int
	for off := PageSize; off < limit; off += PageSize {
		offsets = append(offsets, off)
	}
	return offsets
}

func (c *Client) fetchPage(ctx context.Context, locationID string, index int) (*searchPage, error) {
	body, err := c.http.Fetch(ctx, c.searchURL(locationID, index))
	if err != nil {
		return nil, err
	}
	var page searchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("search: decode page %d: %w", index, err)
	}
	return &page, nil
}

// Search collects every listing summary for a location. Page 0 is fetched
// first to learn the result count; the remaining pages are fetched
// concurrently. Any page failure fails the whole search.
//
// Results keep page order (page 0 first, then ascending offset) and repeated
// ids keep their first occurrence.
func (c *Client) Search(ctx context.Context, locationID string) ([]models.ListingSummary, error) {
	first, err := c.fetchPage(ctx, locationID, 0)
	if err != nil {
		return nil, fmt.Errorf("search %s: first page: %w", locationID, err)
	}

	total, err := ParseResultCount(first.ResultCount)
	if err != nil {
		c.logger.Warn("[search] %s: %v, using first page only", locationID, err)
		total = 0
	}

	offsets := PageOffsets(total)
	c.logger.Debug("[search] %s: %d results, %d more pages", locationID, total, len(offsets))

	pages := make([][]models.ListingSummary, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.searchConcurrency)
	for i, off := range offsets {
		g.Go(func() error {
			page, err := c.fetchPage(gctx, locationID, off)
			if err != nil {
				return fmt.Errorf("page at index %d: %w", off, err)
			}
			pages[i] = page.Properties
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search %s: %w", locationID, err)
	}

	seen := utils.NewStringSet()
	results := make([]models.ListingSummary, 0, len(first.Properties)+len(offsets)*PageSize)
	merge := func(list []models.ListingSummary) {
		for _, s := range list {
			if s.ID == "" || !seen.Add(s.ID.String()) {
				continue
			}
			results = append(results, s)
		}
	}
	merge(first.Properties)
	for _, p := range pages {
		merge(p)
	}

	c.logger.Info("[search] %s: collected %d listings", locationID, len(results))
	return results, nil
}
