package rightmove

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rightmove-scraper/utils"
)

const pageModelMarker = "PAGE_MODEL = "

// PropertyURL is the detail page for a listing id.
func (c *Client) PropertyURL(id string) string {
	return c.baseURL + "/properties/" + url.PathEscape(id) + "#/"
}

// ExtractPropertyData pulls the listing payload out of a detail page. It
// returns nil when the page carries no PAGE_MODEL script or the payload does
// not decode.
func ExtractPropertyData(body string) map[string]any {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := s.Text(); strings.Contains(text, pageModelMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil
	}

	raw, ok := braceSpan(script[strings.Index(script, pageModelMarker):])
	if !ok {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var model map[string]any
	if err := dec.Decode(&model); err != nil {
		return nil
	}

	data, _ := model["propertyData"].(map[string]any)
	return data
}

// braceSpan returns the text from the first '{' in s up to its matching
// '}'. Braces inside JSON strings are counted like any other.
func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ScrapeProperty fetches a detail page and extracts its payload. A page
// without the payload yields (nil, nil).
func (c *Client) ScrapeProperty(ctx context.Context, id string) (map[string]any, error) {
	body, err := c.detail.FetchText(ctx, c.PropertyURL(id))
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", id, err)
	}
	data := ExtractPropertyData(body)
	if data == nil {
		c.logger.Warn("[property] %s: no listing payload on page", id)
	}
	return data, nil
}

// ScrapeProperties scrapes several listings concurrently. The result is
// positional; failed or payload-less entries are nil and never abort the
// batch.
func (c *Client) ScrapeProperties(ctx context.Context, ids []string) []map[string]any {
	out := make([]map[string]any, len(ids))
	pool := utils.NewWorkerPool(c.searchConcurrency, 0)

	for i, id := range ids {
		pool.Submit(func() {
			data, err := c.ScrapeProperty(ctx, id)
			if err != nil {
				c.logger.Warn("[property] %v", err)
				return
			}
			out[i] = data
		})
	}
	pool.Wait()
	return out
}
