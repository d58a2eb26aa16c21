package rightmove

import (
	"context"

	"rightmove-scraper/utils"
)

// FetchMedia downloads every url concurrently. Entry i holds the bytes for
// urls[i], or nil if that download failed.
func (c *Client) FetchMedia(ctx context.Context, urls []string) [][]byte {
	out := make([][]byte, len(urls))
	pool := utils.NewWorkerPool(c.mediaConcurrency, c.rateLimitMs)

	for i, u := range urls {
		pool.Submit(func() {
			b, err := c.http.Fetch(ctx, u)
			if err != nil {
				c.logger.Warn("[media] skipping %s: %v", u, err)
				return
			}
			out[i] = b
		})
	}
	pool.Wait()

	ok := 0
	for _, b := range out {
		if b != nil {
			ok++
		}
	}
	c.logger.Debug("[media] fetched %d/%d", ok, len(urls))
	return out
}

// Compact drops failed entries while keeping the order of the rest.
func Compact(blobs [][]byte) [][]byte {
	out := make([][]byte, 0, len(blobs))
	for _, b := range blobs {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}
