package rightmove

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// TokenizeQuery converts a place name into the typeahead path token: the
// query is uppercased and a "/" follows every second character, with no
// separator left at either end. "london" becomes "LO/ND/ON".
func TokenizeQuery(query string) string {
	var b strings.Builder
	for i, r := range []rune(strings.ToUpper(query)) {
		b.WriteRune(r)
		if (i+1)%2 == 0 {
			b.WriteByte('/')
		}
	}
	return strings.Trim(b.String(), "/")
}

func (c *Client) typeaheadURL(query string) string {
	segs := strings.Split(TokenizeQuery(query), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.baseURL + "/typeAhead/uknostreet/" + strings.Join(segs, "/") + "/"
}

type typeaheadResponse struct {
	TypeAheadLocations []struct {
		DisplayName        string `json:"displayName"`
		LocationIdentifier string `json:"locationIdentifier"`
	} `json:"typeAheadLocations"`
}

// FindLocations resolves a free-text place name into portal location
// identifiers. No match is an empty slice, not an error.
func (c *Client) FindLocations(ctx context.Context, query string) ([]string, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	if c.cache != nil {
		ids, ok, err := c.cache.GetLocations(ctx, key)
		if err != nil {
			c.logger.Warn("[location] cache read for %q: %v", key, err)
		} else if ok {
			c.logger.Debug("[location] cache hit for %q", key)
			return ids, nil
		}
	}

	body, err := c.http.Fetch(ctx, c.typeaheadURL(query))
	if err != nil {
		return nil, fmt.Errorf("location: resolve %q: %w", query, err)
	}

	var resp typeaheadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("location: decode typeahead for %q: %w", query, err)
	}

	ids := make([]string, 0, len(resp.TypeAheadLocations))
	for _, loc := range resp.TypeAheadLocations {
		if loc.LocationIdentifier != "" {
			ids = append(ids, loc.LocationIdentifier)
		}
	}

	if c.cache != nil && len(ids) > 0 {
		if err := c.cache.SetLocations(ctx, key, ids); err != nil {
			c.logger.Warn("[location] cache write for %q: %v", key, err)
		}
	}
	return ids, nil
}
