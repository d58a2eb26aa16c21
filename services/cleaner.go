package services

import (
	"regexp"
	"strconv"
	"strings"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

// priceRegexp captures the first numeric amount in a display price.
var priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Cleaner tidies normalized records before they are stored.
type Cleaner struct {
	logger *utils.Logger
}

func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean trims the id and drops blank feature and tag entries, trimming the
// rest. Scalar text fields are left exactly as the portal sent them. It
// reports false for a record with no id.
func (c *Cleaner) Clean(rec *models.ListingRecord) bool {
	if rec == nil {
		return false
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		c.logger.Warn("[cleaner] Dropping listing with empty id")
		return false
	}

	rec.Features = normaliseList(rec.Features)
	rec.Tags = normaliseList(rec.Tags)
	return true
}

// parsePrice reads the amount out of a display price.
//
//	"£250,000"      → 250000
//	"Offers over £1,200,000.50" → 1200000.50
//	"POA"           → 0
func parsePrice(raw string) float64 {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func normaliseList(in []string) []string {
	if in == nil {
		return nil
	}
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
