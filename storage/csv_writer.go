package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"rightmove-scraper/models"
)

var csvHeader = []string{
	"id", "title", "price", "price_per_sqmeter", "property_type", "bedrooms", "bathrooms",
	"address", "latitude", "longitude", "photos", "agency", "scraped_at",
}

// CSVWriter exports normalized listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	now    func() time.Time
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, now: time.Now}, nil
}

// Write appends one row per record.
func (c *CSVWriter) Write(records []*models.ListingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scrapedAt := c.now().UTC().Format(time.RFC3339)
	for _, r := range records {
		var agency string
		if r.Agency != nil {
			agency = deref(r.Agency.Company)
		}
		row := []string{
			r.ID,
			deref(r.Title),
			deref(r.Price),
			deref(r.PricePerSqMeter),
			deref(r.PropertyType),
			intField(r.Bedrooms),
			intField(r.Bathrooms),
			r.DisplayAddress(),
			floatField(r.Latitude),
			floatField(r.Longitude),
			strconv.Itoa(len(r.Photos)),
			agency,
			scrapedAt,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row %s: %w", r.ID, err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func intField(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func floatField(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
