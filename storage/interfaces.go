package storage

import (
	"context"
	"errors"

	"rightmove-scraper/models"
)

// ListingStore owns persisted listings, their images and map plots, and the
// used flag that backs draw-without-replacement.
type ListingStore interface {
	// Save replaces any previous listing with the same id, including its
	// images and plot. The used flag is cleared.
	Save(ctx context.Context, rec *models.ListingRecord, images [][]byte, plot []byte) error
	// DrawUnused marks up to count unused listings as used and returns them.
	// Concurrent draws never return the same listing.
	DrawUnused(ctx context.Context, count int) ([]models.StoredListing, error)
	ResetUsed(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	ListingImages(ctx context.Context, id string) ([][]byte, error)
	// ListingPlot returns nil, nil when the listing has no plot.
	ListingPlot(ctx context.Context, id string) ([]byte, error)
	Close() error
}

// RecordWriter exports normalized records, e.g. to CSV.
type RecordWriter interface {
	Write(records []*models.ListingRecord) error
	Close() error
}

// Export writes records to w and closes it. A close failure is reported
// even when the write succeeded.
func Export(w RecordWriter, records []*models.ListingRecord) error {
	err := w.Write(records)
	return errors.Join(err, w.Close())
}
