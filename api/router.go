package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	"rightmove-scraper/models"
	"rightmove-scraper/services"
	"rightmove-scraper/utils"
)

// Store is the subset of storage.ListingStore the facade serves from.
type Store interface {
	DrawUnused(ctx context.Context, count int) ([]models.StoredListing, error)
	ResetUsed(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	ListingImages(ctx context.Context, id string) ([][]byte, error)
	ListingPlot(ctx context.Context, id string) ([]byte, error)
}

// Generator runs a scrape-and-store pass.
type Generator interface {
	Generate(ctx context.Context, n int, progress services.ProgressFunc) (*services.Run, error)
}

type Deps struct {
	Store     Store
	Generator Generator
	Logger    *utils.Logger
	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit int
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = utils.Discard()
	}

	r := chi.NewRouter()
	if d.RateLimit > 0 {
		r.Use(httprate.LimitByIP(d.RateLimit, time.Minute))
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })

	registerListings(r, d)
	if d.Generator != nil {
		registerGenerate(r, d)
	}
	return r
}
