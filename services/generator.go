package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"rightmove-scraper/models"
	"rightmove-scraper/scraper/rightmove"
	"rightmove-scraper/utils"
)

var (
	errNoLocations = errors.New("no locations found")
	errNoResults   = errors.New("search returned no listings")
	errNoPayload   = errors.New("listing page has no payload")
)

// ListingSource is the portal surface the generator drives.
// *rightmove.Client satisfies it.
type ListingSource interface {
	FindLocations(ctx context.Context, query string) ([]string, error)
	Search(ctx context.Context, locationID string) ([]models.ListingSummary, error)
	ScrapeProperty(ctx context.Context, id string) (map[string]any, error)
	FetchMedia(ctx context.Context, urls []string) [][]byte
}

// ListingSaver persists one scraped listing with its media.
type ListingSaver interface {
	Save(ctx context.Context, rec *models.ListingRecord, images [][]byte, plot []byte) error
}

// PlotRenderer produces a map image for a coordinate. Rendering lives
// outside this module; a nil renderer stores no plot.
type PlotRenderer interface {
	RenderPlot(ctx context.Context, lat, lon float64) ([]byte, error)
}

// ProgressFunc receives a completion percentage in [0, 100].
type ProgressFunc func(percent int)

type GeneratorOptions struct {
	Cities            []string
	IncludeFloorplans bool
	Retry             *utils.RetryConfig
	Plots             PlotRenderer
	// Seed fixes city and listing sampling. Zero seeds from the clock.
	Seed int64
}

// Run is the outcome of one Generate call.
type Run struct {
	ID       string
	Listings []*models.ListingRecord
	Failed   int
}

// Generator samples seed cities and scrapes one random listing per city.
// Cities are processed one after another; a failure in one city is logged
// and the next city is tried.
type Generator struct {
	source  ListingSource
	store   ListingSaver
	plots   PlotRenderer
	cleaner *Cleaner
	retry   *utils.RetryConfig
	logger  *utils.Logger

	cities            []string
	includeFloorplans bool

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(source ListingSource, store ListingSaver, opts GeneratorOptions, logger *utils.Logger) *Generator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	retry := opts.Retry
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &Generator{
		source:            source,
		store:             store,
		plots:             opts.Plots,
		cleaner:           NewCleaner(logger),
		retry:             retry,
		logger:            logger,
		cities:            append([]string(nil), opts.Cities...),
		includeFloorplans: opts.IncludeFloorplans,
		rng:               rand.New(rand.NewSource(seed)),
	}
}

// Generate scrapes up to n listings, one per distinct randomly chosen city.
// n is clamped to the number of configured cities. progress, if set, sees 0
// before the first city and 100*(i+1)/n after each one.
//
// Only a store failure aborts the run; the listings saved before it are
// still returned.
func (g *Generator) Generate(ctx context.Context, n int, progress ProgressFunc) (*Run, error) {
	run := &Run{ID: uuid.NewString()}
	if n > len(g.cities) {
		n = len(g.cities)
	}
	if n <= 0 {
		return run, nil
	}
	if progress == nil {
		progress = func(int) {}
	}

	cities := g.sampleCities(n)
	g.logger.Info("[generator] run %s: %d cities %v", run.ID, n, cities)
	progress(0)

	saved := utils.NewStringSet()

	for i, city := range cities {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		rec, images, plot, err := g.processCity(ctx, city)
		switch {
		case err != nil:
			run.Failed++
			g.logger.Warn("[generator] %s: %v", city, err)
		case saved.Contains(rec.ID):
			// Neighbouring cities can share a listing; keep the first.
			run.Failed++
			g.logger.Warn("[generator] %s: listing %s already saved in this run", city, rec.ID)
		default:
			if err := g.store.Save(ctx, rec, images, plot); err != nil {
				return run, fmt.Errorf("generator: save %s: %w", rec.ID, err)
			}
			saved.Add(rec.ID)
			run.Listings = append(run.Listings, rec)
			g.logger.Info("[generator] %s: saved listing %s with %d images", city, rec.ID, len(images))
		}

		progress(100 * (i + 1) / n)
	}

	g.logger.Info("[generator] run %s done: %d saved, %d failed", run.ID, saved.Size(), run.Failed)
	return run, nil
}

func (g *Generator) processCity(ctx context.Context, city string) (*models.ListingRecord, [][]byte, []byte, error) {
	var locations []string
	err := g.retry.Do(ctx, "resolve "+city, func(ctx context.Context) error {
		var err error
		locations, err = g.source.FindLocations(ctx, city)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if len(locations) == 0 {
		return nil, nil, nil, errNoLocations
	}

	var summaries []models.ListingSummary
	err = g.retry.Do(ctx, "search "+locations[0], func(ctx context.Context) error {
		var err error
		summaries, err = g.source.Search(ctx, locations[0])
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if len(summaries) == 0 {
		return nil, nil, nil, errNoResults
	}

	pick := summaries[g.intn(len(summaries))]
	g.logger.Debug("[generator] %s: picked %s of %d (%s)", city, pick.ID, len(summaries), pick.DisplayAddress)

	payload, err := g.source.ScrapeProperty(ctx, pick.ID.String())
	if err != nil {
		return nil, nil, nil, err
	}
	if payload == nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", pick.ID, errNoPayload)
	}

	rec := Normalize(payload)
	if !g.cleaner.Clean(rec) {
		return nil, nil, nil, fmt.Errorf("%s: listing has no id", pick.ID)
	}

	images := rightmove.Compact(g.source.FetchMedia(ctx, rec.MediaURLs(g.includeFloorplans)))
	return rec, images, g.renderPlot(ctx, rec), nil
}

func (g *Generator) renderPlot(ctx context.Context, rec *models.ListingRecord) []byte {
	if g.plots == nil || rec.Latitude == nil || rec.Longitude == nil {
		return nil
	}
	plot, err := g.plots.RenderPlot(ctx, *rec.Latitude, *rec.Longitude)
	if err != nil {
		g.logger.Warn("[generator] plot for %s: %v", rec.ID, err)
		return nil
	}
	return plot
}

func (g *Generator) sampleCities(n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	perm := g.rng.Perm(len(g.cities))
	out := make([]string, n)
	for i := range out {
		out[i] = g.cities[perm[i]]
	}
	return out
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}
