package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rightmove-scraper/api"
	"rightmove-scraper/config"
	"rightmove-scraper/scraper/fetch"
	"rightmove-scraper/scraper/rightmove"
	"rightmove-scraper/services"
	"rightmove-scraper/storage"
	"rightmove-scraper/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Rightmove scraper starting ===")
	logger.Info("Config | store: %s | cities: %d | search workers: %d | media workers: %d | detail: %s",
		cfg.StoreDriver, len(cfg.Cities), cfg.SearchConcurrency, cfg.MediaConcurrency, cfg.DetailMode)

	store, err := storage.Open(ctx, cfg.StoreDriver, cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreDriver, err)
		if cfg.StoreDriver != "sqlite3" {
			logger.Error("Check STORE_DSN or the POSTGRES_* settings")
		}
		os.Exit(1)
	}
	defer store.Close()

	httpFetcher := fetch.New(fetch.Options{
		Timeout:      cfg.FetchTimeout,
		Retries:      cfg.FetchRetries,
		RPS:          cfg.RequestRPS,
		Burst:        cfg.RequestBurst,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Logger:       logger,
	})

	opts := rightmove.Options{
		BaseURL:           cfg.BaseURL,
		SearchConcurrency: cfg.SearchConcurrency,
		MediaConcurrency:  cfg.MediaConcurrency,
		RateLimitMs:       cfg.RateLimitMs,
		Logger:            logger,
	}

	if cfg.DetailMode == "browser" {
		browser, err := fetch.NewBrowserFetcher(cfg.ChromeBin, cfg.FetchTimeout, logger)
		if err != nil {
			logger.Error("Failed to start headless browser: %v", err)
			os.Exit(1)
		}
		defer browser.Close()
		opts.Detail = browser
	}

	if cfg.RedisAddr != "" {
		cache := storage.NewRedisLocationCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LocationCacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := cache.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("Redis at %s unavailable, location cache disabled: %v", cfg.RedisAddr, err)
			cache.Close()
		} else {
			defer cache.Close()
			opts.Cache = cache
			logger.Info("Location cache: redis %s (ttl %s)", cfg.RedisAddr, cfg.LocationCacheTTL)
		}
	}

	client := rightmove.New(httpFetcher, opts)
	generator := services.NewGenerator(client, store, services.GeneratorOptions{
		Cities:            cfg.Cities,
		IncludeFloorplans: cfg.IncludeFloorplans,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
	}, logger)

	if cfg.APIAddr != "" {
		if err := serve(ctx, cfg, store, generator, logger); err != nil {
			logger.Error("API server: %v", err)
			os.Exit(1)
		}
		return
	}

	run, err := generator.Generate(ctx, cfg.GenerateCount, func(pct int) {
		logger.Info("Progress: %d%%", pct)
	})
	if err != nil {
		logger.Error("Generate failed: %v", err)
		os.Exit(1)
	}
	if len(run.Listings) == 0 {
		logger.Error("No listings were stored (%d cities failed). Exiting.", run.Failed)
		os.Exit(1)
	}
	logger.Info("Run %s stored %d listings (%d cities failed)", run.ID, len(run.Listings), run.Failed)

	if cfg.CSVOutputPath != "" {
		var exporter storage.RecordWriter
		exporter, err = storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
		} else if err := storage.Export(exporter, run.Listings); err != nil {
			logger.Error("CSV export failed: %v", err)
		} else {
			logger.Info("Listings exported to %s", cfg.CSVOutputPath)
		}
	}

	if total, err := store.Count(ctx); err == nil {
		logger.Info("Store now holds %d listings", total)
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(os.Stdout, insightSvc.Generate(run.Listings))
}

func serve(ctx context.Context, cfg *config.Config, store storage.ListingStore, gen api.Generator, logger *utils.Logger) error {
	srv := &http.Server{
		Addr: cfg.APIAddr,
		Handler: api.NewRouter(api.Deps{
			Store:     store,
			Generator: gen,
			Logger:    logger,
			RateLimit: cfg.APIRateLimit,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", cfg.APIAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
