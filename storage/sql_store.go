package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

// SQLStore is the database/sql backed ListingStore for Postgres and SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *utils.Logger

	// drawMu serialises draws inside this process. Across processes the
	// Postgres draw relies on FOR UPDATE SKIP LOCKED.
	drawMu sync.Mutex
}

// Open connects using driver ("postgres", "pgx" or "sqlite3"), waits for the
// database to answer, and runs schema migrations.
func Open(ctx context.Context, driver, dsn string, logger *utils.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = utils.Discard()
	}
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	if d.singleConn {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.name, err)
	}
	if d.singleConn {
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < d.pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if i == d.pingAttempts-1 {
			break
		}
		logger.Warn("[store] %s not ready (attempt %d/%d): %v", d.name, i+1, d.pingAttempts, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping failed after retries: %w", d.name, err)
	}

	s, err := newSQLStore(ctx, db, d, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle and migrates it.
func NewWithDB(ctx context.Context, db *sql.DB, driver string, logger *utils.Logger) (*SQLStore, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return newSQLStore(ctx, db, d, logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger *utils.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = utils.Discard()
	}
	s := &SQLStore{db: db, dialect: d, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return s, nil
}

func ensureSQLiteDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sqlite3: create db dir: %w", err)
	}
	return nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) q(query string) string { return s.dialect.rebind(query) }

func (s *SQLStore) Save(ctx context.Context, rec *models.ListingRecord, images [][]byte, plot []byte) error {
	if rec == nil || rec.ID == "" {
		return errors.New("store: save: listing id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", rec.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO listings (id, data, used, updated_at)
		VALUES ($1, $2, FALSE, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			data       = excluded.data,
			used       = FALSE,
			updated_at = CURRENT_TIMESTAMP`), rec.ID, string(data)); err != nil {
		return fmt.Errorf("store: upsert %s: %w", rec.ID, err)
	}

	// Replace the current media set.
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM listing_images WHERE listing_id = $1`), rec.ID); err != nil {
		return fmt.Errorf("store: clear images %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM listing_plots WHERE listing_id = $1`), rec.ID); err != nil {
		return fmt.Errorf("store: clear plot %s: %w", rec.ID, err)
	}

	idx := 0
	for _, img := range images {
		if img == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO listing_images (listing_id, image_index, image_data)
			VALUES ($1, $2, $3)`), rec.ID, idx, img); err != nil {
			return fmt.Errorf("store: insert image %s/%d: %w", rec.ID, idx, err)
		}
		idx++
	}

	if plot != nil {
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO listing_plots (listing_id, plot_data)
			VALUES ($1, $2)`), rec.ID, plot); err != nil {
			return fmt.Errorf("store: insert plot %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit %s: %w", rec.ID, err)
	}
	s.logger.Debug("[store] saved %s with %d images", rec.ID, idx)
	return nil
}

type drawnRow struct {
	id   string
	data []byte
}

func (s *SQLStore) DrawUnused(ctx context.Context, count int) ([]models.StoredListing, error) {
	if count <= 0 {
		return nil, nil
	}

	s.drawMu.Lock()
	defer s.drawMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin draw: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, s.q(s.dialect.drawQuery), count)
	if err != nil {
		return nil, fmt.Errorf("store: draw: %w", err)
	}
	// Drain before issuing the media queries on the same transaction.
	var drawn []drawnRow
	for rows.Next() {
		var r drawnRow
		if err := rows.Scan(&r.id, &r.data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan draw: %w", err)
		}
		drawn = append(drawn, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("store: draw rows: %w", err)
	}
	rows.Close()

	out := make([]models.StoredListing, 0, len(drawn))
	for _, r := range drawn {
		rec := &models.ListingRecord{}
		if err := json.Unmarshal(r.data, rec); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", r.id, err)
		}
		images, err := queryImages(ctx, tx, s.q, r.id)
		if err != nil {
			return nil, err
		}
		plot, err := queryPlot(ctx, tx, s.q, r.id)
		if err != nil {
			return nil, err
		}
		out = append(out, models.StoredListing{Record: rec, Images: images, Plot: plot, Used: true})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit draw: %w", err)
	}
	s.logger.Debug("[store] drew %d of %d requested", len(out), count)
	return out, nil
}

func (s *SQLStore) ResetUsed(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `UPDATE listings SET used = FALSE WHERE used = TRUE`)
	if err != nil {
		return fmt.Errorf("store: reset used: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.Info("[store] reset %d listings to unused", n)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

func (s *SQLStore) ListingImages(ctx context.Context, id string) ([][]byte, error) {
	return queryImages(ctx, s.db, s.q, id)
}

func (s *SQLStore) ListingPlot(ctx context.Context, id string) ([]byte, error) {
	return queryPlot(ctx, s.db, s.q, id)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryImages(ctx context.Context, qr querier, rebind func(string) string, id string) ([][]byte, error) {
	rows, err := qr.QueryContext(ctx, rebind(`
		SELECT image_data FROM listing_images
		WHERE listing_id = $1
		ORDER BY image_index`), id)
	if err != nil {
		return nil, fmt.Errorf("store: images %s: %w", id, err)
	}
	defer rows.Close()

	var images [][]byte
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("store: scan image %s: %w", id, err)
		}
		images = append(images, b)
	}
	return images, rows.Err()
}

func queryPlot(ctx context.Context, qr querier, rebind func(string) string, id string) ([]byte, error) {
	var plot []byte
	err := qr.QueryRowContext(ctx, rebind(`SELECT plot_data FROM listing_plots WHERE listing_id = $1`), id).Scan(&plot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: plot %s: %w", id, err)
	}
	return plot, nil
}
