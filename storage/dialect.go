package storage

import (
	"fmt"
	"regexp"
)

// dialect carries the per-engine SQL. Queries are written with $N
// placeholders and rebound where the engine wants something else.
type dialect struct {
	name         string
	driverName   string
	schema       []string
	drawQuery    string
	singleConn   bool
	// pingAttempts bounds the startup wait for a server to come up.
	pingAttempts int
	rebind       func(string) string
}

const drawBase = `
		UPDATE listings SET used = TRUE
		WHERE used = FALSE AND id IN (
			SELECT id FROM listings
			WHERE used = FALSE
			ORDER BY random()
			LIMIT $1%s
		)
		RETURNING id, data`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id         TEXT        PRIMARY KEY,
		data       JSONB       NOT NULL,
		used       BOOLEAN     NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_used ON listings(used)`,
	`CREATE TABLE IF NOT EXISTS listing_images (
		listing_id  TEXT    NOT NULL REFERENCES listings(id),
		image_index INTEGER NOT NULL,
		image_data  BYTEA   NOT NULL,
		PRIMARY KEY (listing_id, image_index)
	)`,
	`CREATE TABLE IF NOT EXISTS listing_plots (
		listing_id TEXT  PRIMARY KEY REFERENCES listings(id),
		plot_data  BYTEA NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id         TEXT    PRIMARY KEY,
		data       TEXT    NOT NULL,
		used       INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_used ON listings(used)`,
	`CREATE TABLE IF NOT EXISTS listing_images (
		listing_id  TEXT    NOT NULL REFERENCES listings(id),
		image_index INTEGER NOT NULL,
		image_data  BLOB    NOT NULL,
		PRIMARY KEY (listing_id, image_index)
	)`,
	`CREATE TABLE IF NOT EXISTS listing_plots (
		listing_id TEXT PRIMARY KEY REFERENCES listings(id),
		plot_data  BLOB NOT NULL
	)`,
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

func identity(q string) string { return q }

// sqliteRebind turns $N into ?N, which SQLite reads as the same numbered
// parameter.
func sqliteRebind(q string) string { return placeholder.ReplaceAllString(q, "?$1") }

var dialects = map[string]dialect{
	"postgres": {
		name:         "postgres",
		driverName:   "postgres",
		schema:       postgresSchema,
		drawQuery:    fmt.Sprintf(drawBase, "\n\t\t\tFOR UPDATE SKIP LOCKED"),
		pingAttempts: 10,
		rebind:       identity,
	},
	"pgx": {
		name:         "pgx",
		driverName:   "pgx",
		schema:       postgresSchema,
		drawQuery:    fmt.Sprintf(drawBase, "\n\t\t\tFOR UPDATE SKIP LOCKED"),
		pingAttempts: 10,
		rebind:       identity,
	},
	"sqlite3": {
		name:         "sqlite3",
		driverName:   "sqlite3",
		schema:       sqliteSchema,
		drawQuery:    fmt.Sprintf(drawBase, ""),
		singleConn:   true,
		pingAttempts: 1,
		rebind:       sqliteRebind,
	},
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("storage: unsupported driver %q", driver)
	}
	return d, nil
}
