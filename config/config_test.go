package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("STORE_DSN", "")
	t.Setenv("DETAIL_FETCH_MODE", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("CITIES_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != "sqlite3" {
		t.Errorf("StoreDriver = %q; want sqlite3", cfg.StoreDriver)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Errorf("FetchTimeout = %v; want 20s", cfg.FetchTimeout)
	}
	if len(cfg.Cities) != 20 {
		t.Errorf("Cities: got %d, want 20", len(cfg.Cities))
	}
	if !strings.HasSuffix(cfg.DSN(), filepath.Join("Documents", "properties.db")) {
		t.Errorf("DSN() = %q; want default sqlite path", cfg.DSN())
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Error("Load with STORE_DRIVER=mysql should fail")
	}
}

func TestPostgresDSN(t *testing.T) {
	c := &Config{
		StoreDriver:      "postgres",
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "properties",
		PostgresSSLMode:  "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=properties sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q; want %q", got, want)
	}
}

func TestLoadCities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	body := "cities:\n  - London\n  - \"  York \"\n  - \"\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCities(path)
	if err != nil {
		t.Fatalf("LoadCities: %v", err)
	}
	if want := []string{"london", "york"}; !reflect.DeepEqual(got, want) {
		t.Errorf("LoadCities = %v; want %v", got, want)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	_ = os.WriteFile(empty, []byte("cities: []\n"), 0o644)
	if _, err := LoadCities(empty); err == nil {
		t.Error("LoadCities on empty list should fail")
	}
}
