package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultCities is the sampling universe for generation runs.
var DefaultCities = []string{
	"london", "birmingham", "glasgow", "liverpool", "leeds",
	"sheffield", "manchester", "edinburgh", "bristol", "cardiff",
	"leicester", "coventry", "nottingham", "newcastle upon tyne", "belfast",
	"brighton", "hull", "plymouth", "bradford", "wolverhampton",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseURL string

	StoreDriver      string
	StoreDSN         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LocationCacheTTL time.Duration

	FetchTimeout time.Duration
	FetchRetries int
	RequestRPS   float64
	RequestBurst int
	MaxBodyBytes int64
	DetailMode   string
	ChromeBin    string

	SearchConcurrency int
	MediaConcurrency  int
	RateLimitMs       int
	IncludeFloorplans bool
	MaxRetries        int
	RetryBaseDelay    time.Duration

	Cities        []string
	GenerateCount int
	CSVOutputPath string
	APIAddr       string
	APIRateLimit  int
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		BaseURL: strings.TrimRight(getEnv("RIGHTMOVE_BASE_URL", "https://www.rightmove.co.uk"), "/"),

		StoreDriver:      getEnv("STORE_DRIVER", "sqlite3"),
		StoreDSN:         getEnv("STORE_DSN", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "properties"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		LocationCacheTTL: getEnvDuration("LOCATION_CACHE_TTL", 24*time.Hour),

		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchRetries: getEnvInt("FETCH_RETRIES", 0),
		RequestRPS:   getEnvFloat("REQUEST_RPS", 0),
		RequestBurst: getEnvInt("REQUEST_BURST", 1),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 32<<20)),
		DetailMode:   strings.ToLower(getEnv("DETAIL_FETCH_MODE", "http")),
		ChromeBin:    getEnv("CHROME_BIN", ""),

		SearchConcurrency: getEnvInt("SEARCH_CONCURRENCY", 16),
		MediaConcurrency:  getEnvInt("MEDIA_CONCURRENCY", 8),
		RateLimitMs:       getEnvInt("RATE_LIMIT_MS", 0),
		IncludeFloorplans: getEnvBool("INCLUDE_FLOORPLANS", true),
		MaxRetries:        getEnvInt("MAX_RETRIES", 2),
		RetryBaseDelay:    time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,

		Cities:        DefaultCities,
		GenerateCount: getEnvInt("GENERATE_COUNT", 10),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),
		APIAddr:       getEnv("API_ADDR", ""),
		APIRateLimit:  getEnvInt("API_RATE_LIMIT", 100),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if path := getEnv("CITIES_FILE", ""); path != "" {
		cities, err := LoadCities(path)
		if err != nil {
			return nil, err
		}
		cfg.Cities = cities
	}

	switch cfg.StoreDriver {
	case "sqlite3", "postgres", "pgx":
	default:
		return nil, fmt.Errorf("config: unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.DetailMode {
	case "http", "browser":
	default:
		return nil, fmt.Errorf("config: unsupported DETAIL_FETCH_MODE %q", cfg.DetailMode)
	}

	return cfg, nil
}

type citiesFile struct {
	Cities []string `yaml:"cities"`
}

// LoadCities reads a YAML document of the form `cities: [a, b, ...]`.
// Names are lowercased and blanks dropped.
func LoadCities(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read cities file: %w", err)
	}
	var f citiesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse cities file: %w", err)
	}

	out := make([]string, 0, len(f.Cities))
	for _, c := range f.Cities {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: cities file %q lists no cities", path)
	}
	return out, nil
}

// DSN returns the connection string for the configured store driver.
func (c *Config) DSN() string {
	if c.StoreDSN != "" {
		return expandHome(c.StoreDSN)
	}
	if c.StoreDriver == "sqlite3" {
		return expandHome("~/Documents/properties.db")
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
