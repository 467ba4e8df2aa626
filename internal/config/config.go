package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/logging"
)

const (
	BackendBlob  = "blob"
	BackendTable = "table"
)

type Config struct {
	ListenAddr    string
	DBPath        string
	StoreBackend  string
	PhotoPath     string
	LogLevel      string
	LogFile       string
	Location      *time.Location
	DisplayUnit   domain.WeightUnit
	BannerTimeout time.Duration
	JPEGQuality   int
}

// Load reads the configuration from the environment. Variables from the file
// named by ENV_FILE (default ".env") are applied first when it exists; they
// never override variables already set.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	cfg := &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", "/data/weightlog.db"),
		StoreBackend: getEnv("STORE_BACKEND", BackendBlob),
		PhotoPath:    getEnv("PHOTO_LOCAL_PATH", "/data/images"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
	}

	switch cfg.StoreBackend {
	case BackendBlob, BackendTable:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want %q or %q", cfg.StoreBackend, BackendBlob, BackendTable)
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	loc, err := time.LoadLocation(getEnv("TZ_NAME", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	cfg.Location = loc

	unit, err := domain.ParseWeightUnit(getEnv("DISPLAY_UNIT", string(domain.Kilograms)))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_UNIT: %w", err)
	}
	cfg.DisplayUnit = unit

	timeout, err := time.ParseDuration(getEnv("BANNER_TIMEOUT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BANNER_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid BANNER_TIMEOUT: %s is not positive", timeout)
	}
	cfg.BannerTimeout = timeout

	quality, err := strconv.Atoi(getEnv("JPEG_QUALITY", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid JPEG_QUALITY: %w", err)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("invalid JPEG_QUALITY: %d is outside 1-100", quality)
	}
	cfg.JPEGQuality = quality

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
