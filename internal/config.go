package internal

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// DatabaseUrl is optional. Drafts are kept in memory when it is empty.
	DatabaseUrl string

	// Upstream REST API (also the login proxy target)
	APIURL     string
	APITimeout time.Duration

	// Administrative units API and its on-disk response cache
	ProvincesAPIURL string
	OptionsCacheDir string
	OptionsCacheTTL time.Duration

	// AddressClearStale drops district and ward codes that no longer
	// belong to their parent when a customer is saved.
	AddressClearStale bool

	// Upload control
	UploadMaxBytes int64

	// Storage for staged uploads
	StorageProvider   string // "local" or "r2"
	LocalStoragePath  string
	LocalStorageURL   string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Drafts and the janitor that expires them
	DraftTTL        time.Duration
	JanitorEnabled  bool
	JanitorInterval time.Duration

	// Login attempts allowed per client IP per window
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// ImageOrigins are the CSP image sources of stored product images.
	// Empty allows any HTTPS origin.
	ImageOrigins []string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// DefaultUploadMaxBytes is the per-file ceiling of the upload control (10 MiB).
const DefaultUploadMaxBytes = 10 * 1024 * 1024

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		DatabaseUrl: getEnv("DATABASE_URL", ""),

		APIURL:     getEnv("API_URL", ""),
		APITimeout: getEnvDuration("API_TIMEOUT", 15*time.Second),

		ProvincesAPIURL: getEnv("PROVINCES_API_URL", "https://provinces.open-api.vn/api"),
		OptionsCacheDir: getEnv("OPTIONS_CACHE_DIR", "./cache/options"),
		OptionsCacheTTL: getEnvDuration("OPTIONS_CACHE_TTL", 24*time.Hour),

		AddressClearStale: getEnvBool("ADDRESS_CLEAR_STALE", false),

		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes)),

		StorageProvider:   getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath:  getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:   getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		DraftTTL:        getEnvDuration("DRAFT_TTL", 2*time.Hour),
		JanitorEnabled:  getEnvBool("JANITOR_ENABLED", true),
		JanitorInterval: getEnvDuration("JANITOR_INTERVAL", 5*time.Minute),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		ImageOrigins: getEnvList("IMAGE_ORIGINS"),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsSecure reports whether cookies should carry the Secure flag.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}

func (c *Config) validate() error {
	// Required
	if c.APIURL == "" {
		return fmt.Errorf("API_URL is required")
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got: %s", c.APIURL)
	}

	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got: %d", c.UploadMaxBytes)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive, got: %s", c.DraftTTL)
	}
	if c.JanitorEnabled && c.JanitorInterval <= 0 {
		return fmt.Errorf("JANITOR_INTERVAL must be positive when the janitor is enabled")
	}

	// Validate storage configuration
	switch c.StorageProvider {
	case "local":
	case "r2":
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
