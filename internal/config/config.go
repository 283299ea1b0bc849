package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Web      WebConfig
	Log      LogConfig
	Redis    RedisConfig
	Images   ImagesConfig
	Export   ExportConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Port           int
	Host           string
	SessionSecret  string
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

type RedisConfig struct {
	URL string // optional; enables the shared image classification cache
}

type ImagesConfig struct {
	FetchTimeout    time.Duration // per image; 0 disables the timeout
	CacheSize       int           // in-process LRU entries
	CacheTTL        time.Duration // Redis entry lifetime
	MaxBytes        int64         // upper bound on a fetched image body
	Concurrency     int           // parallel loads per report
	AllowedNetworks []string      // CIDRs exempt from the internal-address block
}

type ExportConfig struct {
	Engine     string  // "native" or "chromium"
	Scale      float64 // raster scale factor
	Quality    float64 // JPEG quality in (0, 1]
	Timeout    time.Duration
	ChromePath string // optional explicit browser binary
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Enabled reports whether S3 object storage is configured.
// Without it uploads are stored inline as data URLs.
func (c *StorageConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string ("15s", "2m"). Zero is allowed and
// means "no limit" for the callers that support it.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Images: ImagesConfig{
			FetchTimeout:    envDuration("IMAGE_FETCH_TIMEOUT", 15*time.Second),
			CacheSize:       envInt("IMAGE_CACHE_SIZE", 2048),
			CacheTTL:        envDuration("IMAGE_CACHE_TTL", 7*24*time.Hour),
			MaxBytes:        int64(envInt("IMAGE_MAX_BYTES", 25<<20)),
			Concurrency:     envInt("IMAGE_CONCURRENCY", 5),
			AllowedNetworks: envList("IMAGE_ALLOWED_NETWORKS"),
		},
		Export: ExportConfig{
			Engine:     strings.ToLower(envString("EXPORT_ENGINE", "native")),
			Scale:      envFloat("EXPORT_SCALE", 2),
			Quality:    envFloat("EXPORT_QUALITY", 0.98),
			Timeout:    envDuration("EXPORT_TIMEOUT", 2*time.Minute),
			ChromePath: os.Getenv("CHROME_PATH"),
		},
		Storage: StorageConfig{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          envString("S3_REGION", "auto"),
			Bucket:          os.Getenv("S3_BUCKET"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicURL:       strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),
		},
	}
}
