package config

import (
	"os"
	"slices"
	"testing"
	"time"
)

func TestStorageEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  StorageConfig
		want bool
	}{
		{"empty", StorageConfig{}, false},
		{"bucket only", StorageConfig{Bucket: "b"}, false},
		{"missing secret", StorageConfig{Bucket: "b", AccessKeyID: "k"}, false},
		{"complete", StorageConfig{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_MAX_OPEN_CONNS", "WEB_PORT", "WEB_HOST", "IMAGE_FETCH_TIMEOUT",
		"IMAGE_CACHE_SIZE", "IMAGE_CONCURRENCY", "IMAGE_ALLOWED_NETWORKS", "EXPORT_ENGINE", "EXPORT_SCALE", "EXPORT_QUALITY", "S3_REGION",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Web.Port)
	}
	if cfg.Web.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got '%s'", cfg.Web.Host)
	}
	if cfg.Images.FetchTimeout != 15*time.Second {
		t.Errorf("expected default fetch timeout 15s, got %s", cfg.Images.FetchTimeout)
	}
	if cfg.Images.CacheSize != 2048 {
		t.Errorf("expected default cache size 2048, got %d", cfg.Images.CacheSize)
	}
	if cfg.Images.Concurrency != 5 {
		t.Errorf("expected default image concurrency 5, got %d", cfg.Images.Concurrency)
	}
	if len(cfg.Images.AllowedNetworks) != 0 {
		t.Errorf("expected no allowed networks by default, got %v", cfg.Images.AllowedNetworks)
	}
	if cfg.Export.Engine != "native" {
		t.Errorf("expected default engine 'native', got '%s'", cfg.Export.Engine)
	}
	if cfg.Export.Scale != 2 {
		t.Errorf("expected default scale 2, got %f", cfg.Export.Scale)
	}
	if cfg.Export.Quality != 0.98 {
		t.Errorf("expected default quality 0.98, got %f", cfg.Export.Quality)
	}
	if cfg.Storage.Region != "auto" {
		t.Errorf("expected default region 'auto', got '%s'", cfg.Storage.Region)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("WEB_PORT", "not-a-port")
	t.Setenv("IMAGE_CACHE_SIZE", "-5")

	cfg := Load()

	if cfg.Web.Port != 8080 {
		t.Errorf("expected fallback port 8080, got %d", cfg.Web.Port)
	}
	if cfg.Images.CacheSize != 2048 {
		t.Errorf("expected fallback cache size 2048, got %d", cfg.Images.CacheSize)
	}
}

func TestLoad_ZeroTimeoutDisablesLimit(t *testing.T) {
	t.Setenv("IMAGE_FETCH_TIMEOUT", "0s")

	cfg := Load()

	if cfg.Images.FetchTimeout != 0 {
		t.Errorf("expected zero fetch timeout, got %s", cfg.Images.FetchTimeout)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("EXPORT_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Export.Timeout != 2*time.Minute {
		t.Errorf("expected fallback export timeout 2m, got %s", cfg.Export.Timeout)
	}
}

func TestLoad_ExportOverrides(t *testing.T) {
	t.Setenv("EXPORT_ENGINE", "Chromium")
	t.Setenv("EXPORT_SCALE", "1.5")
	t.Setenv("EXPORT_QUALITY", "0.8")
	t.Setenv("CHROME_PATH", "/usr/bin/chromium")

	cfg := Load()

	if cfg.Export.Engine != "chromium" {
		t.Errorf("expected engine 'chromium', got '%s'", cfg.Export.Engine)
	}
	if cfg.Export.Scale != 1.5 {
		t.Errorf("expected scale 1.5, got %f", cfg.Export.Scale)
	}
	if cfg.Export.Quality != 0.8 {
		t.Errorf("expected quality 0.8, got %f", cfg.Export.Quality)
	}
	if cfg.Export.ChromePath != "/usr/bin/chromium" {
		t.Errorf("expected chrome path, got '%s'", cfg.Export.ChromePath)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg := Load()

	if len(cfg.Web.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %d: %v", len(cfg.Web.AllowedOrigins), cfg.Web.AllowedOrigins)
	}
	if cfg.Web.AllowedOrigins[0] != "https://a.example.com" || cfg.Web.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected origins: %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoad_StoragePublicURLTrimmed(t *testing.T) {
	t.Setenv("S3_PUBLIC_URL", "https://cdn.example.com/")

	cfg := Load()

	if cfg.Storage.PublicURL != "https://cdn.example.com" {
		t.Errorf("expected trailing slash trimmed, got '%s'", cfg.Storage.PublicURL)
	}
}

func TestLoad_AllowedNetworks(t *testing.T) {
	t.Setenv("IMAGE_ALLOWED_NETWORKS", "127.0.0.0/8, ::1/128,,")

	cfg := Load()

	want := []string{"127.0.0.0/8", "::1/128"}
	if !slices.Equal(cfg.Images.AllowedNetworks, want) {
		t.Errorf("expected %v, got %v", want, cfg.Images.AllowedNetworks)
	}
}
