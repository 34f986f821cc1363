package config

import (
	"strings"
	"testing"
)

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{Dimensions: 1536},
		RateLimit: RateLimitConfig{WindowMs: 60000},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{},
		},
		Embedding: EmbeddingConfig{Dimensions: 1536},
		RateLimit: RateLimitConfig{WindowMs: 60000},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidDimensions(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{Dimensions: 0},
		RateLimit: RateLimitConfig{WindowMs: 60000},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for non-positive dimensions")
	}
}

func TestValidate_WindowTooShort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{Dimensions: 1536},
		RateLimit: RateLimitConfig{WindowMs: 500},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for sub-second rate limit window")
	}

	expected := "ratelimit.window_ms must be at least 1000, got 500"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Embedding.TimeoutSec != 15 {
		t.Errorf("expected embedding TimeoutSec=15, got %d", cfg.Embedding.TimeoutSec)
	}
	if cfg.RateLimit.WindowMs != 60000 {
		t.Errorf("expected WindowMs=60000, got %d", cfg.RateLimit.WindowMs)
	}
	if cfg.RateLimit.IP.Read != 60 || cfg.RateLimit.IP.Write != 20 || cfg.RateLimit.IP.Download != 120 {
		t.Errorf("unexpected IP class defaults: %+v", cfg.RateLimit.IP)
	}
	if cfg.RateLimit.Key.Read != 300 || cfg.RateLimit.Key.Write != 60 || cfg.RateLimit.Key.Download != 600 {
		t.Errorf("unexpected Key class defaults: %+v", cfg.RateLimit.Key)
	}
	if cfg.Quality.SweepPageSize != 50 {
		t.Errorf("expected SweepPageSize=50, got %d", cfg.Quality.SweepPageSize)
	}
	if cfg.Quality.SweepItemsPerSec != 20 {
		t.Errorf("expected SweepItemsPerSec=20, got %f", cfg.Quality.SweepItemsPerSec)
	}
	if cfg.Quality.NominationThreshold != 5 {
		t.Errorf("expected NominationThreshold=5, got %d", cfg.Quality.NominationThreshold)
	}
	if cfg.Slugs.ReservationTTLHours != 720 {
		t.Errorf("expected ReservationTTLHours=720, got %d", cfg.Slugs.ReservationTTLHours)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("expected HNSWEFConstruct=200, got %d", cfg.Index.HNSWEFConstruct)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		RateLimit: RateLimitConfig{
			WindowMs: 30000,
			IP:       ClassLimits{Read: 10, Write: 5, Download: 20},
		},
		Quality: QualityConfig{SweepPageSize: 200, NominationThreshold: 3},
		Slugs:   SlugConfig{ReservationTTLHours: 48},
		Index:   IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.RateLimit.WindowMs != 30000 {
		t.Errorf("expected WindowMs=30000, got %d", cfg.RateLimit.WindowMs)
	}
	if cfg.RateLimit.IP.Write != 5 {
		t.Errorf("expected IP write limit=5, got %d", cfg.RateLimit.IP.Write)
	}
	if cfg.Quality.SweepPageSize != 200 {
		t.Errorf("expected SweepPageSize=200, got %d", cfg.Quality.SweepPageSize)
	}
	if cfg.Slugs.ReservationTTLHours != 48 {
		t.Errorf("expected ReservationTTLHours=48, got %d", cfg.Slugs.ReservationTTLHours)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("REGISTRY_TEST_KEY", "secret-123")

	in := []byte("api_key: ${REGISTRY_TEST_KEY}\nmodel: ${REGISTRY_TEST_MODEL:-text-embedding-3-small}\n")
	out := string(expandEnvVars(in))

	if !strings.Contains(out, "api_key: secret-123") {
		t.Errorf("expected env var substitution, got %q", out)
	}
	if !strings.Contains(out, "model: text-embedding-3-small") {
		t.Errorf("expected default value for unset var, got %q", out)
	}
}

func TestExpandEnvVars_SetVarBeatsDefault(t *testing.T) {
	t.Setenv("REGISTRY_TEST_MODEL", "text-embedding-3-large")

	out := string(expandEnvVars([]byte("model: ${REGISTRY_TEST_MODEL:-text-embedding-3-small}")))
	if out != "model: text-embedding-3-large" {
		t.Errorf("expected set var to win over default, got %q", out)
	}
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error loading local config: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.HTTP.Port)
	}
	if len(cfg.Database.Addrs) == 0 {
		t.Error("expected at least one database addr")
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected dimensions 1536, got %d", cfg.Embedding.Dimensions)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("does-not-exist")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
