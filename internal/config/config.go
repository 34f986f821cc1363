package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the registry API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Quality   QualityConfig   `yaml:"quality"`
	Slugs     SlugConfig      `yaml:"slugs"`
	Index     IndexConfig     `yaml:"index"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds HNSW vector index tuning.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construct"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	AdminKeys      []string `yaml:"admin_keys"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ClassLimits holds per-request-class limits for one scope kind.
type ClassLimits struct {
	Read     int `yaml:"read"`
	Write    int `yaml:"write"`
	Download int `yaml:"download"`
}

// RateLimitConfig holds fixed-window rate limit settings.
type RateLimitConfig struct {
	WindowMs int         `yaml:"window_ms"`
	IP       ClassLimits `yaml:"ip"`
	Key      ClassLimits `yaml:"key"`
}

// QualityConfig holds content quality evaluation settings.
type QualityConfig struct {
	SweepPageSize       int     `yaml:"sweep_page_size"`
	SweepItemsPerSec    float64 `yaml:"sweep_items_per_sec"`
	NominationThreshold int     `yaml:"nomination_threshold"`
}

// SlugConfig holds slug reservation settings.
type SlugConfig struct {
	ReservationTTLHours int `yaml:"reservation_ttl_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.RateLimit.WindowMs <= 0 {
		c.RateLimit.WindowMs = 60000
	}
	applyClassDefaults(&c.RateLimit.IP, 60, 20, 120)
	applyClassDefaults(&c.RateLimit.Key, 300, 60, 600)
	if c.Quality.SweepPageSize <= 0 {
		c.Quality.SweepPageSize = 50
	}
	if c.Quality.SweepItemsPerSec <= 0 {
		c.Quality.SweepItemsPerSec = 20
	}
	if c.Quality.NominationThreshold <= 0 {
		c.Quality.NominationThreshold = 5
	}
	if c.Slugs.ReservationTTLHours <= 0 {
		c.Slugs.ReservationTTLHours = 24 * 30
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
}

func applyClassDefaults(l *ClassLimits, read, write, download int) {
	if l.Read <= 0 {
		l.Read = read
	}
	if l.Write <= 0 {
		l.Write = write
	}
	if l.Download <= 0 {
		l.Download = download
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.RateLimit.WindowMs < 1000 {
		return fmt.Errorf("ratelimit.window_ms must be at least 1000, got %d", c.RateLimit.WindowMs)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
