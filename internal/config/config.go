package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Dataset source kinds.
const (
	SourceCSV   = "csv"
	SourceRedis = "redis"
)

// Config holds the opsearch service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Dataset DatasetConfig `yaml:"dataset"`
	Search  SearchConfig  `yaml:"search"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys means auth is off.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int     `yaml:"port"`
	ReadTimeoutSec  int     `yaml:"read_timeout_sec"`
	WriteTimeoutSec int     `yaml:"write_timeout_sec"`
	ShutdownSec     int     `yaml:"shutdown_timeout_sec"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	DefaultPageSize int     `yaml:"default_page_size"`
	MaxPageSize     int     `yaml:"max_page_size"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatasetConfig describes where records come from.
type DatasetConfig struct {
	Source          string `yaml:"source"` // csv (default), redis
	Path            string `yaml:"path"`
	Delimiter       string `yaml:"delimiter"`
	Encoding        string `yaml:"encoding"` // latin1 (default), utf-8
	KeyPattern      string `yaml:"key_pattern"`
	IDField         string `yaml:"id_field"`
	Watch           bool   `yaml:"watch"`
	WatchDebounceMS int    `yaml:"watch_debounce_ms"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	Fields              []string `yaml:"fields"`
	DefaultLimit        int      `yaml:"default_limit"`
	MaxLimit            int      `yaml:"max_limit"`       // 0 = unlimited, larger limits are clamped
	MaxTermLength       int      `yaml:"max_term_length"` // 0 = unlimited
	DefaultMinRelevance *float64 `yaml:"default_min_relevance"`
	Workers             int      `yaml:"workers"`
	ParallelThreshold   int      `yaml:"parallel_threshold"`
}

// RedisConfig holds connection settings for the hash source and the result cache.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RateLimitRPS > 0 && c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = max(1, int(c.HTTP.RateLimitRPS))
	}
	if c.HTTP.DefaultPageSize <= 0 {
		c.HTTP.DefaultPageSize = 20
	}
	if c.HTTP.MaxPageSize <= 0 {
		c.HTTP.MaxPageSize = 100
	}

	if c.Dataset.Source == "" {
		c.Dataset.Source = SourceCSV
	}
	if c.Dataset.Delimiter == "" {
		c.Dataset.Delimiter = ";"
	}
	if c.Dataset.Encoding == "" {
		c.Dataset.Encoding = "latin1"
	}
	if c.Dataset.KeyPattern == "" {
		c.Dataset.KeyPattern = "operadora:*"
	}
	if c.Dataset.IDField == "" {
		c.Dataset.IDField = "registro_ans"
	}
	if c.Dataset.WatchDebounceMS <= 0 {
		c.Dataset.WatchDebounceMS = 500
	}

	if len(c.Search.Fields) == 0 {
		c.Search.Fields = []string{"registro_ans", "cnpj", "razao_social", "nome_fantasia"}
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.DefaultMinRelevance == nil {
		v := 0.5
		c.Search.DefaultMinRelevance = &v
	}
	if c.Search.ParallelThreshold <= 0 {
		c.Search.ParallelThreshold = 5000
	}

	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must not be negative, got %v", c.HTTP.RateLimitRPS)
	}
	if c.HTTP.DefaultPageSize > c.HTTP.MaxPageSize {
		return fmt.Errorf("http.default_page_size (%d) exceeds http.max_page_size (%d)",
			c.HTTP.DefaultPageSize, c.HTTP.MaxPageSize)
	}

	switch c.Dataset.Source {
	case SourceCSV:
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required for csv source")
		}
		if utf8.RuneCountInString(c.Dataset.Delimiter) != 1 {
			return fmt.Errorf("dataset.delimiter must be a single character, got %q", c.Dataset.Delimiter)
		}
	case SourceRedis:
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("redis.addrs is required for redis source")
		}
		if c.Dataset.Watch {
			return fmt.Errorf("dataset.watch is only supported for csv source")
		}
	default:
		return fmt.Errorf("dataset.source must be %q or %q, got %q", SourceCSV, SourceRedis, c.Dataset.Source)
	}

	for _, p := range c.HTTP.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("http.trusted_proxies: %q is not an IP or CIDR", p)
		}
	}

	if c.Cache.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required when cache is enabled")
	}

	if c.Search.MaxLimit < 0 || c.Search.MaxTermLength < 0 {
		return fmt.Errorf("search.max_limit and search.max_term_length must not be negative")
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if rel := *c.Search.DefaultMinRelevance; !(rel >= 0 && rel <= 1) {
		return fmt.Errorf("search.default_min_relevance must be within [0, 1], got %v", rel)
	}
	for _, f := range c.Search.Fields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("search.fields must not contain empty names")
		}
	}
	return nil
}

// DelimiterRune returns the dataset delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Dataset.Delimiter)
	return r
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Dataset.Source == SourceRedis || c.Cache.Enabled
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
