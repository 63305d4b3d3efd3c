package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validCSVConfig() Config {
	cfg := Config{
		Dataset: DatasetConfig{Path: "data/operadoras_ativas.csv"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("HTTP timeouts = %+v", cfg.HTTP)
	}
	if cfg.HTTP.DefaultPageSize != 20 || cfg.HTTP.MaxPageSize != 100 {
		t.Errorf("page sizes = %d/%d", cfg.HTTP.DefaultPageSize, cfg.HTTP.MaxPageSize)
	}
	if cfg.Dataset.Source != SourceCSV || cfg.Dataset.Delimiter != ";" || cfg.Dataset.Encoding != "latin1" {
		t.Errorf("Dataset = %+v", cfg.Dataset)
	}
	if cfg.Dataset.KeyPattern != "operadora:*" || cfg.Dataset.IDField != "registro_ans" {
		t.Errorf("Dataset = %+v", cfg.Dataset)
	}
	if cfg.Dataset.WatchDebounceMS != 500 {
		t.Errorf("WatchDebounceMS = %d", cfg.Dataset.WatchDebounceMS)
	}
	if strings.Join(cfg.Search.Fields, ",") != "registro_ans,cnpj,razao_social,nome_fantasia" {
		t.Errorf("Search.Fields = %v", cfg.Search.Fields)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 0 || cfg.Search.MaxTermLength != 0 {
		t.Errorf("limits = %d/%d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit, cfg.Search.MaxTermLength)
	}
	if cfg.Search.DefaultMinRelevance == nil || *cfg.Search.DefaultMinRelevance != 0.5 {
		t.Errorf("DefaultMinRelevance = %v", cfg.Search.DefaultMinRelevance)
	}
	if cfg.Cache.TTLSec != 300 || cfg.Redis.ReadinessTimeout != 10 {
		t.Errorf("cache/redis defaults = %d/%d", cfg.Cache.TTLSec, cfg.Redis.ReadinessTimeout)
	}
	if cfg.HTTP.RateLimitBurst != 0 {
		t.Errorf("burst must stay 0 without a rate limit, got %d", cfg.HTTP.RateLimitBurst)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := 0.0
	cfg := Config{
		HTTP:    HTTPConfig{Port: 9090, RateLimitRPS: 2.5},
		Dataset: DatasetConfig{Source: SourceRedis, KeyPattern: "op:*"},
		Search: SearchConfig{
			Fields:              []string{"razao_social"},
			DefaultLimit:        5,
			DefaultMinRelevance: &zero,
		},
		Cache: CacheConfig{TTLSec: 60},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port overridden: %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.RateLimitBurst != 2 {
		t.Errorf("RateLimitBurst = %d, want 2", cfg.HTTP.RateLimitBurst)
	}
	if cfg.Dataset.KeyPattern != "op:*" {
		t.Errorf("KeyPattern overridden: %q", cfg.Dataset.KeyPattern)
	}
	if len(cfg.Search.Fields) != 1 || cfg.Search.DefaultLimit != 5 {
		t.Errorf("Search overridden: %+v", cfg.Search)
	}
	if *cfg.Search.DefaultMinRelevance != 0 {
		t.Errorf("explicit zero relevance overridden: %v", *cfg.Search.DefaultMinRelevance)
	}
	if cfg.Cache.TTLSec != 60 {
		t.Errorf("TTLSec overridden: %d", cfg.Cache.TTLSec)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid csv", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"negative rate", func(c *Config) { c.HTTP.RateLimitRPS = -1 }, "rate_limit_rps"},
		{"page sizes", func(c *Config) { c.HTTP.DefaultPageSize = 500 }, "default_page_size"},
		{"csv without path", func(c *Config) { c.Dataset.Path = "" }, "dataset.path"},
		{"long delimiter", func(c *Config) { c.Dataset.Delimiter = ";;" }, "delimiter"},
		{"unknown source", func(c *Config) { c.Dataset.Source = "s3" }, "dataset.source"},
		{"redis without addrs", func(c *Config) { c.Dataset.Source = SourceRedis }, "redis.addrs"},
		{"redis watch", func(c *Config) {
			c.Dataset.Source = SourceRedis
			c.Redis.Addrs = []string{"localhost:6379"}
			c.Dataset.Watch = true
		}, "dataset.watch"},
		{"cache without addrs", func(c *Config) { c.Cache.Enabled = true }, "cache is enabled"},
		{"default limit above max", func(c *Config) {
			c.Search.MaxLimit = 100
			c.Search.DefaultLimit = 2000
		}, "default_limit"},
		{"large default limit without max", func(c *Config) { c.Search.DefaultLimit = 2000 }, ""},
		{"negative max limit", func(c *Config) { c.Search.MaxLimit = -1 }, "max_limit"},
		{"trusted proxies", func(c *Config) {
			c.HTTP.TrustedProxies = []string{"10.0.0.0/8", "127.0.0.1", "::1"}
		}, ""},
		{"bad trusted proxy", func(c *Config) { c.HTTP.TrustedProxies = []string{"lb.internal"} }, "trusted_proxies"},
		{"relevance above one", func(c *Config) {
			v := 1.5
			c.Search.DefaultMinRelevance = &v
		}, "default_min_relevance"},
		{"blank field", func(c *Config) { c.Search.Fields = []string{"cnpj", " "} }, "search.fields"},
		{"valid redis with cache", func(c *Config) {
			c.Dataset.Source = SourceRedis
			c.Dataset.Path = ""
			c.Redis.Addrs = []string{"localhost:6379"}
			c.Cache.Enabled = true
		}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validCSVConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()

			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("OPSEARCH_TEST_PATH", "/srv/operadoras.csv")

	path := filepath.Join(t.TempDir(), "test.yaml")
	body := `
http:
  port: ${OPSEARCH_TEST_PORT:-9191}
dataset:
  path: ${OPSEARCH_TEST_PATH}
  delimiter: ","
search:
  default_min_relevance: 0
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9191 {
		t.Errorf("Port = %d, want default from expression", cfg.HTTP.Port)
	}
	if cfg.Dataset.Path != "/srv/operadoras.csv" {
		t.Errorf("Path = %q", cfg.Dataset.Path)
	}
	if cfg.DelimiterRune() != ',' {
		t.Errorf("DelimiterRune() = %q", cfg.DelimiterRune())
	}
	if *cfg.Search.DefaultMinRelevance != 0 {
		t.Errorf("explicit 0 relevance lost: %v", *cfg.Search.DefaultMinRelevance)
	}
	if cfg.UsesRedis() {
		t.Error("csv config without cache must not need redis")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("dataset:\n  source: csv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(invalid); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoad_BundledConfigs(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "csv")
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			if _, err := Load(env); err != nil {
				t.Fatalf("Load(%q): %v", env, err)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("GetEnv() = %q", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("GetEnv() = %q", GetEnv())
	}
}
