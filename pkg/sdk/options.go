package opsearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	records []map[string]string

	csvPath   string
	delimiter rune
	encoding  string

	redisAddr     string
	redisPassword string
	keyPattern    string

	idField   string
	fields    []string
	workers   int
	threshold int

	limit         int
	minRel        *float64
	maxLimit      int
	maxTermLength int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRecords serves a fixed in-memory dataset. Reload is not supported.
func WithRecords(records []map[string]string) Option {
	return optionFunc(func(c *engineConfig) {
		c.records = records
	})
}

// WithCSV loads records from a delimited file with a header row.
// Defaults: ';' delimiter, latin1 encoding.
func WithCSV(path string) Option {
	return optionFunc(func(c *engineConfig) {
		c.csvPath = path
	})
}

// WithCSVFormat overrides the CSV delimiter and encoding ("latin1" or "utf-8").
func WithCSVFormat(delimiter rune, encoding string) Option {
	return optionFunc(func(c *engineConfig) {
		c.delimiter = delimiter
		c.encoding = encoding
	})
}

// WithRedis loads records from the hashes matching pattern.
func WithRedis(addr, password, pattern string) Option {
	return optionFunc(func(c *engineConfig) {
		c.redisAddr = addr
		c.redisPassword = password
		c.keyPattern = pattern
	})
}

// WithIDField names the field used by Get. Default: registro_ans.
func WithIDField(name string) Option {
	return optionFunc(func(c *engineConfig) {
		c.idField = name
	})
}

// WithFields sets the fields concatenated into the searchable text, in order.
func WithFields(fields ...string) Option {
	return optionFunc(func(c *engineConfig) {
		c.fields = fields
	})
}

// WithWorkers scores datasets larger than threshold on n goroutines.
func WithWorkers(n, threshold int) Option {
	return optionFunc(func(c *engineConfig) {
		c.workers = n
		c.threshold = threshold
	})
}

// WithDefaults changes the limit and relevance used when a search omits them.
// Defaults: 10 and 0.5.
func WithDefaults(limit int, minRelevance float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.limit = limit
		c.minRel = &minRelevance
	})
}

// WithMaxLimit clamps larger per-search limits down to n. Default: unlimited.
func WithMaxLimit(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.maxLimit = n
	})
}

// WithMaxTermLength rejects search terms longer than n runes with
// ErrTermTooLong. Default: unlimited.
func WithMaxTermLength(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.maxTermLength = n
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}

// SearchOption tunes a single search.
type SearchOption func(*searchParams)

type searchParams struct {
	limit  int
	minRel *float64
}

// Limit caps the number of matches. Zero selects the engine default.
func Limit(n int) SearchOption {
	return func(p *searchParams) { p.limit = n }
}

// MinRelevance drops matches scoring below v. Zero keeps every record.
func MinRelevance(v float64) SearchOption {
	return func(p *searchParams) { p.minRel = &v }
}
