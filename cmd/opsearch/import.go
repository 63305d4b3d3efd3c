package main

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/opsearch/internal/logger"
	"github.com/kailas-cloud/opsearch/internal/repository/source/csvfile"
	"github.com/kailas-cloud/opsearch/internal/repository/source/redishash"
)

func newImportCmd(flags *globalFlags) *cobra.Command {
	var (
		csvPath   string
		delimiter string
		encoding  string
		pattern   string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy records from a CSV export into Redis hashes",
		Long: `Reads a delimited operator export and writes one Redis hash per record,
keyed by the configured id field, so a redis-sourced deployment can load it.`,
		Example: `  opsearch import --csv data/Relatorio_cadop.csv
  opsearch import --csv ops.csv --encoding utf-8 --pattern "operadora:*"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, cfg, err := flags.resolve()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if len(cfg.Redis.Addrs) == 0 {
				return fmt.Errorf("redis.addrs is required for import")
			}
			if csvPath == "" {
				csvPath = cfg.Dataset.Path
			}
			if delimiter == "" {
				delimiter = cfg.Dataset.Delimiter
			}
			if encoding == "" {
				encoding = cfg.Dataset.Encoding
			}
			if pattern == "" {
				pattern = cfg.Dataset.KeyPattern
			}

			logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			if utf8.RuneCountInString(delimiter) != 1 {
				return fmt.Errorf("delimiter must be a single character, got %q", delimiter)
			}
			delim, _ := utf8.DecodeRuneInString(delimiter)
			src, err := csvfile.New(csvfile.Config{
				Path:      csvPath,
				Delimiter: delim,
				Encoding:  encoding,
			})
			if err != nil {
				return fmt.Errorf("create csv source: %w", err)
			}

			start := time.Now()
			records, err := src.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("read %s: %w", csvPath, err)
			}

			store, err := connectRedis(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			written, err := redishash.New(store, pattern, batchSize).Save(cmd.Context(), records, cfg.Dataset.IDField)
			if err != nil {
				return fmt.Errorf("save records: %w", err)
			}

			logger.Info("Import finished",
				zap.String("source", src.Name()),
				zap.String("pattern", pattern),
				zap.Int("read", len(records)),
				zap.Int("written", written),
				zap.Duration("duration", time.Since(start)),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d records from %s\n", written, len(records), csvPath)
			return err
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to import (default: dataset.path)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "field delimiter (default: dataset.delimiter)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "latin1 or utf-8 (default: dataset.encoding)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Redis key pattern, prefix must be literal (default: dataset.key_pattern)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "hashes written per round trip")
	return cmd
}
