package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/domain"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/opsearch/internal/logger"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		limit      int
		minRel     float64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the dataset and print ranked matches",
		Example: `  opsearch search bradesco
  opsearch search "unimed bh" --limit 3 --min-relevance 0.7
  opsearch search amil --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cfg, err := flags.resolve()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logpkg.NewLogger(env, "warn")
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.dataset.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}

			var rel *float64
			if cmd.Flags().Changed("min-relevance") {
				rel = &minRel
			}
			q, err := a.defaults.New(strings.Join(args, " "), limit, rel)
			if err != nil {
				return err
			}

			res, err := a.executor.Execute(cmd.Context(), q)
			if err != nil {
				logger.Error("Search failed", zap.Error(err))
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), &res)
			}
			return printTable(cmd.OutOrStdout(), &res)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default: search.default_limit)")
	cmd.Flags().Float64VarP(&minRel, "min-relevance", "r", 0, "minimum relevance in [0, 1] (default: search.default_min_relevance)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "print the HTTP response body format")
	return cmd
}

func printTable(w io.Writer, res *result.Result) error {
	if res.Total() == 0 {
		_, err := fmt.Fprintf(w, "No matches for %q (min relevance %.2f)\n", res.Term(), res.MinRelevance())
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RELEVANCE\tREGISTRO\tCNPJ\tRAZAO SOCIAL\tNOME FANTASIA")
	for _, m := range res.Matches() {
		rec := m.Record()
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\t%s\n",
			m.Relevance(),
			rec.Value(domain.FieldRegistration),
			rec.Value(domain.FieldTaxID),
			rec.Value(domain.FieldLegalName),
			rec.Value(domain.FieldTradeName),
		)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, res *result.Result) error {
	type meta struct {
		Total        int     `json:"total"`
		Term         string  `json:"term"`
		Limit        int     `json:"limit"`
		MinRelevance float64 `json:"min_relevance"`
	}
	items := make([]map[string]any, 0, res.Total())
	for _, m := range res.Matches() {
		rec := m.Record()
		item := make(map[string]any, rec.Len()+1)
		for k, v := range rec.Fields() {
			item[k] = v
		}
		item["relevance"] = m.Relevance()
		items = append(items, item)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Results []map[string]any `json:"results"`
		Meta    meta             `json:"meta"`
	}{
		Results: items,
		Meta:    meta{Total: res.Total(), Term: res.Term(), Limit: res.Limit(), MinRelevance: res.MinRelevance()},
	})
}
