// Command opsearch serves fuzzy search over ANS operator records.
//
// Usage:
//
//	opsearch serve                  run the HTTP API
//	opsearch search "unimed bh"     query the dataset from the shell
//	opsearch import --csv ops.csv   seed Redis hashes from a CSV export
//	opsearch version                print build metadata
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/opsearch/internal/config"
	"github.com/kailas-cloud/opsearch/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	env        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "opsearch",
		Short:        "Fuzzy search over ANS health-plan operator records",
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"path to a YAML config file (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&flags.env, "env", "",
		"environment name, overrides $ENV (local, dev, prod)")

	root.AddCommand(
		newServeCmd(flags),
		newSearchCmd(flags),
		newImportCmd(flags),
		newVersionCmd(),
	)
	return root
}

// resolve returns the environment and loaded configuration.
func (f *globalFlags) resolve() (string, config.Config, error) {
	env := f.env
	if env == "" {
		env = config.GetEnv()
	}
	if f.configPath != "" {
		cfg, err := config.LoadFile(f.configPath)
		return env, cfg, err
	}
	cfg, err := config.Load(env)
	return env, cfg, err
}
