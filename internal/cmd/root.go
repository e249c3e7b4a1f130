// Package cmd defines the reconcrawl CLI, grounded on the teacher's
// cmd/root.go: a Cobra root command wiring a config file flag and a
// PersistentPreRunE that loads Configuration once for every subcommand,
// rather than the teacher's context-stashed App interface (this program
// has one config-shaped collaborator, not a database/queue/storage triad
// to inject).
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corvid-labs/reconcrawl/internal/config"
	"github.com/corvid-labs/reconcrawl/internal/logging"
)

var cfgFile string

// loadedConfig is populated by PersistentPreRunE and read by each
// subcommand's RunE.
var loadedConfig config.Config

// NewRootCmd builds the reconcrawl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reconcrawl",
		Short: "A scoped reconnaissance web crawler",
		Long: `reconcrawl walks a set of seed URLs within an allowed-domain scope,
classifies and saves HTML pages, JS bundles, and JSON API responses, and
stops once its page/JS/API budgets or wall-clock limit are reached.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			loadedConfig = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); CRAWLER_ env vars override its values")

	root.AddCommand(newCrawlCmd())
	root.AddCommand(newResumeCmd())

	return root
}

// Execute builds the logger, runs the command tree, and exits fatally on
// failure.
func Execute() {
	logger, err := logging.New(true)
	if err != nil {
		panic(fmt.Sprintf("build bootstrap logger: %v", err))
	}
	defer logger.Sync() //nolint:errcheck

	if err := NewRootCmd().Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}
