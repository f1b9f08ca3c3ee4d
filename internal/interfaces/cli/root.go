// Package cli implements the folira operator command tree.  Every command
// builds the full component graph from configuration, runs one action, and
// exits; long-running loops live in cmd/worker, not here.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/folira/folira/internal/bootstrap"
	"github.com/folira/folira/internal/config"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "folira",
		Short:         "Portfolio construction and rebalancing engine",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (env-only when empty)")

	cmd.AddCommand(newOptimizeCmd(opts))
	cmd.AddCommand(newRebalanceRunCmd(opts))
	cmd.AddCommand(newDrawdownScanCmd(opts))
	cmd.AddCommand(newNotifyTailCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))

	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "folira: %v\n", err)
		os.Exit(1)
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.LoadFromEnv()
	}
	return config.Load(o.configPath)
}

func (o *rootOptions) buildApp() (*bootstrap.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

// printJSON renders v as indented JSON on the command's stdout.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
