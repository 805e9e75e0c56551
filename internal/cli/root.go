// Package cli implements the takax command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/takax-network/takax/internal/daemon"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "takax",
	Short: "TakaX earn-rewards backend",
	Long: `TakaX serves the Telegram Mini App API: tasks, rewarded ads, referrals,
teams and withdrawals, all backed by an append-only coin ledger.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $TAKAX_HOME/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp loads the configuration and wires the service graph. Offline apps
// skip Redis and the Telegram bot; admin commands run against the local
// database only.
func openApp(offline bool) (*daemon.App, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return daemon.New(cfg, daemon.Options{Out: os.Stderr, Offline: offline})
}

// ─── version ────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the takax version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "takax %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
