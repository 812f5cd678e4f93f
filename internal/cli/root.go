package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "hackstorm",
		Short: "Client for the HackStorm session server",
		Long: `hackstorm talks to a HackStorm server over its line protocol.

One-shot commands open a connection, send a single request and exit.
"play" logs in and keeps the session open, printing chat and server
notices as they arrive.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Output != "text" && cfg.Output != "json" {
				return fmt.Errorf("invalid --output %q: must be text or json", cfg.Output)
			}
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.Server, "server", cfg.Server, "Server address host:port (env: HACKSTORM_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newPingCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newOnlineCmd())
	rootCmd.AddCommand(newChatlogCmd())
	rootCmd.AddCommand(newPlayCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
