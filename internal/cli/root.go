package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "lgctl",
		Short: "CLI tool for the levelgrid API",
		Long: `lgctl is a CLI tool for interacting with the levelgrid JSON API.

It manages deletion check registrations and stored levels, and can trigger a
deletion check run the same way the external scheduler does.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			client = NewClient(cfg.ServerURL, cfg.SchedulerSecret)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: LEVELGRID_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.SchedulerSecret, "secret", cfg.SchedulerSecret, "Scheduler trigger secret (env: LEVELGRID_SCHEDULER_SECRET)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newRegistrationsCmd())
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newDeleteCheckCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
