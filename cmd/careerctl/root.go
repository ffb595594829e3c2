package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"career-hub/internal/bootstrap"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/telemetry"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:          "careerctl",
	Short:        "Career hub operations",
	Long:         "careerctl seeds the jobs database, indexes the vector store and talks to the agents from a terminal.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if debug {
			level = "debug"
		}
		return telemetry.Init("console", level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadApp builds the shared dependencies from the environment.
func loadApp() (*bootstrap.App, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}
