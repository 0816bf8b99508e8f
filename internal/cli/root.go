// Package cli implements the TaskDeck command-line interface using Cobra.
// Every subcommand drives the backend through the resilient API client.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Manage remotely-executed tasks and orchestrations",
	Long: `TaskDeck talks to a task-execution backend over its REST API.
It retries transient failures, caches reads, tracks backend health, and
can serve a local dashboard sidecar with connectivity indicators.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
