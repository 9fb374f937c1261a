// Package main provides the relaydesk CLI, a terminal console for the
// support backend.
//
// Agents attend escalated conversations:
//
//	relaydesk attend
//
// End users can talk to the support bot:
//
//	relaydesk chat --session 42
//
// REST one-shots cover the rest of the surface: escalations, agents,
// availability, health, and the knowledge base (ask/upload/docs).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaydesk/relaydesk/internal/config"
	"github.com/relaydesk/relaydesk/internal/observability"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relaydesk",
		Short: "relaydesk - terminal console for the support backend",
		Long: `relaydesk is a terminal client for the customer-support backend.

It joins the realtime channel as an agent (attend) or as an end user
(chat), and covers the REST surface: escalation listings, agent roster
and availability, health checks, and the knowledge base.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file (defaults apply when omitted)")

	rootCmd.AddCommand(
		buildAttendCmd(),
		buildChatCmd(),
		buildEscalationsCmd(),
		buildAgentsCmd(),
		buildAvailabilityCmd(),
		buildHealthCmd(),
		buildAskCmd(),
		buildUploadCmd(),
		buildDocsCmd(),
	)
	return rootCmd
}

// loadConfig reads the configured file, falling back to defaults when
// no path was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// setupLogger installs the configured logger as the process default and
// returns it.
func setupLogger(cfg *config.Config, debug bool) *slog.Logger {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)
	return logger
}
