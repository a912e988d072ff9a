package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage assesses and routes JIRA support tickets",
	Long: `Triage is a support-ticket bot for JIRA. It evaluates incoming tickets
against configurable quality rules, posts a comment summarizing what is
missing (generated via Gemini, with deterministic fallbacks), and moves
tickets to the appropriate workflow status.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// The rules file drives quality thresholds, field mappings, transitions,
	// comment templates, and search profiles. Credentials come from the
	// environment, never from this file.
	rootCmd.PersistentFlags().StringP("config", "c", "triage.yaml", "Path to the rules configuration file")
}
