// Package cmd provides the command-line interface for the triage bot.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/triage/internal/comment"
	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/duplicate"
	"github.com/danielolaszy/triage/internal/gemini"
	"github.com/danielolaszy/triage/internal/jira"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/processor"
	"github.com/danielolaszy/triage/internal/worker"
)

// processCmd runs the full pipeline for the ticket keys given as arguments.
var processCmd = &cobra.Command{
	Use:   "process TICKET-KEY [TICKET-KEY...]",
	Short: "Process one or more tickets through the triage pipeline",
	Long: `Process tickets through the full triage pipeline.

For each ticket key this command:

1. Fetches the ticket and extracts its fields
2. Evaluates the quality rules and derives the quality tier
3. Searches for potential duplicate tickets
4. Posts a comment summarizing the assessment
5. Transitions the ticket per the configured transition table

Example:
  triage process PS-123 PS-124`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}

		store, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		proc, _, err := buildProcessor(store)
		if err != nil {
			return err
		}

		snap := store.Snapshot()
		pool := worker.NewPool(proc, snap.Processing.WorkerConcurrency)
		summary := pool.RunKeys(context.Background(), args)

		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d tickets failed", summary.Failed, summary.Processed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

// buildProcessor wires the tracker, generator, and duplicate detector into
// a processor from environment credentials and the rules store. The jira
// client is returned as well for callers that also search.
func buildProcessor(store *config.Store) (*processor.Processor, *jira.Client, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, nil, err
	}

	jiraClient, err := jira.NewClient(creds.Jira)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize jira client: %v", err)
	}

	var gen comment.Generator
	geminiClient, err := gemini.NewClient(creds.Gemini)
	if err != nil {
		// Generation is optional; the composer falls back to templates.
		logging.Warn("gemini client unavailable, comments will use fallback templates",
			"error", err)
		gen = unavailableGenerator{}
	} else {
		gen = geminiClient
	}

	snap := store.Snapshot()
	finder := duplicate.NewDetector(jiraClient, snap.Processing.MaxDuplicates)

	return processor.New(jiraClient, gen, store, finder), jiraClient, nil
}

// unavailableGenerator always fails, forcing the composer's fallback path.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("text generation is not configured")
}
