package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/jira"
	"github.com/danielolaszy/triage/internal/quality"
	"github.com/danielolaszy/triage/internal/ticket"
	"github.com/danielolaszy/triage/internal/transition"
)

// assessReport is the YAML shape printed for one assessed ticket.
type assessReport struct {
	Ticket      string   `yaml:"ticket"`
	Summary     string   `yaml:"summary"`
	IssueType   string   `yaml:"issue_type"`
	Priority    string   `yaml:"priority"`
	Quality     string   `yaml:"quality"`
	Score       int      `yaml:"score"`
	Issues      []string `yaml:"issues,omitempty"`
	Suggestions []string `yaml:"suggestions,omitempty"`
	Transition  string   `yaml:"transition,omitempty"`
}

// assessCmd evaluates tickets without posting comments or transitioning
// them. Useful for tuning the quality rules.
var assessCmd = &cobra.Command{
	Use:   "assess TICKET-KEY [TICKET-KEY...]",
	Short: "Assess ticket quality without commenting or transitioning",
	Long: `Assess tickets against the quality rules and print the result.

This is a read-only dry run: the ticket is fetched and evaluated, and the
transition that would be selected is reported, but no comment is posted and
no transition is applied.

Example:
  triage assess PS-123`,
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
		snap := store.Snapshot()

		creds, err := config.LoadCredentials()
		if err != nil {
			return err
		}
		jiraClient, err := jira.NewClient(creds.Jira)
		if err != nil {
			return fmt.Errorf("failed to initialize jira client: %v", err)
		}

		evaluator := quality.NewEvaluator(snap.Rules)
		selector := transition.NewSelector(snap.Transitions)

		ctx := context.Background()
		for _, key := range args {
			raw, err := jiraClient.FetchRaw(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %v", key, err)
			}

			t := ticket.Extract(raw, snap.Fields)
			assessment := evaluator.Score(t, evaluator.Evaluate(t))
			decision := selector.Select(t, assessment)

			report := assessReport{
				Ticket:      t.Key,
				Summary:     t.Summary,
				IssueType:   t.IssueType,
				Priority:    t.Priority,
				Quality:     string(assessment.Overall),
				Score:       assessment.Score,
				Issues:      assessment.IssuesFound,
				Suggestions: assessment.Suggestions,
				Transition:  decision.TargetStatus,
			}

			out, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("failed to render report for %s: %v", key, err)
			}
			fmt.Fprintf(os.Stdout, "---\n%s", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)
}
