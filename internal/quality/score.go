package quality

import (
	"time"

	"github.com/danielolaszy/triage/pkg/models"
)

// Scoring penalties for the 0-100 display score. The score is a convenience
// derivative only; tier decisions use the issues-found count.
const (
	mandatoryPenalty = 20
	warningPenalty   = 10
)

// Score aggregates rule results into a quality assessment. It is a pure
// function of the results, the ticket's priority, and the evaluator's
// thresholds; identical inputs always produce the identical tier.
func (e *Evaluator) Score(t models.Ticket, results []models.RuleResult) models.QualityAssessment {
	issues := IssuesFound(results)

	a := models.QualityAssessment{
		TicketKey:   t.Key,
		Results:     results,
		IssuesFound: issues,
		Overall:     e.tier(t, results, len(issues)),
		Score:       displayScore(results),
		Suggestions: Suggestions(results, t),
		AssessedAt:  time.Now().UTC(),
	}
	return a
}

// IssuesFound filters the failure messages from rule results, preserving
// evaluation order.
func IssuesFound(results []models.RuleResult) []string {
	var issues []string
	for _, r := range results {
		if !r.Passed {
			issues = append(issues, r.Message)
		}
	}
	return issues
}

// tier maps the issue count to a quality level. High-priority tickets with
// any mandatory failure can never reach the High tier, regardless of the
// raw count.
func (e *Evaluator) tier(t models.Ticket, results []models.RuleResult, issueCount int) models.QualityLevel {
	var level models.QualityLevel
	switch {
	case issueCount <= e.rules.HighQualityMaxIssues:
		level = models.QualityHigh
	case issueCount <= e.rules.MediumQualityMaxIssues:
		level = models.QualityMedium
	default:
		level = models.QualityLow
	}

	if level == models.QualityHigh && e.IsHighPriority(t) && anyMandatoryFailed(results) {
		level = models.QualityMedium
	}
	return level
}

func anyMandatoryFailed(results []models.RuleResult) bool {
	for _, r := range results {
		if !r.Passed && r.Severity == models.SeverityMandatory {
			return true
		}
	}
	return false
}

func displayScore(results []models.RuleResult) int {
	score := 100
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Severity == models.SeverityMandatory {
			score -= mandatoryPenalty
		} else {
			score -= warningPenalty
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Suggestions returns improvement hints for each failed rule, used by the
// deterministic fallback comment.
func Suggestions(results []models.RuleResult, t models.Ticket) []string {
	var suggestions []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		switch r.Rule {
		case RuleSummaryLength:
			suggestions = append(suggestions, "Provide a clear, descriptive summary that explains the issue concisely")
		case RuleDescriptionLength:
			suggestions = append(suggestions, "Add a detailed description explaining what happened and the impact")
		case RuleStepsToReproduce:
			suggestions = append(suggestions, "Include step-by-step instructions to reproduce the issue")
		case RuleAffectedVersion:
			suggestions = append(suggestions, "Specify the affected version or environment where the issue occurs")
		case RuleAttachments:
			suggestions = append(suggestions, "Attach relevant screenshots, error logs, or other supporting files")
		case RuleCustomerLogin:
			suggestions = append(suggestions, "Provide customer login details (username, email, or account ID) to help with investigation")
		case RuleHighPriorityCompleteness:
			suggestions = append(suggestions, "High-priority tickets require complete information for immediate attention")
		}
	}
	return suggestions
}
