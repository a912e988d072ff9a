// Package quality implements the rule evaluator and the quality scorer:
// pure functions that turn a normalized ticket into an ordered list of rule
// results and an overall quality tier.
package quality

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
)

// Rule names, in evaluation order.
const (
	RuleSummaryLength            = "summary_length"
	RuleDescriptionLength        = "description_length"
	RuleStepsToReproduce         = "steps_to_reproduce"
	RuleAffectedVersion          = "affected_version"
	RuleAttachments              = "attachments"
	RuleCustomerLogin            = "customer_login_details"
	RuleHighPriorityCompleteness = "high_priority_completeness"
)

// Evaluator runs the fixed, ordered rule set against tickets. It holds only
// configured thresholds; evaluation is a pure function of the ticket, so a
// single evaluator is safe for concurrent use.
type Evaluator struct {
	rules config.QualityRules
}

// NewEvaluator returns an evaluator using the given thresholds.
func NewEvaluator(rules config.QualityRules) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate runs every rule and returns all results in evaluation order,
// passing ones included. A rule that does not apply to the ticket's issue
// type records a pass. Missing data fails the rule; it never errors.
func (e *Evaluator) Evaluate(t models.Ticket) []models.RuleResult {
	results := []models.RuleResult{
		e.evaluateSummary(t),
		e.evaluateDescription(t),
		e.evaluateSteps(t),
		e.evaluateVersion(t),
		e.evaluateAttachments(t),
		e.evaluateLogin(t),
	}

	results = append(results, e.evaluateHighPriority(t, results))
	return results
}

// IsHighPriority reports whether the ticket's priority is in the configured
// high-priority set.
func (e *Evaluator) IsHighPriority(t models.Ticket) bool {
	return slices.Contains(e.rules.HighPriorityLevels, t.Priority)
}

func (e *Evaluator) evaluateSummary(t models.Ticket) models.RuleResult {
	r := models.RuleResult{Rule: RuleSummaryLength, Severity: models.SeverityMandatory, Passed: true}

	if len(t.Summary) < e.rules.SummaryMinLength {
		r.Passed = false
		r.Message = "Summary is too short or missing"
	} else if e.rules.SummaryMaxLength > 0 && len(t.Summary) > e.rules.SummaryMaxLength {
		r.Passed = false
		r.Message = fmt.Sprintf("Summary is too long (maximum %d characters allowed)", e.rules.SummaryMaxLength)
	}
	return r
}

func (e *Evaluator) evaluateDescription(t models.Ticket) models.RuleResult {
	r := models.RuleResult{Rule: RuleDescriptionLength, Severity: models.SeverityMandatory, Passed: true}

	if len(t.Description) < e.rules.DescriptionMinLength {
		r.Passed = false
		r.Message = "Description is too short or missing"
	}
	return r
}

func (e *Evaluator) evaluateSteps(t models.Ticket) models.RuleResult {
	r := models.RuleResult{Rule: RuleStepsToReproduce, Severity: models.SeverityMandatory, Passed: true}

	if !slices.Contains(e.rules.StepsRequiredFor, t.IssueType) {
		return r
	}

	// The dedicated field satisfies the rule, but so does an inline
	// description of the steps.
	if strings.TrimSpace(t.StepsToReproduce) != "" || HasStepsToReproduce(t.FreeText()) {
		return r
	}

	r.Passed = false
	r.Message = "Steps to reproduce should be provided"
	return r
}

func (e *Evaluator) evaluateVersion(t models.Ticket) models.RuleResult {
	r := models.RuleResult{Rule: RuleAffectedVersion, Severity: models.SeverityMandatory, Passed: true}

	if !slices.Contains(e.rules.VersionRequiredFor, t.IssueType) {
		return r
	}

	if strings.TrimSpace(t.AffectedVersion) == "" {
		r.Passed = false
		r.Message = "Affected version should be specified"
	}
	return r
}

func (e *Evaluator) evaluateAttachments(t models.Ticket) models.RuleResult {
	r := models.RuleResult{Rule: RuleAttachments, Severity: models.SeverityWarning, Passed: true}

	if !slices.Contains(e.rules.AttachmentsRecommended, t.IssueType) {
		return r
	}

	if !t.HasAttachments {
		r.Passed = false
		r.Message = "Attachments recommended for bug reports"
	}
	return r
}

func (e *Evaluator) evaluateLogin(t models.Ticket) models.RuleResult {
	r := models.RuleResult{Rule: RuleCustomerLogin, Severity: models.SeverityMandatory, Passed: true}

	if !slices.Contains(e.rules.LoginRequiredFor, t.IssueType) {
		return r
	}

	if strings.TrimSpace(t.CustomerLogin) != "" || HasLoginDetails(t.FreeText()) {
		return r
	}

	r.Passed = false
	r.Message = "Customer login details should be provided"
	return r
}

// evaluateHighPriority enforces the stricter bar for high-priority tickets:
// every preceding mandatory rule must pass. Failed mandatory results are
// additionally tagged as priority-critical.
func (e *Evaluator) evaluateHighPriority(t models.Ticket, results []models.RuleResult) models.RuleResult {
	r := models.RuleResult{Rule: RuleHighPriorityCompleteness, Severity: models.SeverityMandatory, Passed: true}

	if !e.IsHighPriority(t) {
		return r
	}

	var missing []string
	for i := range results {
		if !results[i].Passed && results[i].Severity == models.SeverityMandatory {
			results[i].PriorityCritical = true
			missing = append(missing, ruleLabel(results[i].Rule))
		}
	}

	if len(missing) > 0 {
		r.Passed = false
		r.Message = "High-priority ticket is missing required information: " + strings.Join(missing, ", ")
	}
	return r
}

func ruleLabel(rule string) string {
	switch rule {
	case RuleSummaryLength:
		return "summary"
	case RuleDescriptionLength:
		return "description"
	case RuleStepsToReproduce:
		return "steps to reproduce"
	case RuleAffectedVersion:
		return "affected version"
	case RuleCustomerLogin:
		return "customer login details"
	default:
		return rule
	}
}
