// Package transition selects a target workflow status for a ticket from a
// configurable ordered rule table. Selection is pure; executing the
// transition against the tracker is the caller's job.
package transition

import (
	"slices"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/quality"
	"github.com/danielolaszy/triage/pkg/models"
)

// specialDescriptionMin is the minimum description length the special-case
// workflow treats as "description present".
const specialDescriptionMin = 10

// Decision is the selector's output for one ticket.
type Decision struct {
	// Matched reports whether any table entry applied. When false the
	// ticket keeps its current status; this is an expected outcome, not
	// an error.
	Matched bool

	// TargetStatus is the selected status name.
	TargetStatus string

	// Rule names the table entry (or special case) that matched.
	Rule string
}

// Selector evaluates the transition table. Safe for concurrent use.
type Selector struct {
	table config.TransitionTable
}

// NewSelector returns a selector over the given table.
func NewSelector(table config.TransitionTable) *Selector {
	return &Selector{table: table}
}

// Select returns at most one target status for the ticket. Entries are
// evaluated top to bottom and the first satisfied entry wins. The
// configured special issue type follows its own investigation workflow,
// decided only on the presence of a description and customer login details,
// and bypasses the generic table entirely.
func (s *Selector) Select(t models.Ticket, a models.QualityAssessment) Decision {
	if s.table.SpecialIssueType != "" && t.IssueType == s.table.SpecialIssueType {
		return s.selectSpecial(t)
	}

	for _, rule := range s.table.Rules {
		if s.matches(rule, t, a) {
			return Decision{Matched: true, TargetStatus: rule.TargetStatus, Rule: rule.Name}
		}
	}
	return Decision{}
}

func (s *Selector) selectSpecial(t models.Ticket) Decision {
	descriptionOK := len(t.Description) >= specialDescriptionMin
	loginOK := t.CustomerLogin != "" || quality.HasLoginDetails(t.FreeText())

	if descriptionOK && loginOK {
		if s.table.SpecialComplete == "" {
			return Decision{}
		}
		return Decision{Matched: true, TargetStatus: s.table.SpecialComplete, Rule: "special_complete"}
	}
	if s.table.SpecialIncomplete == "" {
		return Decision{}
	}
	return Decision{Matched: true, TargetStatus: s.table.SpecialIncomplete, Rule: "special_incomplete"}
}

func (s *Selector) matches(rule config.TransitionRule, t models.Ticket, a models.QualityAssessment) bool {
	if len(rule.Tiers) > 0 && !slices.Contains(rule.Tiers, string(a.Overall)) {
		return false
	}
	if len(rule.IssueTypes) > 0 && !slices.Contains(rule.IssueTypes, t.IssueType) {
		return false
	}
	for _, cond := range rule.Conditions {
		if !holds(cond, t) {
			return false
		}
	}
	return true
}

// holds evaluates one named field condition. Unknown names are rejected at
// configuration load, so an unmatched name here simply fails the entry.
func holds(cond string, t models.Ticket) bool {
	switch cond {
	case "description_present":
		return len(t.Description) >= specialDescriptionMin
	case "login_details_present":
		return t.CustomerLogin != "" || quality.HasLoginDetails(t.FreeText())
	case "steps_present":
		return t.StepsToReproduce != "" || quality.HasStepsToReproduce(t.FreeText())
	case "attachments_present":
		return t.HasAttachments
	default:
		return false
	}
}
