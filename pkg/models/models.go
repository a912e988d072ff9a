// Package models defines data structures shared across the application.
package models

import (
	"strings"
	"time"
)

// QualityLevel is the overall verdict on a ticket's completeness.
type QualityLevel string

const (
	// QualityHigh means the ticket has all (or nearly all) required information.
	QualityHigh QualityLevel = "high"
	// QualityMedium means the ticket is usable but missing some information.
	QualityMedium QualityLevel = "medium"
	// QualityLow means the ticket is missing too much information to action.
	QualityLow QualityLevel = "low"
)

// Severity classifies how a failed rule contributes to scoring.
type Severity string

const (
	// SeverityMandatory marks rules whose failure counts against the quality tier.
	SeverityMandatory Severity = "mandatory"
	// SeverityWarning marks recommended-only rules (e.g. attachments for bugs).
	SeverityWarning Severity = "warning"
)

// RawTicket is a ticket record as returned by the issue tracker, before
// field extraction. Fields mirrors the tracker's nested JSON shape; custom
// fields appear under their source field IDs (e.g. "customfield_10668").
type RawTicket struct {
	// Key is the full ticket identifier (e.g. "PS-123").
	Key string

	// ID is the tracker-internal numeric ID.
	ID string

	// Fields holds the loosely-typed field map.
	Fields map[string]any
}

// Ticket is the normalized, immutable view of a tracker issue that the
// quality rules operate on. Missing source fields are zero values.
type Ticket struct {
	// Key is the full ticket identifier (e.g. "PS-123").
	Key string

	// ID is the tracker-internal numeric ID.
	ID string

	// Summary is the ticket's title.
	Summary string

	// Description is the full body text.
	Description string

	// IssueType is the tracker issue type name (e.g. "Bug", "Problem").
	IssueType string

	// Priority is the tracker priority name (e.g. "Blocker", "P2").
	Priority string

	// Status is the current workflow status name.
	Status string

	// Reporter is the reporter's display name.
	Reporter string

	// HasAttachments reports whether any files are attached.
	HasAttachments bool

	// Created is the creation timestamp.
	Created time.Time

	// Updated is the last-update timestamp.
	Updated time.Time

	// StepsToReproduce is the dedicated custom field, when mapped and set.
	StepsToReproduce string

	// AffectedVersion is the dedicated custom field, when mapped and set.
	AffectedVersion string

	// CustomerLogin is the dedicated custom field, when mapped and set.
	CustomerLogin string

	// PersonInCharge is the dedicated custom field, when mapped and set.
	PersonInCharge string
}

// FreeText returns the lower-cased concatenation of summary and description,
// used by the keyword/pattern detectors.
func (t Ticket) FreeText() string {
	return strings.ToLower(t.Summary + " " + t.Description)
}

// ProjectKey returns the project portion of the ticket key ("PS" for "PS-123").
func (t Ticket) ProjectKey() string {
	if i := strings.IndexByte(t.Key, '-'); i > 0 {
		return t.Key[:i]
	}
	return t.Key
}

// RuleResult is the outcome of a single quality rule evaluation.
// Message is non-empty exactly when Passed is false.
type RuleResult struct {
	// Rule is the rule's stable name (e.g. "summary_length").
	Rule string

	// Passed reports whether the ticket satisfied the rule.
	Passed bool

	// Message is the human-readable issue description for a failed rule.
	Message string

	// Severity is the rule's scoring contribution class.
	Severity Severity

	// PriorityCritical is set on failed mandatory rules of high-priority tickets.
	PriorityCritical bool
}

// QualityAssessment is the result of evaluating and scoring one ticket.
type QualityAssessment struct {
	// TicketKey identifies the assessed ticket.
	TicketKey string

	// Results holds every rule outcome in evaluation order.
	Results []RuleResult

	// IssuesFound is the ordered list of failure messages from Results.
	IssuesFound []string

	// Overall is the quality tier derived from IssuesFound and priority.
	Overall QualityLevel

	// Score is a 0-100 display value. It is never used for tier decisions.
	Score int

	// Suggestions are per-issue improvement hints for the fallback comment.
	Suggestions []string

	// AssessedAt is when the assessment was computed.
	AssessedAt time.Time
}

// DuplicateMatch is one candidate duplicate returned by the duplicate search.
type DuplicateMatch struct {
	// Key is the candidate ticket's identifier.
	Key string

	// Summary is the candidate's summary text.
	Summary string

	// Status is the candidate's current workflow status.
	Status string

	// Similarity is a 0.0-1.0 word-overlap score against the source summary.
	Similarity float64
}

// Transition is one workflow transition offered by the tracker for a ticket.
type Transition struct {
	// ID is the tracker's transition identifier.
	ID string

	// Name is the transition's display name.
	Name string

	// TargetStatus is the status the transition leads to.
	TargetStatus string
}

// CommentContext carries everything the comment composer needs for one ticket.
type CommentContext struct {
	Ticket     Ticket
	Assessment QualityAssessment

	// Duplicates is the (possibly empty) result of the duplicate search.
	Duplicates []DuplicateMatch

	// SuggestedStatus is the transition selector's target, if any.
	SuggestedStatus string
}

// ProcessingResult records the outcome of one end-to-end processing run.
type ProcessingResult struct {
	TicketKey string
	Success   bool

	// Skipped is set when the ticket was intentionally not processed
	// (excluded issue type, recently processed).
	Skipped    bool
	SkipReason string

	// Per-step completion flags.
	Ingested      bool
	Assessed      bool
	CommentPosted bool
	Transitioned  bool

	Assessment *QualityAssessment
	Comment    string
	NewStatus  string

	// ErrorStep names the pipeline step that failed, when Success is false.
	ErrorStep    string
	ErrorMessage string

	Duration time.Duration
}

// PartialSuccess reports whether the comment landed but the transition did not.
// The tracker offers no transaction across the two calls, so this outcome is
// logged rather than rolled back.
func (r ProcessingResult) PartialSuccess() bool {
	return r.CommentPosted && !r.Transitioned && r.ErrorStep == "transition"
}
