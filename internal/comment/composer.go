// Package comment builds the ticket comment: it selects a prompt variant
// from the quality tier and issue type, delegates to the generative-text
// client, and falls back to a deterministic template when that client
// fails or returns nothing usable.
package comment

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/pkg/models"
)

// Generator produces text from a prompt. Any error is treated as a soft
// failure; the composer never blocks ticket processing on it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Variant names for the prompt/template selection.
const (
	VariantUnreproducible = "unreproducible_bug"
	VariantHighQuality    = "high_quality"
	VariantMediumQuality  = "medium_quality"
	VariantLowQuality     = "low_quality"
)

// Composer renders comments for processed tickets.
type Composer struct {
	gen              Generator
	cfg              config.CommentConfig
	specialIssueType string
}

// NewComposer returns a composer that generates through gen and falls back
// to the configured templates. specialIssueType selects the dedicated
// investigation-workflow variant (e.g. "Unreproducible Bug").
func NewComposer(gen Generator, cfg config.CommentConfig, specialIssueType string) *Composer {
	return &Composer{gen: gen, cfg: cfg, specialIssueType: specialIssueType}
}

// Compose returns the comment text for the context and whether the
// deterministic fallback was used. The returned text is never empty and
// never exceeds the configured maximum length.
func (c *Composer) Compose(ctx context.Context, cc models.CommentContext) (string, bool) {
	variant := c.variantFor(cc)
	prompt := c.buildPrompt(variant, cc)

	text, err := c.gen.Generate(ctx, prompt)
	fallback := false
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			logging.Warn("comment generation failed, using fallback template",
				"ticket", cc.Ticket.Key,
				"variant", variant,
				"error", err)
		}
		text = c.fallback(variant, cc)
		fallback = true
	}

	if section := duplicatesSection(cc.Duplicates); section != "" {
		text = strings.TrimRight(text, "\n") + "\n\n" + section
	}

	return truncate(text, c.cfg.MaxLength), fallback
}

func (c *Composer) variantFor(cc models.CommentContext) string {
	if c.specialIssueType != "" && cc.Ticket.IssueType == c.specialIssueType {
		return VariantUnreproducible
	}
	switch cc.Assessment.Overall {
	case models.QualityHigh:
		return VariantHighQuality
	case models.QualityMedium:
		return VariantMediumQuality
	default:
		return VariantLowQuality
	}
}

const systemPrompt = `You are a JIRA ticket assistant for a product support team. Generate a
professional, concise comment for the ticket below. Be action-oriented:
state what happens next or exactly what information is needed. Do not
explain why information matters, do not promise timelines, and do not add
headings or markdown formatting.`

func (c *Composer) buildPrompt(variant string, cc models.CommentContext) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nTicket:\n")
	fmt.Fprintf(&b, "- Key: %s\n", cc.Ticket.Key)
	fmt.Fprintf(&b, "- Summary: %s\n", valueOr(cc.Ticket.Summary, "No summary provided"))
	fmt.Fprintf(&b, "- Issue type: %s\n", cc.Ticket.IssueType)
	fmt.Fprintf(&b, "- Priority: %s\n", cc.Ticket.Priority)
	fmt.Fprintf(&b, "- Reporter: %s\n", valueOr(cc.Ticket.Reporter, "Unknown"))
	fmt.Fprintf(&b, "- Description: %s\n", valueOr(snippet(cc.Ticket.Description, 400), "No description provided"))
	fmt.Fprintf(&b, "- Has attachments: %s\n", yesNo(cc.Ticket.HasAttachments))

	b.WriteString("\nQuality assessment:\n")
	fmt.Fprintf(&b, "- Overall quality: %s\n", cc.Assessment.Overall)
	if len(cc.Assessment.IssuesFound) == 0 {
		b.WriteString("- Issues found: none\n")
	} else {
		b.WriteString("- Issues found:\n")
		for _, issue := range cc.Assessment.IssuesFound {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}

	if cc.SuggestedStatus != "" {
		fmt.Fprintf(&b, "\nThe ticket will be moved to %q.\n", cc.SuggestedStatus)
	}

	b.WriteString("\nInstructions:\n")
	switch variant {
	case VariantUnreproducible:
		b.WriteString(`Acknowledge that the issue could not be reproduced so far and that the
development team will investigate from logs and monitoring. Ask for
customer login details if missing.`)
	case VariantHighQuality:
		b.WriteString(`Thank the reporter for the complete ticket and state that the team will
begin investigating.`)
	default:
		b.WriteString(`Thank the reporter and list exactly the missing items above as requests,
one per line.`)
	}

	b.WriteString("\n\nGenerate the comment text only.")
	return b.String()
}

// fallback builds a deterministic comment directly from the assessment.
// It always contains every issue message.
func (c *Composer) fallback(variant string, cc models.CommentContext) string {
	tpl := c.template(variant)

	var b strings.Builder
	b.WriteString(tpl.Greeting)

	if len(cc.Assessment.IssuesFound) == 0 {
		b.WriteString(" ")
		b.WriteString(tpl.Body)
	} else {
		b.WriteString(" ")
		b.WriteString(tpl.Body)
		b.WriteString("\n")
		for _, issue := range cc.Assessment.IssuesFound {
			b.WriteString("\n- ")
			b.WriteString(issue)
		}
		b.WriteString("\n")
	}

	if tpl.Closing != "" {
		b.WriteString("\n")
		b.WriteString(tpl.Closing)
	}
	return b.String()
}

// template returns the configured template for the variant, or a built-in
// default when the configuration omits it.
func (c *Composer) template(variant string) config.CommentTemplate {
	if tpl, ok := c.cfg.Templates[variant]; ok && tpl.Greeting != "" {
		return tpl
	}
	return defaultTemplates[variant]
}

var defaultTemplates = map[string]config.CommentTemplate{
	VariantHighQuality: {
		Greeting: "Thank you for submitting this well-detailed ticket.",
		Body:     "It contains the information our team needs to investigate.",
		Closing:  "We will keep you updated on our progress.",
	},
	VariantMediumQuality: {
		Greeting: "Thank you for submitting this ticket.",
		Body:     "To investigate effectively, please provide the following:",
		Closing:  "Once we have this information we will proceed with the investigation.",
	},
	VariantLowQuality: {
		Greeting: "Thank you for submitting this ticket.",
		Body:     "We need additional information before we can investigate. Please provide:",
		Closing:  "Please update the ticket with the requested information.",
	},
	VariantUnreproducible: {
		Greeting: "Thank you for reporting this issue.",
		Body:     "We have not been able to reproduce it so far; the development team will investigate from logs and monitoring. Please provide the following if available:",
		Closing:  "Any additional detail helps narrow down the investigation.",
	},
}

// duplicatesSection lists potential duplicates for the reporter to review.
func duplicatesSection(dups []models.DuplicateMatch) string {
	if len(dups) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Possible duplicate tickets, please review before proceeding:\n")
	for _, d := range dups {
		fmt.Fprintf(&b, "\n- %s: %s (%s)", d.Key, snippet(d.Summary, 60), d.Status)
	}
	return b.String()
}

func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func valueOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
