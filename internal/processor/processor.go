// Package processor orchestrates the end-to-end pipeline for one ticket:
// fetch, extract, evaluate, score, find duplicates, select a transition,
// post a comment, and apply the transition.
package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielolaszy/triage/internal/comment"
	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/duplicate"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/quality"
	"github.com/danielolaszy/triage/internal/ticket"
	"github.com/danielolaszy/triage/internal/transition"
	"github.com/danielolaszy/triage/pkg/models"
)

// Tracker is the issue-tracker surface the processor needs.
type Tracker interface {
	FetchRaw(ctx context.Context, key string) (models.RawTicket, error)
	AddComment(ctx context.Context, key, body string) error
	ListTransitions(ctx context.Context, key string) ([]models.Transition, error)
	ApplyTransition(ctx context.Context, key, transitionID string) error
}

// Processor runs the triage pipeline. It reads one configuration snapshot
// per Process call, so a ticket is always handled under a single consistent
// rule set even across concurrent reloads.
type Processor struct {
	tracker Tracker
	gen     comment.Generator
	store   *config.Store
	finder  duplicate.Finder
}

// New creates a processor. finder may be nil to disable duplicate detection.
func New(tracker Tracker, gen comment.Generator, store *config.Store, finder duplicate.Finder) *Processor {
	return &Processor{tracker: tracker, gen: gen, store: store, finder: finder}
}

// Process runs the full pipeline for one ticket key. Errors in mandatory
// steps (fetch, comment) abort the run; soft steps (generation, duplicate
// search) degrade instead. The returned result always describes how far the
// run got.
func (p *Processor) Process(ctx context.Context, key string) (result models.ProcessingResult) {
	start := time.Now()
	snap := p.store.Snapshot()

	result = models.ProcessingResult{TicketKey: key}
	defer func() { result.Duration = time.Since(start) }()

	logging.Info("processing ticket", "ticket", key, "config_version", snap.Version)

	raw, err := p.tracker.FetchRaw(ctx, key)
	if err != nil {
		return fail(result, "fetch", err)
	}
	result.Ingested = true

	t := ticket.Extract(raw, snap.Fields)

	if reason := p.skipReason(snap, raw, t); reason != "" {
		logging.Info("skipping ticket", "ticket", key, "reason", reason)
		result.Skipped = true
		result.SkipReason = reason
		result.Success = true
		return result
	}

	evaluator := quality.NewEvaluator(snap.Rules)
	results := evaluator.Evaluate(t)
	assessment := evaluator.Score(t, results)
	result.Assessed = true
	result.Assessment = &assessment

	logging.Info("ticket assessed",
		"ticket", key,
		"quality", assessment.Overall,
		"issues", len(assessment.IssuesFound),
		"score", assessment.Score)

	duplicates := p.findDuplicates(ctx, t)

	selector := transition.NewSelector(snap.Transitions)
	decision := selector.Select(t, assessment)

	composer := comment.NewComposer(p.gen, snap.Comments, snap.Transitions.SpecialIssueType)
	body, usedFallback := composer.Compose(ctx, models.CommentContext{
		Ticket:          t,
		Assessment:      assessment,
		Duplicates:      duplicates,
		SuggestedStatus: decision.TargetStatus,
	})
	if usedFallback {
		logging.Debug("used fallback comment template", "ticket", key)
	}

	if err := p.tracker.AddComment(ctx, key, body); err != nil {
		return fail(result, "comment", err)
	}
	result.CommentPosted = true
	result.Comment = body

	if decision.Matched {
		if err := p.applyTransition(ctx, key, decision.TargetStatus); err != nil {
			// The comment is already posted; log the partial outcome
			// instead of failing the whole run silently.
			logging.Error("comment posted but transition failed",
				"ticket", key,
				"target_status", decision.TargetStatus,
				"error", err)
			return fail(result, "transition", err)
		}
		result.Transitioned = true
		result.NewStatus = decision.TargetStatus
		logging.Info("ticket transitioned",
			"ticket", key,
			"status", decision.TargetStatus,
			"rule", decision.Rule)
	} else {
		logging.Debug("no transition rule matched", "ticket", key)
	}

	result.Success = true
	return result
}

// skipReason returns a non-empty reason when the ticket must not be
// processed: excluded issue type, or a recent bot comment inside the
// exclusion window.
func (p *Processor) skipReason(snap *config.Snapshot, raw models.RawTicket, t models.Ticket) string {
	for _, excluded := range snap.Processing.ExcludedIssueTypes {
		if t.IssueType == excluded {
			return fmt.Sprintf("issue type %q is excluded", t.IssueType)
		}
	}

	if snap.Processing.BotUsername != "" && snap.Processing.ExclusionWindow > 0 {
		last := ticket.LastCommentBy(raw, snap.Processing.BotUsername)
		if !last.IsZero() && time.Since(last) < snap.Processing.ExclusionWindow {
			return fmt.Sprintf("already processed at %s", last.Format(time.RFC3339))
		}
	}

	return ""
}

// findDuplicates never fails the pipeline; search errors degrade to an
// empty match list.
func (p *Processor) findDuplicates(ctx context.Context, t models.Ticket) []models.DuplicateMatch {
	if p.finder == nil {
		return nil
	}
	matches, err := p.finder.FindDuplicates(ctx, t)
	if err != nil {
		logging.Warn("duplicate search failed", "ticket", t.Key, "error", err)
		return nil
	}
	if len(matches) > 0 {
		logging.Info("found potential duplicates", "ticket", t.Key, "count", len(matches))
	}
	return matches
}

// applyTransition resolves the target status against the transitions the
// tracker currently offers and executes the first match. A target the
// workflow does not offer from the ticket's current status is an error.
func (p *Processor) applyTransition(ctx context.Context, key, targetStatus string) error {
	transitions, err := p.tracker.ListTransitions(ctx, key)
	if err != nil {
		return err
	}

	for _, tr := range transitions {
		if strings.EqualFold(tr.TargetStatus, targetStatus) || strings.EqualFold(tr.Name, targetStatus) {
			return p.tracker.ApplyTransition(ctx, key, tr.ID)
		}
	}
	return fmt.Errorf("no available transition to status %q", targetStatus)
}

func fail(result models.ProcessingResult, step string, err error) models.ProcessingResult {
	logging.Error("ticket processing failed",
		"ticket", result.TicketKey,
		"step", step,
		"error", err)
	result.ErrorStep = step
	result.ErrorMessage = err.Error()
	return result
}
