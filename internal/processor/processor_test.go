package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
)

// fakeTracker serves one canned raw ticket and records writes.
type fakeTracker struct {
	raw      models.RawTicket
	fetchErr error

	commentBody string
	commentErr  error

	transitions    []models.Transition
	transitionsErr error

	appliedID     string
	transitionErr error
}

func (f *fakeTracker) FetchRaw(ctx context.Context, key string) (models.RawTicket, error) {
	return f.raw, f.fetchErr
}

func (f *fakeTracker) AddComment(ctx context.Context, key, body string) error {
	if f.commentErr != nil {
		return f.commentErr
	}
	f.commentBody = body
	return nil
}

func (f *fakeTracker) ListTransitions(ctx context.Context, key string) ([]models.Transition, error) {
	return f.transitions, f.transitionsErr
}

func (f *fakeTracker) ApplyTransition(ctx context.Context, key, transitionID string) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	f.appliedID = transitionID
	return nil
}

// stubGenerator always fails, so comments come from fallback templates and
// stay deterministic.
type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("generation disabled in tests")
}

const testRulesYAML = `
field_mappings:
  steps_to_reproduce: customfield_10668
  affected_version: customfield_10675
  customer_login_details: customfield_10680
transitions:
  special_complete_status: Dev investigating
  special_incomplete_status: Pending_CSC
  rules:
    - name: complete_bug_to_dev
      quality: [high]
      issue_types: [Bug]
      target_status: Dev investigating
    - name: incomplete_to_customer
      quality: [low]
      target_status: Pending_CSC
`

func testStore(t *testing.T) *config.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRulesYAML), 0o644))

	store, err := config.Load(path)
	require.NoError(t, err)
	return store
}

func completeBugRaw() models.RawTicket {
	return models.RawTicket{
		Key: "PS-123",
		ID:  "40001",
		Fields: map[string]any{
			"summary":           "Export to CSV yields corrupted output",
			"description":       "Exporting a large report to CSV yields a file that spreadsheet tools refuse to open.",
			"issuetype":         map[string]any{"name": "Bug"},
			"priority":          map[string]any{"name": "Medium"},
			"status":            map[string]any{"name": "Open"},
			"attachment":        []any{map[string]any{"filename": "error.png"}},
			"customfield_10668": "1. Open reports 2. Export as CSV",
			"customfield_10675": "2.4.1",
			"customfield_10680": "jdoe42",
		},
	}
}

func TestProcessCompleteTicketSucceeds(t *testing.T) {
	tracker := &fakeTracker{
		raw: completeBugRaw(),
		transitions: []models.Transition{
			{ID: "21", Name: "Start investigation", TargetStatus: "Dev investigating"},
		},
	}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.True(t, result.Success)
	assert.True(t, result.Ingested)
	assert.True(t, result.Assessed)
	assert.True(t, result.CommentPosted)
	assert.True(t, result.Transitioned)
	assert.Equal(t, "Dev investigating", result.NewStatus)
	assert.Equal(t, "21", tracker.appliedID)

	require.NotNil(t, result.Assessment)
	assert.Equal(t, models.QualityHigh, result.Assessment.Overall)
	assert.NotEmpty(t, tracker.commentBody)
}

func TestProcessSkipsExcludedIssueType(t *testing.T) {
	raw := completeBugRaw()
	raw.Fields["issuetype"] = map[string]any{"name": "Epic"}
	tracker := &fakeTracker{raw: raw}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "Epic")
	assert.False(t, result.Assessed)
	assert.Empty(t, tracker.commentBody)
}

func TestProcessSkipsRecentlyProcessedTicket(t *testing.T) {
	raw := completeBugRaw()
	raw.Fields["comment"] = map[string]any{
		"comments": []any{
			map[string]any{
				"author":  map[string]any{"name": "triage-bot"},
				"created": recentTimestamp(),
				"body":    "earlier assessment",
			},
		},
	}
	tracker := &fakeTracker{raw: raw}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "already processed")
	assert.Empty(t, tracker.commentBody)
}

func TestProcessFetchFailure(t *testing.T) {
	tracker := &fakeTracker{fetchErr: errors.New("jira down")}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.False(t, result.Success)
	assert.False(t, result.Ingested)
	assert.Equal(t, "fetch", result.ErrorStep)
	assert.Contains(t, result.ErrorMessage, "jira down")
}

func TestProcessCommentFailureAborts(t *testing.T) {
	tracker := &fakeTracker{
		raw:        completeBugRaw(),
		commentErr: errors.New("comment rejected"),
	}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.False(t, result.Success)
	assert.True(t, result.Assessed)
	assert.False(t, result.CommentPosted)
	assert.Equal(t, "comment", result.ErrorStep)
	assert.Empty(t, tracker.appliedID, "transition must not run after a failed comment")
}

func TestProcessTransitionFailureIsPartialSuccess(t *testing.T) {
	tracker := &fakeTracker{
		raw: completeBugRaw(),
		transitions: []models.Transition{
			{ID: "21", TargetStatus: "Dev investigating"},
		},
		transitionErr: errors.New("workflow conflict"),
	}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.False(t, result.Success)
	assert.True(t, result.CommentPosted)
	assert.False(t, result.Transitioned)
	assert.Equal(t, "transition", result.ErrorStep)
	assert.True(t, result.PartialSuccess())
}

func TestProcessNoMatchingTransitionOffered(t *testing.T) {
	tracker := &fakeTracker{
		raw: completeBugRaw(),
		// The workflow offers no path to the selected status.
		transitions: []models.Transition{{ID: "31", TargetStatus: "Closed"}},
	}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.False(t, result.Success)
	assert.Equal(t, "transition", result.ErrorStep)
	assert.True(t, result.PartialSuccess())
}

func TestProcessNoTransitionRuleMatched(t *testing.T) {
	raw := completeBugRaw()
	// Medium tier: one mandatory field and the attachments warning missing.
	delete(raw.Fields, "customfield_10675")
	raw.Fields["attachment"] = []any{}

	tracker := &fakeTracker{raw: raw}
	p := New(tracker, stubGenerator{}, testStore(t), nil)

	result := p.Process(context.Background(), "PS-123")

	assert.True(t, result.Success)
	assert.True(t, result.CommentPosted)
	assert.False(t, result.Transitioned)
	assert.Empty(t, tracker.appliedID)
	require.NotNil(t, result.Assessment)
	assert.Equal(t, models.QualityMedium, result.Assessment.Overall)
}

// stubFinder returns fixed duplicate matches.
type stubFinder struct {
	matches []models.DuplicateMatch
	err     error
}

func (s stubFinder) FindDuplicates(ctx context.Context, t models.Ticket) ([]models.DuplicateMatch, error) {
	return s.matches, s.err
}

func TestProcessIncludesDuplicatesInComment(t *testing.T) {
	tracker := &fakeTracker{
		raw: completeBugRaw(),
		transitions: []models.Transition{
			{ID: "21", TargetStatus: "Dev investigating"},
		},
	}
	finder := stubFinder{matches: []models.DuplicateMatch{
		{Key: "PS-99", Summary: "Export corrupts output", Status: "Open", Similarity: 0.7},
	}}
	p := New(tracker, stubGenerator{}, testStore(t), finder)

	result := p.Process(context.Background(), "PS-123")

	assert.True(t, result.Success)
	assert.Contains(t, tracker.commentBody, "PS-99")
}

func TestProcessDuplicateSearchFailureIsSoft(t *testing.T) {
	tracker := &fakeTracker{
		raw: completeBugRaw(),
		transitions: []models.Transition{
			{ID: "21", TargetStatus: "Dev investigating"},
		},
	}
	p := New(tracker, stubGenerator{}, testStore(t), stubFinder{err: errors.New("search broken")})

	result := p.Process(context.Background(), "PS-123")

	assert.True(t, result.Success)
	assert.NotContains(t, tracker.commentBody, "duplicate")
}

// recentTimestamp is a bot-comment time well inside the exclusion window.
func recentTimestamp() string {
	return time.Now().Add(-30 * time.Minute).Format("2006-01-02T15:04:05.000-0700")
}
