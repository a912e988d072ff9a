package ticket

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
)

func testMappings() config.FieldMappings {
	return config.FieldMappings{
		"steps_to_reproduce":     "customfield_10668",
		"affected_version":       "customfield_10675",
		"customer_login_details": "customfield_10680",
		"person_in_charge":       "customfield_10681",
	}
}

func fullRaw() models.RawTicket {
	return models.RawTicket{
		Key: "PS-123",
		ID:  "40001",
		Fields: map[string]any{
			"summary":     "Export to CSV fails",
			"description": "The export button returns a 500 error.",
			"issuetype":   map[string]any{"name": "Bug"},
			"priority":    map[string]any{"name": "Blocker"},
			"status":      map[string]any{"name": "Open"},
			"reporter":    map[string]any{"displayName": "Jane Doe"},
			"created":     "2026-08-20T10:30:00.000+0000",
			"updated":     "2026-08-21T09:15:00.000+0000",
			"attachment":  []any{map[string]any{"filename": "error.png"}},
			"customfield_10668": "1. Open reports 2. Click export",
			"customfield_10675": "2.4.1",
			"customfield_10680": map[string]any{"value": "jdoe42"},
			"customfield_10681": "Sam Lee",
		},
	}
}

func TestExtractFullTicket(t *testing.T) {
	got := Extract(fullRaw(), testMappings())

	want := models.Ticket{
		Key:              "PS-123",
		ID:               "40001",
		Summary:          "Export to CSV fails",
		Description:      "The export button returns a 500 error.",
		IssueType:        "Bug",
		Priority:         "Blocker",
		Status:           "Open",
		Reporter:         "Jane Doe",
		HasAttachments:   true,
		Created:          time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		Updated:          time.Date(2026, 8, 21, 9, 15, 0, 0, time.UTC),
		StepsToReproduce: "1. Open reports 2. Click export",
		AffectedVersion:  "2.4.1",
		CustomerLogin:    "jdoe42",
		PersonInCharge:   "Sam Lee",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractMissingFieldsBecomeZeroValues(t *testing.T) {
	raw := models.RawTicket{Key: "PS-1", ID: "1", Fields: map[string]any{}}

	got := Extract(raw, testMappings())

	assert.Equal(t, "PS-1", got.Key)
	assert.Empty(t, got.Summary)
	assert.Empty(t, got.IssueType)
	assert.False(t, got.HasAttachments)
	assert.True(t, got.Created.IsZero())
	assert.Empty(t, got.StepsToReproduce)
}

func TestExtractMalformedFieldsAreIgnored(t *testing.T) {
	raw := fullRaw()
	raw.Fields["issuetype"] = "not-a-map"
	raw.Fields["attachment"] = "not-a-list"
	raw.Fields["created"] = "yesterday"
	raw.Fields["customfield_10668"] = 42

	got := Extract(raw, testMappings())

	assert.Empty(t, got.IssueType)
	assert.False(t, got.HasAttachments)
	assert.True(t, got.Created.IsZero())
	assert.Empty(t, got.StepsToReproduce)
	// Well-formed fields are still extracted.
	assert.Equal(t, "Export to CSV fails", got.Summary)
}

func TestExtractUnmappedCustomFieldsStayEmpty(t *testing.T) {
	got := Extract(fullRaw(), config.FieldMappings{})

	assert.Empty(t, got.StepsToReproduce)
	assert.Empty(t, got.AffectedVersion)
	assert.Empty(t, got.CustomerLogin)
	assert.Equal(t, "Export to CSV fails", got.Summary)
}

func TestExtractEmptyAttachmentList(t *testing.T) {
	raw := fullRaw()
	raw.Fields["attachment"] = []any{}

	assert.False(t, Extract(raw, testMappings()).HasAttachments)
}

func TestLastCommentBy(t *testing.T) {
	raw := models.RawTicket{
		Key: "PS-5",
		Fields: map[string]any{
			"comment": map[string]any{
				"comments": []any{
					map[string]any{
						"author":  map[string]any{"name": "triage-bot"},
						"created": "2026-08-20T08:00:00.000+0000",
						"body":    "older bot comment",
					},
					map[string]any{
						"author":  map[string]any{"name": "jane"},
						"created": "2026-08-21T10:00:00.000+0000",
						"body":    "customer reply",
					},
					map[string]any{
						"author":  map[string]any{"name": "triage-bot"},
						"created": "2026-08-21T12:00:00.000+0000",
						"body":    "newer bot comment",
					},
				},
			},
		},
	}

	got := LastCommentBy(raw, "triage-bot")
	assert.Equal(t, time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC), got.UTC())

	assert.True(t, LastCommentBy(raw, "someone-else").IsZero())
}

func TestLastCommentByNoComments(t *testing.T) {
	raw := models.RawTicket{Key: "PS-6", Fields: map[string]any{}}
	assert.True(t, LastCommentBy(raw, "triage-bot").IsZero())

	raw.Fields["comment"] = map[string]any{"comments": "garbage"}
	assert.True(t, LastCommentBy(raw, "triage-bot").IsZero())
}

func TestLastCommentByMatchesDisplayName(t *testing.T) {
	raw := models.RawTicket{
		Key: "PS-7",
		Fields: map[string]any{
			"comment": map[string]any{
				"comments": []any{
					map[string]any{
						"author":  map[string]any{"displayName": "Triage Bot"},
						"created": "2026-08-21T12:00:00.000+0000",
						"body":    "assessment",
					},
				},
			},
		},
	}

	assert.False(t, LastCommentBy(raw, "Triage Bot").IsZero())
}
