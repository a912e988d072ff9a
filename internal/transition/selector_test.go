package transition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
)

func testTable() config.TransitionTable {
	return config.TransitionTable{
		SpecialIssueType:  "Unreproducible Bug",
		SpecialComplete:   "Dev investigating",
		SpecialIncomplete: "Pending_CSC",
		Rules: []config.TransitionRule{
			{
				Name:         "complete_bug_to_dev",
				Tiers:        []string{"high"},
				IssueTypes:   []string{"Bug", "Problem"},
				TargetStatus: "Dev investigating",
			},
			{
				Name:         "incomplete_to_customer",
				Tiers:        []string{"low"},
				TargetStatus: "Pending_CSC",
			},
		},
	}
}

func assessment(level models.QualityLevel) models.QualityAssessment {
	return models.QualityAssessment{Overall: level}
}

func TestSelectFirstMatchingRuleWins(t *testing.T) {
	s := NewSelector(config.TransitionTable{
		Rules: []config.TransitionRule{
			{Name: "first", Tiers: []string{"low"}, TargetStatus: "Status A"},
			{Name: "second", Tiers: []string{"low"}, TargetStatus: "Status B"},
		},
	})

	d := s.Select(models.Ticket{IssueType: "Bug"}, assessment(models.QualityLow))

	assert.True(t, d.Matched)
	assert.Equal(t, "Status A", d.TargetStatus)
	assert.Equal(t, "first", d.Rule)
}

func TestSelectByTierAndIssueType(t *testing.T) {
	s := NewSelector(testTable())

	tests := []struct {
		name       string
		ticket     models.Ticket
		level      models.QualityLevel
		wantMatch  bool
		wantStatus string
	}{
		{
			name:       "high quality bug goes to dev",
			ticket:     models.Ticket{IssueType: "Bug"},
			level:      models.QualityHigh,
			wantMatch:  true,
			wantStatus: "Dev investigating",
		},
		{
			name:       "low quality anything goes back to customer",
			ticket:     models.Ticket{IssueType: "Support Request"},
			level:      models.QualityLow,
			wantMatch:  true,
			wantStatus: "Pending_CSC",
		},
		{
			name:      "medium quality matches nothing",
			ticket:    models.Ticket{IssueType: "Bug"},
			level:     models.QualityMedium,
			wantMatch: false,
		},
		{
			name:      "high quality non-bug matches nothing",
			ticket:    models.Ticket{IssueType: "Support Request"},
			level:     models.QualityHigh,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := s.Select(tt.ticket, assessment(tt.level))
			assert.Equal(t, tt.wantMatch, d.Matched)
			assert.Equal(t, tt.wantStatus, d.TargetStatus)
		})
	}
}

func TestSelectEmptyTableNeverMatches(t *testing.T) {
	s := NewSelector(config.TransitionTable{})

	d := s.Select(models.Ticket{IssueType: "Bug"}, assessment(models.QualityLow))

	assert.False(t, d.Matched)
	assert.Empty(t, d.TargetStatus)
}

func TestSelectSpecialIssueType(t *testing.T) {
	s := NewSelector(testTable())

	tests := []struct {
		name       string
		ticket     models.Ticket
		wantStatus string
		wantRule   string
	}{
		{
			name: "description and login field present",
			ticket: models.Ticket{
				IssueType:     "Unreproducible Bug",
				Description:   "The report crashes intermittently on save.",
				CustomerLogin: "jdoe42",
			},
			wantStatus: "Dev investigating",
			wantRule:   "special_complete",
		},
		{
			name: "login details inline in description",
			ticket: models.Ticket{
				IssueType:   "Unreproducible Bug",
				Description: "Crash on save for customer jane.doe@example.com, not seen on staging.",
			},
			wantStatus: "Dev investigating",
			wantRule:   "special_complete",
		},
		{
			name: "missing login details",
			ticket: models.Ticket{
				IssueType:   "Unreproducible Bug",
				Description: "The report crashes intermittently on save.",
			},
			wantStatus: "Pending_CSC",
			wantRule:   "special_incomplete",
		},
		{
			name: "description too short",
			ticket: models.Ticket{
				IssueType:     "Unreproducible Bug",
				Description:   "crashes",
				CustomerLogin: "jdoe42",
			},
			wantStatus: "Pending_CSC",
			wantRule:   "special_incomplete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Quality tier must not influence the special workflow.
			d := s.Select(tt.ticket, assessment(models.QualityLow))
			assert.True(t, d.Matched)
			assert.Equal(t, tt.wantStatus, d.TargetStatus)
			assert.Equal(t, tt.wantRule, d.Rule)
		})
	}
}

func TestSelectSpecialWithoutTargetsDoesNotMatch(t *testing.T) {
	s := NewSelector(config.TransitionTable{SpecialIssueType: "Unreproducible Bug"})

	d := s.Select(models.Ticket{
		IssueType:     "Unreproducible Bug",
		Description:   "The report crashes intermittently on save.",
		CustomerLogin: "jdoe42",
	}, assessment(models.QualityHigh))

	assert.False(t, d.Matched)
}

func TestSelectConditions(t *testing.T) {
	s := NewSelector(config.TransitionTable{
		Rules: []config.TransitionRule{
			{
				Name:         "needs_steps_and_attachments",
				Conditions:   []string{"steps_present", "attachments_present"},
				TargetStatus: "Dev investigating",
			},
		},
	})

	withBoth := models.Ticket{
		IssueType:        "Bug",
		StepsToReproduce: "1. Open the app",
		HasAttachments:   true,
	}
	assert.True(t, s.Select(withBoth, assessment(models.QualityHigh)).Matched)

	withoutAttachments := withBoth
	withoutAttachments.HasAttachments = false
	assert.False(t, s.Select(withoutAttachments, assessment(models.QualityHigh)).Matched)
}
