// Package ticket normalizes raw tracker records into the fixed internal
// ticket shape the quality rules operate on.
package ticket

import (
	"time"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
)

// jiraTimeLayout is the timestamp format Jira's REST API emits.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// Extract converts a raw ticket record into a Ticket. Standard fields are
// read by fixed names; custom fields go through the logical-name to
// field-ID mappings. Missing or malformed fields become zero values, never
// errors; downstream rules treat absence and emptiness identically.
func Extract(raw models.RawTicket, fields config.FieldMappings) models.Ticket {
	t := models.Ticket{
		Key:         raw.Key,
		ID:          raw.ID,
		Summary:     stringField(raw.Fields, "summary"),
		Description: stringField(raw.Fields, "description"),
		IssueType:   nestedString(raw.Fields, "issuetype", "name"),
		Priority:    nestedString(raw.Fields, "priority", "name"),
		Status:      nestedString(raw.Fields, "status", "name"),
		Reporter:    nestedString(raw.Fields, "reporter", "displayName"),
		Created:     timeField(raw.Fields, "created"),
		Updated:     timeField(raw.Fields, "updated"),
	}

	if attachments, ok := raw.Fields["attachment"].([]any); ok {
		t.HasAttachments = len(attachments) > 0
	}

	t.StepsToReproduce = customField(raw.Fields, fields, "steps_to_reproduce")
	t.AffectedVersion = customField(raw.Fields, fields, "affected_version")
	t.CustomerLogin = customField(raw.Fields, fields, "customer_login_details")
	t.PersonInCharge = customField(raw.Fields, fields, "person_in_charge")

	return t
}

// LastCommentBy returns the creation time of the newest comment authored by
// the given user, or the zero time when no such comment exists. Used for
// the reprocessing-exclusion heuristic.
func LastCommentBy(raw models.RawTicket, author string) time.Time {
	var latest time.Time

	commentField, ok := raw.Fields["comment"].(map[string]any)
	if !ok {
		return latest
	}
	comments, ok := commentField["comments"].([]any)
	if !ok {
		return latest
	}

	for _, c := range comments {
		comment, ok := c.(map[string]any)
		if !ok {
			continue
		}
		name := nestedString(comment, "author", "name")
		if name == "" {
			name = nestedString(comment, "author", "displayName")
		}
		if name != author {
			continue
		}
		created, ok := comment["created"].(string)
		if !ok {
			continue
		}
		if ts, err := time.Parse(jiraTimeLayout, created); err == nil && ts.After(latest) {
			latest = ts
		}
	}

	return latest
}

// customField resolves a logical field name through the mappings and reads
// it from the raw record. An absent mapping or absent value yields "".
func customField(raw map[string]any, fields config.FieldMappings, logical string) string {
	fieldID, ok := fields[logical]
	if !ok || fieldID == "" {
		return ""
	}

	switch v := raw[fieldID].(type) {
	case string:
		return v
	case map[string]any:
		// Select-style custom fields nest their text under "value".
		if s, ok := v["value"].(string); ok {
			return s
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func nestedString(m map[string]any, keys ...string) string {
	cur := m
	for i, key := range keys {
		if i == len(keys)-1 {
			s, _ := cur[key].(string)
			return s
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

func timeField(m map[string]any, key string) time.Time {
	s, ok := m[key].(string)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(jiraTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
