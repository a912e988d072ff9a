// Package jira handles interactions with the JIRA API: fetching tickets as
// raw records, posting comments, listing and applying workflow transitions,
// and running JQL searches.
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/pkg/models"
)

// jiraTimeLayout is the timestamp format JIRA's REST API emits.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// ErrNotFound is returned when a ticket does not exist.
var ErrNotFound = errors.New("issue not found")

// APIError is returned for failed JIRA API calls.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("jira: %s", e.Message)
	}
	return fmt.Sprintf("jira: %s (status: %d)", e.Message, e.StatusCode)
}

// Transient reports whether the error is worth retrying: network failures,
// rate limiting, and server errors. Auth errors and not-found are permanent.
func (e *APIError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client handles interactions with the JIRA API.
type Client struct {
	client *jira.Client
	cfg    config.JiraConfig
}

// NewClient creates a new JIRA client from configuration.
func NewClient(cfg config.JiraConfig) (*Client, error) {
	if cfg.URL == "" || cfg.Username == "" || cfg.Token == "" {
		return nil, fmt.Errorf("JIRA_URL, JIRA_USERNAME, and JIRA_TOKEN must be set")
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JIRA client: %w", err)
	}

	logging.Debug("initialized jira client",
		"url", cfg.URL,
		"username", cfg.Username,
		"token", logging.MaskSensitive(cfg.Token))

	return &Client{client: client, cfg: cfg}, nil
}

// FetchRaw fetches a ticket and returns it as a raw record, including
// attachments, comments, and custom fields.
func (c *Client) FetchRaw(ctx context.Context, key string) (models.RawTicket, error) {
	var issue *jira.Issue

	err := c.do(ctx, "fetch "+key, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		issue, resp, err = c.client.Issue.GetWithContext(ctx, key, &jira.GetQueryOptions{
			Expand: "attachment,changelog",
		})
		return resp, err
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return models.RawTicket{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return models.RawTicket{}, err
	}

	return rawFromIssue(issue), nil
}

// AddComment posts a comment to the ticket.
func (c *Client) AddComment(ctx context.Context, key, body string) error {
	return c.do(ctx, "add comment to "+key, func() (*jira.Response, error) {
		_, resp, err := c.client.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: body})
		return resp, err
	})
}

// ListTransitions returns the workflow transitions currently available for
// the ticket.
func (c *Client) ListTransitions(ctx context.Context, key string) ([]models.Transition, error) {
	var raw []jira.Transition

	err := c.do(ctx, "list transitions for "+key, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		raw, resp, err = c.client.Issue.GetTransitionsWithContext(ctx, key)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	transitions := make([]models.Transition, 0, len(raw))
	for _, t := range raw {
		transitions = append(transitions, models.Transition{
			ID:           t.ID,
			Name:         t.Name,
			TargetStatus: t.To.Name,
		})
	}
	return transitions, nil
}

// ApplyTransition executes the transition on the ticket.
func (c *Client) ApplyTransition(ctx context.Context, key, transitionID string) error {
	return c.do(ctx, "apply transition on "+key, func() (*jira.Response, error) {
		return c.client.Issue.DoTransitionWithContext(ctx, key, transitionID)
	})
}

// Search runs a JQL query and returns the matching tickets as raw records.
func (c *Client) Search(ctx context.Context, jql string, maxResults int) ([]models.RawTicket, error) {
	var issues []jira.Issue

	err := c.do(ctx, "search", func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		issues, resp, err = c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			MaxResults: maxResults,
		})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	raws := make([]models.RawTicket, 0, len(issues))
	for i := range issues {
		raws = append(raws, rawFromIssue(&issues[i]))
	}
	return raws, nil
}

// do runs a JIRA call with bounded retries and exponential backoff for
// transient failures. Permanent errors surface immediately.
func (c *Client) do(ctx context.Context, op string, fn func() (*jira.Response, error)) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			logging.Warn("retrying jira request",
				"operation", op,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := fn()
		if err == nil {
			return nil
		}

		apiErr := classify(op, resp, err)
		if !apiErr.Transient() {
			return apiErr
		}
		lastErr = apiErr
	}
	return lastErr
}

func classify(op string, resp *jira.Response, err error) *APIError {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	return &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("%s: %v", op, err),
	}
}

// rawFromIssue flattens a typed go-jira issue back into the loosely-typed
// record shape the field extractor consumes. Custom fields come through
// the issue's unknown-field map under their source IDs.
func rawFromIssue(issue *jira.Issue) models.RawTicket {
	fields := map[string]any{}

	// Custom fields first so the fixed names below always win.
	if issue.Fields != nil {
		for k, v := range issue.Fields.Unknowns {
			fields[k] = v
		}

		fields["summary"] = issue.Fields.Summary
		fields["description"] = issue.Fields.Description
		fields["issuetype"] = map[string]any{"name": issue.Fields.Type.Name}
		if issue.Fields.Priority != nil {
			fields["priority"] = map[string]any{"name": issue.Fields.Priority.Name}
		}
		if issue.Fields.Status != nil {
			fields["status"] = map[string]any{"name": issue.Fields.Status.Name}
		}
		if issue.Fields.Reporter != nil {
			fields["reporter"] = map[string]any{"displayName": issue.Fields.Reporter.DisplayName}
		}
		fields["created"] = time.Time(issue.Fields.Created).Format(jiraTimeLayout)
		fields["updated"] = time.Time(issue.Fields.Updated).Format(jiraTimeLayout)

		attachments := make([]any, 0, len(issue.Fields.Attachments))
		for _, a := range issue.Fields.Attachments {
			attachments = append(attachments, map[string]any{"filename": a.Filename})
		}
		fields["attachment"] = attachments

		if issue.Fields.Comments != nil {
			comments := make([]any, 0, len(issue.Fields.Comments.Comments))
			for _, cm := range issue.Fields.Comments.Comments {
				comments = append(comments, map[string]any{
					"author":  map[string]any{"name": cm.Author.Name, "displayName": cm.Author.DisplayName},
					"created": cm.Created,
					"body":    cm.Body,
				})
			}
			fields["comment"] = map[string]any{"comments": comments}
		}
	}

	return models.RawTicket{
		Key:    issue.Key,
		ID:     issue.ID,
		Fields: fields,
	}
}
