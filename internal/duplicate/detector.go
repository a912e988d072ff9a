// Package duplicate searches the tracker for tickets resembling the one
// being processed. Results feed comment generation only; they never affect
// quality scoring.
package duplicate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/pkg/models"
)

// Finder is the narrow interface the orchestrator depends on. The keyword
// extraction behind the default detector is heuristic; alternative
// implementations can replace it without touching the pipeline.
type Finder interface {
	FindDuplicates(ctx context.Context, t models.Ticket) ([]models.DuplicateMatch, error)
}

// Searcher is the tracker search capability the detector needs.
type Searcher interface {
	Search(ctx context.Context, jql string, maxResults int) ([]models.RawTicket, error)
}

// Detector finds candidate duplicates via a JQL summary search ranked by
// word-overlap similarity.
type Detector struct {
	search     Searcher
	maxResults int
}

// NewDetector returns a detector that searches through the given tracker.
func NewDetector(search Searcher, maxResults int) *Detector {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Detector{search: search, maxResults: maxResults}
}

// FindDuplicates searches the ticket's project for open tickets whose
// summaries share keywords with this one, ordered by descending similarity.
// A summary too short to search yields no matches, not an error.
func (d *Detector) FindDuplicates(ctx context.Context, t models.Ticket) ([]models.DuplicateMatch, error) {
	keywords := Keywords(t.Summary)
	if len(keywords) == 0 {
		logging.Debug("summary too short for duplicate search", "ticket", t.Key)
		return nil, nil
	}

	jql := buildJQL(t.ProjectKey(), t.Key, keywords)
	logging.Debug("duplicate search", "ticket", t.Key, "jql", jql)

	raws, err := d.search.Search(ctx, jql, d.maxResults)
	if err != nil {
		return nil, fmt.Errorf("duplicate search for %s: %w", t.Key, err)
	}

	matches := make([]models.DuplicateMatch, 0, len(raws))
	for _, raw := range raws {
		summary, _ := raw.Fields["summary"].(string)
		status := ""
		if st, ok := raw.Fields["status"].(map[string]any); ok {
			status, _ = st["name"].(string)
		}
		matches = append(matches, models.DuplicateMatch{
			Key:        raw.Key,
			Summary:    summary,
			Status:     status,
			Similarity: Similarity(t.Summary, summary),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

// Keywords extracts search terms from a summary: the first three words
// longer than three characters, falling back to the first two words. A
// summary of fewer than two words yields nothing.
func Keywords(summary string) []string {
	words := strings.Fields(summary)
	if len(words) < 2 {
		return nil
	}

	var keywords []string
	for _, w := range words {
		if len(w) > 3 {
			keywords = append(keywords, w)
			if len(keywords) == 3 {
				return keywords
			}
		}
	}
	if len(keywords) == 0 {
		keywords = words[:2]
	}
	return keywords
}

func buildJQL(projectKey, selfKey string, keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, fmt.Sprintf("summary ~ %q", kw))
	}
	return fmt.Sprintf("project = %q AND %s AND key != %q AND status != \"Closed\"",
		projectKey, strings.Join(terms, " AND "), selfKey)
}

// Similarity is the Jaccard word-overlap coefficient of the two summaries.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	setA := wordSet(a)
	setB := wordSet(b)

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
