// Package schedule runs the configured JQL search profiles on their
// intervals and feeds matching ticket keys to the worker queue.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/pkg/models"
)

// defaultBatchSize caps one search poll when the profile does not set one.
const defaultBatchSize = 50

// Searcher runs JQL queries against the tracker.
type Searcher interface {
	Search(ctx context.Context, jql string, maxResults int) ([]models.RawTicket, error)
}

// Poller runs search profiles and enqueues the keys they find. Keys seen
// recently are suppressed so overlapping profiles and slow workers do not
// enqueue the same ticket twice; the processor's own exclusion window is
// the durable guard.
type Poller struct {
	searcher Searcher
	store    *config.Store

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewPoller creates a poller searching through the given tracker.
func NewPoller(searcher Searcher, store *config.Store) *Poller {
	return &Poller{
		searcher: searcher,
		store:    store,
		seen:     make(map[string]time.Time),
	}
}

// Run polls every configured profile until the context is cancelled, then
// closes the output channel. Each profile runs its first search immediately.
func (p *Poller) Run(ctx context.Context, out chan<- string) {
	snap := p.store.Snapshot()

	var wg sync.WaitGroup
	for _, profile := range snap.Profiles {
		wg.Add(1)
		go func(profile config.SearchProfile) {
			defer wg.Done()
			p.runProfile(ctx, profile, out)
		}(profile)
	}
	wg.Wait()
	close(out)
}

func (p *Poller) runProfile(ctx context.Context, profile config.SearchProfile, out chan<- string) {
	logging.Info("starting search profile",
		"profile", profile.Name,
		"interval", profile.Interval)

	ticker := time.NewTicker(profile.Interval)
	defer ticker.Stop()

	p.poll(ctx, profile, out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, profile, out)
		}
	}
}

func (p *Poller) poll(ctx context.Context, profile config.SearchProfile, out chan<- string) {
	batch := profile.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	raws, err := p.searcher.Search(ctx, profile.JQL, batch)
	if err != nil {
		logging.Error("search profile poll failed",
			"profile", profile.Name,
			"error", err)
		return
	}

	enqueued := 0
	for _, raw := range raws {
		if !p.markSeen(raw.Key) {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case out <- raw.Key:
			enqueued++
		}
	}

	logging.Debug("search profile poll complete",
		"profile", profile.Name,
		"found", len(raws),
		"enqueued", enqueued)
}

// markSeen records the key and reports whether it was new within the
// suppression window. Expired entries are pruned in place.
func (p *Poller) markSeen(key string) bool {
	const window = time.Hour

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for k, ts := range p.seen {
		if now.Sub(ts) > window {
			delete(p.seen, k)
		}
	}

	if ts, ok := p.seen[key]; ok && now.Sub(ts) <= window {
		return false
	}
	p.seen[key] = now
	return true
}
