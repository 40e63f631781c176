package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"maxtrack/internal/cache"
	"maxtrack/internal/enrichment"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

// Searcher streams catalog search results by ISRC, normally a
// *services.TidalService
type Searcher interface {
	SearchByISRC(isrc string) *services.ISRCCursor
}

// Entities resolves candidate ids to full tracks, normally a
// *catalog.EntityCache
type Entities interface {
	EnsureTrack(ctx context.Context, id string) (*models.MediaItem, error)
}

// Enrichments hands out enrichment records, normally an *enrichment.Registry
type Enrichments interface {
	Track(ctx context.Context, id string) (*enrichment.Record, error)
}

// incompleteError carries a result computed from a degraded candidate stream.
// It is returned to waiting callers but never memoized, so the next access
// searches again.
type incompleteError struct {
	best *models.MediaItem
}

func (e *incompleteError) Error() string {
	return "candidate stream incomplete"
}

// Resolver finds equivalent recordings of a track in the catalog and picks
// the best one. Both queries are computed once per track id.
type Resolver struct {
	enrichments Enrichments
	entities    Entities
	search      Searcher

	highQuality *cache.Group[string, *models.MediaItem]
	current     *cache.Group[string, *models.MediaItem]
}

// New creates a Resolver
func New(enrichments Enrichments, entities Entities, search Searcher) *Resolver {
	return &Resolver{
		enrichments: enrichments,
		entities:    entities,
		search:      search,
		highQuality: cache.NewGroup[string, *models.MediaItem]("best_high_quality"),
		current:     cache.NewGroup[string, *models.MediaItem]("best_current"),
	}
}

// Candidates returns a cursor over the equivalents of the record's item.
// An item without alternate identifiers has no candidates and no search is
// issued.
func (r *Resolver) Candidates(ctx context.Context, record *enrichment.Record, filter Filter) (*CandidateCursor, error) {
	ids, complete, err := record.AlternateIDsComplete(ctx)
	if err != nil {
		return nil, err
	}
	return newCandidateCursor(r.search, r.entities, record.ID(), ids, filter, !complete), nil
}

// BestHighQuality returns the first high quality equivalent of a track, or
// nil when the track is high quality already or has no such equivalent
func (r *Resolver) BestHighQuality(ctx context.Context, id string) (*models.MediaItem, error) {
	return r.query(ctx, r.highQuality, id, r.computeBestHighQuality)
}

// BestCurrent returns the best equivalent of a track: high quality beats
// anything else, and among equal quality the latest to start streaming wins.
// It returns nil when the track has no equivalents.
func (r *Resolver) BestCurrent(ctx context.Context, id string) (*models.MediaItem, error) {
	return r.query(ctx, r.current, id, r.computeBestCurrent)
}

// SelectForDownload picks what to fetch for a track. With useRealMax the
// best current equivalent is preferred, otherwise only a high quality
// upgrade replaces the track. The track itself is the fallback.
func (r *Resolver) SelectForDownload(ctx context.Context, id string, useRealMax bool) (*models.MediaItem, error) {
	var (
		best *models.MediaItem
		err  error
	)
	if useRealMax {
		best, err = r.BestCurrent(ctx, id)
	} else {
		best, err = r.BestHighQuality(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if best != nil {
		return best, nil
	}

	item, err := r.entities.EnsureTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve track %s: %w", id, err)
	}
	return item, nil
}

// Stats returns counters for both queries
func (r *Resolver) Stats() map[string]cache.GroupStats {
	return map[string]cache.GroupStats{
		r.highQuality.Name(): r.highQuality.Stats(),
		r.current.Name():     r.current.Stats(),
	}
}

func (r *Resolver) query(ctx context.Context, g *cache.Group[string, *models.MediaItem], id string, compute func(context.Context, string) (*models.MediaItem, error)) (*models.MediaItem, error) {
	best, err := g.GetOrCompute(ctx, id, func(ctx context.Context) (*models.MediaItem, error) {
		return compute(ctx, id)
	})

	var incomplete *incompleteError
	switch {
	case err == nil:
		return best, nil
	case errors.Is(err, cache.ErrNotFound):
		return nil, nil
	case errors.As(err, &incomplete):
		return incomplete.best, nil
	default:
		return nil, err
	}
}

func (r *Resolver) computeBestHighQuality(ctx context.Context, id string) (*models.MediaItem, error) {
	record, err := r.enrichments.Track(ctx, id)
	if err != nil {
		return nil, err
	}
	if source := record.Item(); source.IsTrack() && source.HasHiRes() {
		return nil, cache.ErrNotFound
	}

	candidates, err := r.Candidates(ctx, record, HighQualityOnly)
	if err != nil {
		return nil, err
	}
	// First match wins; the rest of the stream is never fetched
	if candidates.Next(ctx) {
		best := candidates.Candidate()
		slog.Info("Found high quality equivalent", "track_id", id, "equivalent_id", best.ID)
		// An earlier identifier may have been missed
		if candidates.Degraded() {
			return nil, &incompleteError{best: best}
		}
		return best, nil
	}
	return nil, settle(candidates, nil)
}

func (r *Resolver) computeBestCurrent(ctx context.Context, id string) (*models.MediaItem, error) {
	record, err := r.enrichments.Track(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates, err := r.Candidates(ctx, record, nil)
	if err != nil {
		return nil, err
	}

	var best *models.MediaItem
	for candidates.Next(ctx) {
		if candidate := candidates.Candidate(); Better(candidate, best) {
			best = candidate
		}
	}
	if err := settle(candidates, best); err != nil {
		return nil, err
	}
	return best, nil
}

// settle maps the end state of a fully consumed cursor to the result error:
// nil with a value, ErrNotFound without one, or an unmemoized error when
// the stream was cut short
func settle(candidates *CandidateCursor, best *models.MediaItem) error {
	if err := candidates.Err(); err != nil {
		return err
	}
	if candidates.Degraded() {
		return &incompleteError{best: best}
	}
	if best == nil {
		return cache.ErrNotFound
	}
	return nil
}

// Better reports whether candidate should replace best. A high quality
// candidate beats one without, regardless of dates; at equal quality the
// strictly later stream start date wins.
func Better(candidate, best *models.MediaItem) bool {
	if best == nil {
		return true
	}
	if candidate.HasHiRes() != best.HasHiRes() {
		return candidate.HasHiRes()
	}
	return candidate.StreamStartDate.After(best.StreamStartDate)
}
