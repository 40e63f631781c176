package resolver

import (
	"context"
	"errors"
	"log/slog"

	"maxtrack/internal/cache"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

// Filter decides whether a search record is worth resolving to a full entity
type Filter func(record services.SearchRecord) bool

// HighQualityOnly keeps search records carrying the top quality tag
func HighQualityOnly(record services.SearchRecord) bool {
	return record.Track.HasHiRes()
}

// CandidateCursor walks the equivalents of a source track: for each of its
// alternate identifiers in order, the catalog search results in the order
// the catalog returns them. Records that are not tracks, the source itself,
// records already met under an earlier identifier, records rejected by the
// filter and records that do not resolve to an entity are skipped.
//
// Search pages and entities are fetched only as Next asks for them, so a
// consumer that stops early never pays for the rest. A cursor holds no
// resources and may be dropped at any point.
type CandidateCursor struct {
	searcher Searcher
	entities Entities
	sourceID string
	ids      []string
	filter   Filter
	seen     map[string]struct{}

	next     int
	results  *services.ISRCCursor
	current  *models.MediaItem
	searches int
	degraded bool
	err      error
}

// newCandidateCursor starts a cursor over ids. degraded marks identifiers
// that may be missing because an enrichment lookup failed.
func newCandidateCursor(search Searcher, entities Entities, sourceID string, ids []string, filter Filter, degraded bool) *CandidateCursor {
	return &CandidateCursor{
		searcher: search,
		entities: entities,
		sourceID: sourceID,
		ids:      ids,
		filter:   filter,
		seen:     make(map[string]struct{}),
		degraded: degraded,
	}
}

// Next advances to the next candidate. It returns false once every
// identifier is exhausted or ctx is done.
func (c *CandidateCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	for {
		if c.results == nil {
			if c.next >= len(c.ids) {
				return false
			}
			c.results = c.searcher.SearchByISRC(c.ids[c.next])
			c.next++
			c.searches++
		}

		if !c.results.Next(ctx) {
			if err := c.results.Err(); err != nil {
				if ctx.Err() != nil {
					c.err = ctx.Err()
					return false
				}
				slog.Warn("Catalog search failed", "context", "tidal.isrc_search", "isrc", c.results.ISRC(), "error", err)
				c.degraded = true
			}
			c.results = nil
			continue
		}

		record := c.results.Record()
		if !record.IsTrack() || record.ID == c.sourceID {
			continue
		}
		if _, ok := c.seen[record.ID]; ok {
			continue
		}
		c.seen[record.ID] = struct{}{}
		if c.filter != nil && !c.filter(record) {
			continue
		}

		item, err := c.entities.EnsureTrack(ctx, record.ID)
		if err != nil {
			if ctx.Err() != nil {
				c.err = ctx.Err()
				return false
			}
			if !errors.Is(err, cache.ErrNotFound) {
				slog.Warn("Candidate lookup failed", "context", "catalog.track", "track_id", record.ID, "error", err)
				c.degraded = true
			}
			continue
		}

		c.current = item
		return true
	}
}

// Candidate returns the entity at the current position
func (c *CandidateCursor) Candidate() *models.MediaItem {
	return c.current
}

// Err returns the context error that stopped iteration, if any
func (c *CandidateCursor) Err() error {
	return c.err
}

// Degraded reports whether a search or lookup failed along the way, or the
// alternate identifiers were incomplete, so that some candidates may be
// missing
func (c *CandidateCursor) Degraded() bool {
	return c.degraded
}

// Searches returns the number of identifier searches started so far
func (c *CandidateCursor) Searches() int {
	return c.searches
}
