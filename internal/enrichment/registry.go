package enrichment

import (
	"context"
	"sync"

	"maxtrack/internal/cache"
	"maxtrack/internal/config"
	"maxtrack/internal/events"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

// Entities resolves catalog entities, normally a *catalog.EntityCache
type Entities interface {
	Ensure(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error)
	EnsureAlbum(ctx context.Context, id string) (*models.Album, error)
}

// MetadataService is the external metadata catalog used for identity
// matching, normally a *services.MusicBrainzService
type MetadataService interface {
	ReleasesByBarcode(ctx context.Context, barcode string) ([]services.MBRelease, error)
	RecordingsByISRC(ctx context.Context, isrc string) ([]services.MBRecording, error)
	Recording(ctx context.Context, id string) (*services.MBRecording, error)
	Release(ctx context.Context, id string) (*services.MBRelease, error)
}

type recordKey struct {
	ID   string
	Kind models.MediaKind
}

// Registry owns the enrichment records of a process. It hands out exactly
// one Record per media item and memoizes every record field, so repeated
// lookups from different callers observe the same resolved values.
type Registry struct {
	entities Entities
	metadata MetadataService
	bus      *events.Bus
	matching *config.MatchingConfig

	mu      sync.Mutex
	records map[recordKey]*Record

	// Record fields, keyed by record key
	alternateIDs *cache.Group[recordKey, []string]
	releases     *cache.Group[recordKey, *services.MBRelease]
	tracks       *cache.Group[recordKey, *services.MBTrack]
	lyrics       *cache.Group[recordKey, *models.Lyrics]
}

// NewRegistry creates an empty registry. metadata and bus may be nil, in
// which case the fields depending on them always resolve as absent.
func NewRegistry(entities Entities, metadata MetadataService, bus *events.Bus, matching *config.MatchingConfig) *Registry {
	if matching == nil {
		matching = config.DefaultMatchingConfig()
	}
	return &Registry{
		entities:     entities,
		metadata:     metadata,
		bus:          bus,
		matching:     matching,
		records:      make(map[recordKey]*Record),
		alternateIDs: cache.NewGroup[recordKey, []string]("alternate_ids"),
		releases:     cache.NewGroup[recordKey, *services.MBRelease]("matched_releases"),
		tracks:       cache.NewGroup[recordKey, *services.MBTrack]("matched_tracks"),
		lyrics:       cache.NewGroup[recordKey, *models.Lyrics]("lyrics"),
	}
}

// Track returns the record for a track
func (r *Registry) Track(ctx context.Context, id string) (*Record, error) {
	return r.For(ctx, id, models.KindTrack)
}

// Video returns the record for a video
func (r *Registry) Video(ctx context.Context, id string) (*Record, error) {
	return r.For(ctx, id, models.KindVideo)
}

// For returns the record for a media item, creating it on first access.
// The item itself is resolved through the entity cache; an item that does
// not exist yields an error matching cache.ErrNotFound and no record.
func (r *Registry) For(ctx context.Context, id string, kind models.MediaKind) (*Record, error) {
	key := recordKey{ID: id, Kind: kind}

	r.mu.Lock()
	record, ok := r.records[key]
	r.mu.Unlock()
	if ok {
		return record, nil
	}

	item, err := r.entities.Ensure(ctx, id, kind)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[key]; ok {
		return record, nil
	}
	record = &Record{key: key, item: item, registry: r}
	r.records[key] = record
	return record, nil
}

// Len returns the number of records created so far
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Stats returns counters for every memoized record field
func (r *Registry) Stats() map[string]cache.GroupStats {
	return map[string]cache.GroupStats{
		r.alternateIDs.Name(): r.alternateIDs.Stats(),
		r.releases.Name():     r.releases.Stats(),
		r.tracks.Name():       r.tracks.Stats(),
		r.lyrics.Name():       r.lyrics.Stats(),
	}
}

func (r *Registry) preferredLanguage() string {
	if r.matching.PreferredLanguage == "" {
		return "eng"
	}
	return r.matching.PreferredLanguage
}
