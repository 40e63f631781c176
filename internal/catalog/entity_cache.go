package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"maxtrack/internal/cache"
	"maxtrack/internal/models"
	"maxtrack/internal/repositories"
)

// Source queries the host catalog for entities missing from the local store.
// It reports authoritative absence with an error satisfying
// errors.Is(err, cache.ErrNotFound).
type Source interface {
	GetMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error)
	GetAlbum(ctx context.Context, id string) (*models.Album, error)
}

type itemKey struct {
	ID   string
	Kind models.MediaKind
}

// EntityCache resolves tracks, videos and albums by id, once per id for the
// lifetime of the cache. The local store is consulted first, then the host
// catalog; fetched entities are written back to the store.
//
// Absent entities come back as an error matching cache.ErrNotFound and are
// never fetched again. Other errors are returned and retried on next access.
type EntityCache struct {
	store  repositories.CatalogRepository
	source Source

	items  *cache.Group[itemKey, *models.MediaItem]
	albums *cache.Group[string, *models.Album]
}

// NewEntityCache creates an entity cache. source may be nil, in which case
// anything missing from store is reported as absent.
func NewEntityCache(store repositories.CatalogRepository, source Source) *EntityCache {
	return &EntityCache{
		store:  store,
		source: source,
		items:  cache.NewGroup[itemKey, *models.MediaItem]("media_items"),
		albums: cache.NewGroup[string, *models.Album]("albums"),
	}
}

// EnsureTrack resolves a track
func (c *EntityCache) EnsureTrack(ctx context.Context, id string) (*models.MediaItem, error) {
	return c.Ensure(ctx, id, models.KindTrack)
}

// EnsureVideo resolves a video
func (c *EntityCache) EnsureVideo(ctx context.Context, id string) (*models.MediaItem, error) {
	return c.Ensure(ctx, id, models.KindVideo)
}

// Ensure resolves a media item of the given kind
func (c *EntityCache) Ensure(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	if id == "" {
		return nil, fmt.Errorf("empty %s id: %w", kind, cache.ErrNotFound)
	}
	return c.items.GetOrCompute(ctx, itemKey{ID: id, Kind: kind}, func(ctx context.Context) (*models.MediaItem, error) {
		return c.loadItem(ctx, id, kind)
	})
}

// EnsureAlbum resolves an album
func (c *EntityCache) EnsureAlbum(ctx context.Context, id string) (*models.Album, error) {
	if id == "" {
		return nil, fmt.Errorf("empty album id: %w", cache.ErrNotFound)
	}
	return c.albums.GetOrCompute(ctx, id, func(ctx context.Context) (*models.Album, error) {
		return c.loadAlbum(ctx, id)
	})
}

// Stats returns counters for the item and album caches
func (c *EntityCache) Stats() map[string]cache.GroupStats {
	return map[string]cache.GroupStats{
		c.items.Name():  c.items.Stats(),
		c.albums.Name(): c.albums.Stats(),
	}
}

func (c *EntityCache) loadItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	item, err := c.store.FindMediaItem(ctx, id, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s from store: %w", kind, id, err)
	}
	if item != nil {
		return item, nil
	}

	if c.source == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, cache.ErrNotFound)
	}

	item, err = c.source.GetMediaItem(ctx, id, kind)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			slog.Debug("Media item does not exist", "id", id, "kind", kind)
		}
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, cache.ErrNotFound)
	}

	if err := c.store.SaveMediaItem(ctx, item); err != nil {
		slog.Warn("Failed to store fetched media item", "id", id, "kind", kind, "error", err)
	}
	return item, nil
}

func (c *EntityCache) loadAlbum(ctx context.Context, id string) (*models.Album, error) {
	album, err := c.store.FindAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read album %s from store: %w", id, err)
	}
	if album != nil {
		return album, nil
	}

	if c.source == nil {
		return nil, fmt.Errorf("album %s: %w", id, cache.ErrNotFound)
	}

	album, err = c.source.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	if album == nil {
		return nil, fmt.Errorf("album %s: %w", id, cache.ErrNotFound)
	}

	if err := c.store.SaveAlbum(ctx, album); err != nil {
		slog.Warn("Failed to store fetched album", "id", id, "error", err)
	}
	return album, nil
}

// IsAbsent reports whether err means the entity does not exist
func IsAbsent(err error) bool {
	return errors.Is(err, cache.ErrNotFound)
}
