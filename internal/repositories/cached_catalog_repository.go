package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"maxtrack/internal/cache"
	"maxtrack/internal/models"
)

// cachedCatalogRepository wraps a CatalogRepository with a read-through cache
type cachedCatalogRepository struct {
	repository CatalogRepository
	cache      cache.Cache
}

// NewCachedCatalogRepository creates a catalog that serves repeated lookups
// from c. Only found entities are cached; a miss always reaches the
// underlying repository.
func NewCachedCatalogRepository(repository CatalogRepository, c cache.Cache) CatalogRepository {
	return &cachedCatalogRepository{
		repository: repository,
		cache:      c,
	}
}

// Cache key generators
func mediaItemCacheKey(id string, kind models.MediaKind) string {
	return "catalog:item:" + mediaItemKey(id, kind)
}
func albumCacheKey(id string) string { return "catalog:album:" + id }

const entityCacheTTL = 1 * time.Hour

// FindMediaItem checks cache first, then repository
func (r *cachedCatalogRepository) FindMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	cacheKey := mediaItemCacheKey(id, kind)

	var cached models.MediaItem
	if r.getFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	item, err := r.repository.FindMediaItem(ctx, id, kind)
	if err != nil || item == nil {
		return item, err
	}

	r.cacheResult(ctx, cacheKey, item)
	return item, nil
}

// SaveMediaItem saves to repository and invalidates the cached copy
func (r *cachedCatalogRepository) SaveMediaItem(ctx context.Context, item *models.MediaItem) error {
	if err := r.repository.SaveMediaItem(ctx, item); err != nil {
		return err
	}
	r.invalidate(ctx, mediaItemCacheKey(item.ID, item.Kind))
	return nil
}

// FindAlbum checks cache first, then repository
func (r *cachedCatalogRepository) FindAlbum(ctx context.Context, id string) (*models.Album, error) {
	cacheKey := albumCacheKey(id)

	var cached models.Album
	if r.getFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	album, err := r.repository.FindAlbum(ctx, id)
	if err != nil || album == nil {
		return album, err
	}

	r.cacheResult(ctx, cacheKey, album)
	return album, nil
}

// SaveAlbum saves to repository and invalidates the cached copy
func (r *cachedCatalogRepository) SaveAlbum(ctx context.Context, album *models.Album) error {
	if err := r.repository.SaveAlbum(ctx, album); err != nil {
		return err
	}
	r.invalidate(ctx, albumCacheKey(album.ID))
	return nil
}

// Count - not cached as it changes frequently
func (r *cachedCatalogRepository) Count(ctx context.Context) (int64, int64, error) {
	return r.repository.Count(ctx)
}

// getFromCache decodes a cached entity into out. Cache failures count as a
// miss.
func (r *cachedCatalogRepository) getFromCache(ctx context.Context, key string, out interface{}) bool {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Catalog cache read failed", "key", key, "error", err)
		return false
	}
	if data == nil {
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		slog.Error("Failed to unmarshal catalog entity from cache", "key", key, "error", err)
		// Delete corrupted cache entry
		r.invalidate(ctx, key)
		return false
	}
	return true
}

func (r *cachedCatalogRepository) cacheResult(ctx context.Context, key string, entity interface{}) {
	data, err := json.Marshal(entity)
	if err != nil {
		slog.Error("Failed to marshal catalog entity for cache", "key", key, "error", err)
		return
	}
	if err := r.cache.Set(ctx, key, data, entityCacheTTL); err != nil {
		slog.Error("Failed to cache catalog entity", "key", key, "error", err)
	}
}

func (r *cachedCatalogRepository) invalidate(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		slog.Warn("Failed to invalidate catalog cache", "key", key, "error", err)
	}
}
