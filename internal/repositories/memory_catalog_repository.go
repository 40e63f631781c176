package repositories

import (
	"context"
	"fmt"
	"sync"

	"maxtrack/internal/models"
)

// memoryCatalogRepository keeps the host catalog state in process memory
type memoryCatalogRepository struct {
	items  map[string]models.MediaItem
	albums map[string]models.Album
	mu     sync.RWMutex
}

// NewMemoryCatalogRepository creates an empty in-memory catalog
func NewMemoryCatalogRepository() CatalogRepository {
	return &memoryCatalogRepository{
		items:  make(map[string]models.MediaItem),
		albums: make(map[string]models.Album),
	}
}

// FindMediaItem returns a copy of the stored item, or nil when not loaded
func (r *memoryCatalogRepository) FindMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[mediaItemKey(id, kind)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// SaveMediaItem stores or replaces an item
func (r *memoryCatalogRepository) SaveMediaItem(ctx context.Context, item *models.MediaItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("media item ID is required")
	}
	if item.Kind == "" {
		item.Kind = models.KindTrack
	}

	r.mu.Lock()
	r.items[mediaItemKey(item.ID, item.Kind)] = *item
	r.mu.Unlock()
	return nil
}

// FindAlbum returns a copy of the stored album, or nil when not loaded
func (r *memoryCatalogRepository) FindAlbum(ctx context.Context, id string) (*models.Album, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	album, ok := r.albums[id]
	if !ok {
		return nil, nil
	}
	return &album, nil
}

// SaveAlbum stores or replaces an album
func (r *memoryCatalogRepository) SaveAlbum(ctx context.Context, album *models.Album) error {
	if album == nil || album.ID == "" {
		return fmt.Errorf("album ID is required")
	}

	r.mu.Lock()
	r.albums[album.ID] = *album
	r.mu.Unlock()
	return nil
}

// Count returns the number of stored items and albums
func (r *memoryCatalogRepository) Count(ctx context.Context) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), int64(len(r.albums)), nil
}
