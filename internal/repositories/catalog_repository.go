package repositories

import (
	"context"

	"maxtrack/internal/models"
)

// CatalogRepository is the host's local catalog state.
//
// Find methods return (nil, nil) when the entity is not loaded locally. That
// is never an authoritative "does not exist"; callers fall back to a
// catalog query for that.
type CatalogRepository interface {
	FindMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error)
	SaveMediaItem(ctx context.Context, item *models.MediaItem) error

	FindAlbum(ctx context.Context, id string) (*models.Album, error)
	SaveAlbum(ctx context.Context, album *models.Album) error

	// Count returns the number of media items and albums held locally
	Count(ctx context.Context) (items int64, albums int64, err error)
}

func mediaItemKey(id string, kind models.MediaKind) string {
	return string(kind) + ":" + id
}
