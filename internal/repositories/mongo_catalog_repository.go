package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maxtrack/internal/models"
)

// mongoCatalogRepository implements CatalogRepository using MongoDB
type mongoCatalogRepository struct {
	items  *mongo.Collection
	albums *mongo.Collection
}

// mediaItemDocument keys media items by kind and id, since track and video
// ids come from separate catalog namespaces
type mediaItemDocument struct {
	Key              string `bson:"_id"`
	models.MediaItem `bson:",inline"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

// NewMongoCatalogRepository creates a new MongoDB-backed catalog
func NewMongoCatalogRepository(db *models.Database) CatalogRepository {
	return &mongoCatalogRepository{
		items:  db.DB.Collection(models.MediaItemsCollection),
		albums: db.DB.Collection(models.AlbumsCollection),
	}
}

// FindMediaItem finds an item by id and kind
func (r *mongoCatalogRepository) FindMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	var doc mediaItemDocument
	err := r.items.FindOne(ctx, bson.M{"_id": mediaItemKey(id, kind)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find media item %s: %w", id, err)
	}
	return &doc.MediaItem, nil
}

// SaveMediaItem upserts an item
func (r *mongoCatalogRepository) SaveMediaItem(ctx context.Context, item *models.MediaItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("media item ID is required")
	}
	if item.Kind == "" {
		item.Kind = models.KindTrack
	}

	doc := mediaItemDocument{
		Key:       mediaItemKey(item.ID, item.Kind),
		MediaItem: *item,
		UpdatedAt: time.Now(),
	}
	_, err := r.items.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save media item %s: %w", item.ID, err)
	}
	return nil
}

// FindAlbum finds an album by id
func (r *mongoCatalogRepository) FindAlbum(ctx context.Context, id string) (*models.Album, error) {
	var album models.Album
	err := r.albums.FindOne(ctx, bson.M{"_id": id}).Decode(&album)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find album %s: %w", id, err)
	}
	return &album, nil
}

// SaveAlbum upserts an album
func (r *mongoCatalogRepository) SaveAlbum(ctx context.Context, album *models.Album) error {
	if album == nil || album.ID == "" {
		return fmt.Errorf("album ID is required")
	}

	_, err := r.albums.ReplaceOne(ctx, bson.M{"_id": album.ID}, album, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save album %s: %w", album.ID, err)
	}
	return nil
}

// Count returns document counts for both collections
func (r *mongoCatalogRepository) Count(ctx context.Context) (int64, int64, error) {
	items, err := r.items.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count media items: %w", err)
	}
	albums, err := r.albums.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return items, albums, nil
}
