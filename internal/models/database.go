package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the host catalog store
const (
	MediaItemsCollection = "media_items"
	AlbumsCollection     = "albums"
)

// Database represents the database connection
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewDatabase creates a new database connection
func NewDatabase(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Database{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// CreateIndexes creates the lookup indexes for the catalog collections
func (d *Database) CreateIndexes(ctx context.Context) error {
	items := d.DB.Collection(MediaItemsCollection)
	_, err := items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "isrc", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "album_id", Value: 1}, {Key: "volume_number", Value: 1}, {Key: "track_number", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	albums := d.DB.Collection(AlbumsCollection)
	_, err = albums.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "upc", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	return err
}
