package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"maxtrack/internal/cache"
	"maxtrack/internal/models"
	"maxtrack/internal/repositories"
)

// StatsSource reports memoizer counters, keyed by memoizer name
type StatsSource interface {
	Stats() map[string]cache.GroupStats
}

// AdminHandler handles administrative requests
type AdminHandler struct {
	store    repositories.CatalogRepository
	database *models.Database
	sources  []StatsSource
	requests func() int64
}

// NewAdminHandler creates a new admin handler. database may be nil when the
// catalog is held in memory; requests reports outbound metadata requests
// and may be nil.
func NewAdminHandler(store repositories.CatalogRepository, database *models.Database, requests func() int64, sources ...StatsSource) *AdminHandler {
	return &AdminHandler{
		store:    store,
		database: database,
		sources:  sources,
		requests: requests,
	}
}

// AdminStats is the response of the stats endpoint
type AdminStats struct {
	MediaItems       int64                       `json:"media_items"`
	Albums           int64                       `json:"albums"`
	MetadataRequests int64                       `json:"metadata_requests"`
	Memoizers        map[string]cache.GroupStats `json:"memoizers"`
	Database         *DatabaseStats              `json:"database,omitempty"`
	LastUpdated      time.Time                   `json:"last_updated"`
}

// DatabaseStats represents database statistics
type DatabaseStats struct {
	DatabaseName   string            `json:"database_name"`
	TotalSize      float64           `json:"total_size_mb"`
	StorageSize    float64           `json:"storage_size_mb"`
	IndexSize      float64           `json:"index_size_mb"`
	TotalDocuments int64             `json:"total_documents"`
	Collections    []CollectionStats `json:"collections"`
}

// CollectionStats represents statistics for a single collection
type CollectionStats struct {
	Name        string  `json:"name"`
	Documents   int64   `json:"documents"`
	DataSize    float64 `json:"data_size_mb"`
	StorageSize float64 `json:"storage_size_mb"`
	IndexSize   float64 `json:"index_size_mb"`
	AvgDocSize  float64 `json:"avg_doc_size_bytes"`
}

// RegisterRoutes mounts the admin routes on an API group
func (h *AdminHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/admin/stats", h.GetStats)
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	items, albums, err := h.store.Count(ctx)
	if err != nil {
		slog.Error("Failed to count catalog entities", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to collect catalog statistics",
		})
		return
	}

	stats := AdminStats{
		MediaItems:  items,
		Albums:      albums,
		Memoizers:   make(map[string]cache.GroupStats),
		LastUpdated: time.Now(),
	}
	if h.requests != nil {
		stats.MetadataRequests = h.requests()
	}
	for _, source := range h.sources {
		for name, s := range source.Stats() {
			stats.Memoizers[name] = s
		}
	}

	if h.database != nil {
		dbStats, err := h.collectDatabaseStats(ctx)
		if err != nil {
			slog.Warn("Failed to collect database stats", "error", err)
		} else {
			stats.Database = dbStats
		}
	}

	c.JSON(http.StatusOK, stats)
}

// collectDatabaseStats collects storage statistics for the catalog database
func (h *AdminHandler) collectDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	database := h.database.DB

	var dbStats bson.M
	if err := database.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	stats := &DatabaseStats{
		DatabaseName:   database.Name(),
		TotalSize:      megabytes(dbStats["dataSize"]),
		StorageSize:    megabytes(dbStats["storageSize"]),
		IndexSize:      megabytes(dbStats["indexSize"]),
		TotalDocuments: toInt64(dbStats["objects"]),
	}

	for _, collName := range []string{models.MediaItemsCollection, models.AlbumsCollection} {
		var collStats bson.M
		err := database.RunCommand(ctx, bson.D{{Key: "collStats", Value: collName}}).Decode(&collStats)
		if err != nil {
			slog.Warn("Failed to get collection stats", "collection", collName, "error", err)
			continue
		}

		collectionStat := CollectionStats{
			Name:        collName,
			Documents:   toInt64(collStats["count"]),
			DataSize:    megabytes(collStats["size"]),
			StorageSize: megabytes(collStats["storageSize"]),
			IndexSize:   megabytes(collStats["totalIndexSize"]),
		}
		if collectionStat.Documents > 0 && collectionStat.DataSize > 0 {
			collectionStat.AvgDocSize = (collectionStat.DataSize * 1024 * 1024) / float64(collectionStat.Documents)
		}

		stats.Collections = append(stats.Collections, collectionStat)
	}

	return stats, nil
}

// toInt64 reads a numeric stats field, which the server reports as int32,
// int64 or double depending on magnitude
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func megabytes(v interface{}) float64 {
	return float64(toInt64(v)) / 1024 / 1024
}
