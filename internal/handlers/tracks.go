package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maxtrack/internal/enrichment"
	"maxtrack/internal/handlers/render"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

// Entities resolves catalog entities, normally a *catalog.EntityCache
type Entities interface {
	Ensure(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error)
	EnsureAlbum(ctx context.Context, id string) (*models.Album, error)
}

// Enrichments hands out enrichment records, normally an *enrichment.Registry
type Enrichments interface {
	For(ctx context.Context, id string, kind models.MediaKind) (*enrichment.Record, error)
}

// Equivalents answers best-equivalent queries, normally a *resolver.Resolver
type Equivalents interface {
	BestHighQuality(ctx context.Context, id string) (*models.MediaItem, error)
	BestCurrent(ctx context.Context, id string) (*models.MediaItem, error)
	SelectForDownload(ctx context.Context, id string, useRealMax bool) (*models.MediaItem, error)
}

// TrackHandler serves catalog entities, their enrichment and their best
// equivalents
type TrackHandler struct {
	entities    Entities
	enrichments Enrichments
	equivalents Equivalents
	patterns    *services.URLPatternRegistry
	useRealMax  bool
}

// NewTrackHandler creates a new track handler. useRealMax is the default
// download preference when a request does not name one.
func NewTrackHandler(entities Entities, enrichments Enrichments, equivalents Equivalents, useRealMax bool) *TrackHandler {
	return &TrackHandler{
		entities:    entities,
		enrichments: enrichments,
		equivalents: equivalents,
		patterns:    services.NewURLPatternRegistry(),
		useRealMax:  useRealMax,
	}
}

// RegisterRoutes mounts the track routes on an API group
func (h *TrackHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/resolve", h.Resolve)
	api.GET("/tracks/:id", h.GetTrack)
	api.GET("/tracks/:id/enrichment", h.GetEnrichment)
	api.GET("/tracks/:id/lyrics", h.GetLyrics)
	api.GET("/tracks/:id/max", h.GetMax)
	api.GET("/tracks/:id/latest", h.GetLatest)
	api.GET("/tracks/:id/download", h.GetDownload)
	api.GET("/albums/:id", h.GetAlbum)
}

// Resolve handles GET /api/v1/resolve?ref=<id or catalog URL>
func (h *TrackHandler) Resolve(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing ref parameter"})
		return
	}

	entity, id, err := h.patterns.ParseItemReference(ref)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unsupported reference",
			"details": err.Error(),
		})
		return
	}

	switch entity {
	case services.EntityAlbum:
		album, err := h.entities.EnsureAlbum(c.Request.Context(), id)
		if err != nil {
			render.Error(c, "Failed to resolve album", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": entity, "album": render.Album(album)})
	default:
		kind := models.ParseMediaKind(string(entity))
		item, err := h.entities.Ensure(c.Request.Context(), id, kind)
		if err != nil {
			render.Error(c, "Failed to resolve "+string(kind), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": entity, string(kind): render.Track(item)})
	}
}

// GetTrack handles GET /api/v1/tracks/:id (?kind=video for videos)
func (h *TrackHandler) GetTrack(c *gin.Context) {
	kind := models.ParseMediaKind(c.Query("kind"))

	item, err := h.entities.Ensure(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		render.Error(c, "Failed to load "+string(kind), err)
		return
	}
	c.JSON(http.StatusOK, render.Track(item))
}

// GetAlbum handles GET /api/v1/albums/:id
func (h *TrackHandler) GetAlbum(c *gin.Context) {
	album, err := h.entities.EnsureAlbum(c.Request.Context(), c.Param("id"))
	if err != nil {
		render.Error(c, "Failed to load album", err)
		return
	}
	c.JSON(http.StatusOK, render.Album(album))
}

// GetEnrichment handles GET /api/v1/tracks/:id/enrichment
func (h *TrackHandler) GetEnrichment(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := h.enrichments.For(ctx, c.Param("id"), models.ParseMediaKind(c.Query("kind")))
	if err != nil {
		render.Error(c, "Failed to load track", err)
		return
	}

	isrcs, err := record.AlternateIDs(ctx)
	if err != nil {
		render.Error(c, "Failed to resolve identifiers", err)
		return
	}
	release, err := record.MatchedRelease(ctx)
	if err != nil {
		render.Error(c, "Failed to resolve release", err)
		return
	}
	releaseTrack, err := record.MatchedTrack(ctx)
	if err != nil {
		render.Error(c, "Failed to resolve release track", err)
		return
	}
	lyrics, err := record.Lyrics(ctx)
	if err != nil {
		render.Error(c, "Failed to load lyrics", err)
		return
	}

	c.JSON(http.StatusOK, render.EnrichmentResponse{
		Track:        render.Track(record.Item()),
		ISRCs:        isrcs,
		Release:      render.Release(release),
		ReleaseTrack: render.ReleaseTrack(releaseTrack),
		HasLyrics:    lyrics != nil,
		SyncedLyrics: lyrics.Synced(),
	})
}

// GetLyrics handles GET /api/v1/tracks/:id/lyrics
func (h *TrackHandler) GetLyrics(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := h.enrichments.For(ctx, c.Param("id"), models.KindTrack)
	if err != nil {
		render.Error(c, "Failed to load track", err)
		return
	}

	lyrics, err := record.Lyrics(ctx)
	if err != nil {
		render.Error(c, "Failed to load lyrics", err)
		return
	}
	if lyrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lyrics not available"})
		return
	}
	c.JSON(http.StatusOK, lyrics)
}

// GetMax handles GET /api/v1/tracks/:id/max
func (h *TrackHandler) GetMax(c *gin.Context) {
	id := c.Param("id")

	best, err := h.equivalents.BestHighQuality(c.Request.Context(), id)
	if err != nil {
		render.Error(c, "Failed to find high quality equivalent", err)
		return
	}
	render.Equivalent(c, id, "max", best)
}

// GetLatest handles GET /api/v1/tracks/:id/latest
func (h *TrackHandler) GetLatest(c *gin.Context) {
	id := c.Param("id")

	best, err := h.equivalents.BestCurrent(c.Request.Context(), id)
	if err != nil {
		render.Error(c, "Failed to find current equivalent", err)
		return
	}
	render.Equivalent(c, id, "latest", best)
}

// GetDownload handles GET /api/v1/tracks/:id/download (?real_max=true|false)
func (h *TrackHandler) GetDownload(c *gin.Context) {
	id := c.Param("id")

	useRealMax := h.useRealMax
	if v := c.Query("real_max"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid real_max parameter",
				"details": err.Error(),
			})
			return
		}
		useRealMax = parsed
	}

	item, err := h.equivalents.SelectForDownload(c.Request.Context(), id, useRealMax)
	if err != nil {
		render.Error(c, "Failed to select download", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source_id": id,
		"real_max":  useRealMax,
		"upgraded":  item.ID != id,
		"track":     render.Track(item),
	})
}
