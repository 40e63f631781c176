package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"maxtrack/internal/cache"
	"maxtrack/internal/events"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

// ErrTrackCountMismatch marks a barcode match whose disc track count
// disagrees with the album. Such matches are treated as absent.
var ErrTrackCountMismatch = errors.New("release track count does not match album")

// errAbsent settles a field as resolved with no value
var errAbsent = fmt.Errorf("enrichment: %w", cache.ErrNotFound)

// incompleteError carries a field value computed while an external lookup
// failed. Callers see the value, but the group does not memoize it, so the
// next access looks again.
type incompleteError struct {
	value any
	cause error
}

func (e *incompleteError) Error() string {
	return "enrichment incomplete: " + e.cause.Error()
}

func (e *incompleteError) Unwrap() error {
	return e.cause
}

// outcome collects failed lookups during one field computation
type outcome struct {
	cause error
}

// absorb records an incomplete result and clears it; any other error is
// returned unchanged
func (o *outcome) absorb(err error) error {
	var incomplete *incompleteError
	if errors.As(err, &incomplete) {
		if o.cause == nil {
			o.cause = incomplete.cause
		}
		return nil
	}
	return err
}

// absent settles the field empty unless a lookup failed on the way
func (o *outcome) absent() error {
	if o.cause != nil {
		return &incompleteError{cause: o.cause}
	}
	return errAbsent
}

// found returns value, left unsettled when a lookup failed on the way
func found[V any](o *outcome, value V) (V, error) {
	if o.cause != nil {
		return value, &incompleteError{value: value, cause: o.cause}
	}
	return value, nil
}

// lyricsTimeout bounds the wait for a lyrics confirmation
const lyricsTimeout = 30 * time.Second

// Record aggregates cross-source identity facts for one media item. Every
// field is computed on first request and then fixed for the lifetime of the
// registry; a field that resolves to nothing stays absent.
//
// Failed external lookups degrade the field to absent and are logged at
// WARN. Such a field is not kept, and neither is any field derived from it,
// so the next access retries the lookup. Only the caller's own context
// cancellation is returned as an error.
type Record struct {
	key      recordKey
	item     *models.MediaItem
	registry *Registry
}

// ID returns the media item id
func (r *Record) ID() string {
	return r.key.ID
}

// Item returns the media item the record was created for
func (r *Record) Item() *models.MediaItem {
	return r.item
}

// AlternateIDs returns the ISRCs known for the item: the matched recording's
// most recent ISRC first, then the item's own. The slice may be empty and
// must not be modified.
func (r *Record) AlternateIDs(ctx context.Context) ([]string, error) {
	return resolve(ctx, r.registry.alternateIDs, r.key, r.computeAlternateIDs)
}

// AlternateIDsComplete is AlternateIDs that also reports whether every
// lookup behind the identifiers succeeded. An incomplete set may be missing
// the matched recording's ISRC.
func (r *Record) AlternateIDsComplete(ctx context.Context) ([]string, bool, error) {
	ids, err := lookup(ctx, r.registry.alternateIDs, r.key, r.computeAlternateIDs)
	var incomplete *incompleteError
	if errors.As(err, &incomplete) {
		return ids, false, nil
	}
	return ids, true, err
}

// MatchedRelease returns the external release carrying the album's barcode,
// or nil when there is none or it fails validation
func (r *Record) MatchedRelease(ctx context.Context) (*services.MBRelease, error) {
	return resolve(ctx, r.registry.releases, r.key, r.computeMatchedRelease)
}

// MatchedTrack returns the external release track for the item, or nil
func (r *Record) MatchedTrack(ctx context.Context) (*services.MBTrack, error) {
	return resolve(ctx, r.registry.tracks, r.key, r.computeMatchedTrack)
}

// Lyrics returns the lyrics delivered by the host for the item, or nil
func (r *Record) Lyrics(ctx context.Context) (*models.Lyrics, error) {
	return resolve(ctx, r.registry.lyrics, r.key, r.computeLyrics)
}

// Album returns the item's album from the entity cache, or nil when the item
// has no album or the album does not exist
func (r *Record) Album(ctx context.Context) (*models.Album, error) {
	if r.item.AlbumID == "" {
		return nil, nil
	}
	album, err := r.registry.entities.EnsureAlbum(ctx, r.item.AlbumID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	return album, err
}

// resolve reads a memoized field, mapping settled absence to a nil value and
// an incomplete result to the value it carries
func resolve[V any](ctx context.Context, g *cache.Group[recordKey, V], key recordKey, compute func(context.Context) (V, error)) (V, error) {
	value, err := lookup(ctx, g, key, compute)
	var incomplete *incompleteError
	if errors.As(err, &incomplete) {
		return value, nil
	}
	return value, err
}

// lookup is resolve for fields derived from other fields: an incomplete
// result keeps its error so the dependent field is not kept either
func lookup[V any](ctx context.Context, g *cache.Group[recordKey, V], key recordKey, compute func(context.Context) (V, error)) (V, error) {
	value, err := g.GetOrCompute(ctx, key, compute)
	var (
		zero       V
		incomplete *incompleteError
	)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return zero, nil
	case errors.As(err, &incomplete):
		value, _ := incomplete.value.(V)
		return value, err
	}
	return value, err
}

func (r *Record) computeAlternateIDs(ctx context.Context) ([]string, error) {
	var o outcome
	ids := make([]string, 0, 2)

	track, err := lookup(ctx, r.registry.tracks, r.key, r.computeMatchedTrack)
	if err := o.absorb(err); err != nil {
		return nil, err
	}
	if track != nil {
		if isrc := track.Recording.LastISRC(); isrc != "" {
			ids = append(ids, isrc)
		}
	}

	if r.item.ISRC != "" && !slices.Contains(ids, r.item.ISRC) {
		ids = append(ids, r.item.ISRC)
	}
	return found(&o, ids)
}

func (r *Record) computeMatchedRelease(ctx context.Context) (*services.MBRelease, error) {
	metadata := r.registry.metadata
	if metadata == nil || r.item.AlbumID == "" {
		return nil, errAbsent
	}

	album, err := r.registry.entities.EnsureAlbum(ctx, r.item.AlbumID)
	if err != nil {
		return nil, r.lookupFailed("catalog.album", err)
	}
	if album.UPC == "" {
		return nil, errAbsent
	}

	releases, err := metadata.ReleasesByBarcode(ctx, album.UPC)
	if err != nil {
		return nil, r.lookupFailed("musicbrainz.barcode_releases", err)
	}
	if len(releases) == 0 {
		return nil, errAbsent
	}
	release := &releases[0]

	// Catalogs sometimes carry the wrong barcode; a disagreeing disc length
	// gives that away
	if r.registry.matching.TrackCountCheck() {
		volume, _ := r.item.TrackPosition()
		if medium := release.Medium(volume); medium != nil && medium.TrackCount > 0 && album.NumberOfTracks > 0 &&
			medium.TrackCount != album.NumberOfTracks {
			slog.Warn("Invalid UPC for album",
				"album_id", album.ID,
				"upc", album.UPC,
				"release_id", release.ID,
				"album_tracks", album.NumberOfTracks,
				"release_tracks", medium.TrackCount)
			return nil, fmt.Errorf("%w: %w", errAbsent, ErrTrackCountMismatch)
		}
	}

	return release, nil
}

func (r *Record) computeMatchedTrack(ctx context.Context) (*services.MBTrack, error) {
	metadata := r.registry.metadata
	if metadata == nil {
		return nil, errAbsent
	}

	var o outcome
	if r.item.ISRC != "" {
		recordings, err := metadata.RecordingsByISRC(ctx, r.item.ISRC)
		if err != nil {
			if err := o.absorb(r.lookupFailed("musicbrainz.isrc_recordings", err)); err != nil && !errors.Is(err, errAbsent) {
				return nil, err
			}
		} else if len(recordings) > 0 {
			track, err := r.trackFromRecording(ctx, &recordings[0])
			if err := o.absorb(err); err != nil {
				return nil, err
			}
			if track != nil {
				return track, nil
			}
		}
	}

	release, err := lookup(ctx, r.registry.releases, r.key, r.computeMatchedRelease)
	if err := o.absorb(err); err != nil {
		return nil, err
	}
	if release == nil {
		return nil, o.absent()
	}

	detail, err := metadata.Release(ctx, release.ID)
	if err != nil {
		if err := o.absorb(r.lookupFailed("musicbrainz.release", err)); err != nil && !errors.Is(err, errAbsent) {
			return nil, err
		}
		return nil, o.absent()
	}

	volume, number := r.item.TrackPosition()
	track := detail.TrackAt(volume, number)
	if track == nil {
		return nil, o.absent()
	}

	// Prefer the same recording on a release in the preferred language
	if detail.Language() != r.registry.preferredLanguage() && track.Recording != nil {
		preferred, err := r.trackFromRecording(ctx, track.Recording)
		if err := o.absorb(err); err != nil {
			return nil, err
		}
		if preferred != nil {
			return found(&o, preferred)
		}
	}

	return found(&o, track)
}

// trackFromRecording fetches a recording's releases and returns the first
// track of the first medium of the release in the preferred language, or of
// the first release. It returns nil when nothing usable was found.
func (r *Record) trackFromRecording(ctx context.Context, recording *services.MBRecording) (*services.MBTrack, error) {
	detail, err := r.registry.metadata.Recording(ctx, recording.ID)
	if err != nil {
		if err := r.lookupFailed("musicbrainz.recording", err); !errors.Is(err, errAbsent) {
			return nil, err
		}
		return nil, nil
	}
	if len(detail.Releases) == 0 {
		return nil, nil
	}

	release := &detail.Releases[0]
	language := r.registry.preferredLanguage()
	for i := range detail.Releases {
		if detail.Releases[i].Language() == language {
			release = &detail.Releases[i]
			break
		}
	}

	medium := release.Medium(1)
	if medium == nil || len(medium.Tracks) == 0 {
		return nil, nil
	}

	track := medium.Tracks[0]
	if track.Recording == nil {
		track.Recording = recording
	}
	return &track, nil
}

func (r *Record) computeLyrics(ctx context.Context) (*models.Lyrics, error) {
	if r.registry.bus == nil {
		return nil, errAbsent
	}

	ctx, cancel := context.WithTimeout(ctx, lyricsTimeout)
	defer cancel()

	lyrics, err := events.LoadItemLyrics(ctx, r.registry.bus, r.item.ID)
	if err != nil {
		slog.Debug("No lyrics for item", "item_id", r.item.ID, "error", err)
		return nil, errAbsent
	}
	return lyrics, nil
}

// lookupFailed classifies a failed external call. An authoritative miss
// settles as absent; any other failure is logged and becomes an incomplete
// result that is not kept. Cancellation is passed through.
func (r *Record) lookupFailed(call string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, cache.ErrNotFound) {
		slog.Debug("External lookup found nothing", "context", call, "item_id", r.item.ID)
		return errAbsent
	}
	slog.Warn("External lookup failed", "context", call, "item_id", r.item.ID, "error", err)
	return &incompleteError{cause: fmt.Errorf("%s: %w", call, err)}
}
