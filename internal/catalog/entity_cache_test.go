package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"maxtrack/internal/models"
	"maxtrack/internal/repositories"
	"maxtrack/internal/services"
	"maxtrack/internal/testutil"
)

// fakeSource serves entities from maps and counts calls
type fakeSource struct {
	items  map[string]*models.MediaItem
	albums map[string]*models.Album
	err    error
	delay  time.Duration

	itemCalls  atomic.Int64
	albumCalls atomic.Int64
}

func (f *fakeSource) GetMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	f.itemCalls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[string(kind)+":"+id]
	if !ok {
		return nil, &services.PlatformError{Platform: "tidal", Operation: "get_" + string(kind), Err: services.ErrNotFound}
	}
	return item, nil
}

func (f *fakeSource) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	f.albumCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	album, ok := f.albums[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return album, nil
}

func TestEntityCache_StoreFirst(t *testing.T) {
	store := repositories.NewMemoryCatalogRepository()
	require.NoError(t, store.SaveMediaItem(context.Background(), &models.MediaItem{ID: "1", Kind: models.KindTrack, Title: "Stored"}))
	source := &fakeSource{}

	c := NewEntityCache(store, source)

	item, err := c.EnsureTrack(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Stored", item.Title)
	assert.Equal(t, int64(0), source.itemCalls.Load())
}

func TestEntityCache_FetchesAndStoresMissing(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryCatalogRepository()
	source := &fakeSource{items: map[string]*models.MediaItem{
		"track:2": {ID: "2", Kind: models.KindTrack, Title: "Fetched"},
		"video:2": {ID: "2", Kind: models.KindVideo, Title: "Clip"},
	}}

	c := NewEntityCache(store, source)

	item, err := c.EnsureTrack(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Fetched", item.Title)

	// Same id, other kind is a separate entry
	video, err := c.EnsureVideo(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Clip", video.Title)

	stored, err := store.FindMediaItem(ctx, "2", models.KindTrack)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Fetched", stored.Title)

	// Memoized: no further source calls
	_, err = c.EnsureTrack(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.itemCalls.Load())
}

func TestEntityCache_AbsenceIsTerminal(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{items: map[string]*models.MediaItem{}}
	c := NewEntityCache(repositories.NewMemoryCatalogRepository(), source)

	for i := 0; i < 3; i++ {
		_, err := c.EnsureTrack(ctx, "missing")
		require.Error(t, err)
		assert.True(t, IsAbsent(err))
	}
	assert.Equal(t, int64(1), source.itemCalls.Load())
	assert.Equal(t, 1, c.Stats()["media_items"].Negatives)
}

func TestEntityCache_TransientFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		items: map[string]*models.MediaItem{"track:3": {ID: "3", Kind: models.KindTrack}},
		err:   errors.New("connection reset"),
	}
	c := NewEntityCache(repositories.NewMemoryCatalogRepository(), source)

	_, err := c.EnsureTrack(ctx, "3")
	require.Error(t, err)
	assert.False(t, IsAbsent(err))

	source.err = nil
	item, err := c.EnsureTrack(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", item.ID)
	assert.Equal(t, int64(2), source.itemCalls.Load())
}

func TestEntityCache_ConcurrentEnsureFetchesOnce(t *testing.T) {
	source := &fakeSource{
		items: map[string]*models.MediaItem{"track:4": {ID: "4", Kind: models.KindTrack}},
		delay: 20 * time.Millisecond,
	}
	c := NewEntityCache(repositories.NewMemoryCatalogRepository(), source)

	var wg sync.WaitGroup
	results := make([]*models.MediaItem, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, err := c.EnsureTrack(context.Background(), "4")
			assert.NoError(t, err)
			results[i] = item
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), source.itemCalls.Load())
	for _, item := range results {
		assert.Same(t, results[0], item)
	}
}

func TestEntityCache_EnsureAlbum(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryCatalogRepository()
	source := &fakeSource{albums: map[string]*models.Album{"10": {ID: "10", UPC: "123", NumberOfTracks: 9}}}
	c := NewEntityCache(store, source)

	album, err := c.EnsureAlbum(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "123", album.UPC)

	_, err = c.EnsureAlbum(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), source.albumCalls.Load())

	saved, err := store.FindAlbum(ctx, "10")
	require.NoError(t, err)
	require.NotNil(t, saved)

	_, err = c.EnsureAlbum(ctx, "11")
	assert.True(t, IsAbsent(err))
	_, err = c.EnsureAlbum(ctx, "")
	assert.True(t, IsAbsent(err))
}

func TestEntityCache_WithoutSource(t *testing.T) {
	c := NewEntityCache(repositories.NewMemoryCatalogRepository(), nil)

	_, err := c.EnsureTrack(context.Background(), "1")
	assert.True(t, IsAbsent(err))
	_, err = c.EnsureAlbum(context.Background(), "1")
	assert.True(t, IsAbsent(err))
}

func TestEntityCache_StoreErrorIsRetried(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MockCatalogRepository{}
	store.On("FindMediaItem", mock.Anything, testutil.TestTrackID1, models.KindTrack).
		Return(nil, errors.New("connection reset")).Once()
	testutil.ExpectFindMediaItem(store, testutil.TestTrackID1, models.KindTrack, testutil.CreateTestTrack(), nil)
	source := &fakeSource{}

	c := NewEntityCache(store, source)

	_, err := c.EnsureTrack(ctx, testutil.TestTrackID1)
	require.Error(t, err)
	assert.False(t, IsAbsent(err))

	item, err := c.EnsureTrack(ctx, testutil.TestTrackID1)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestISRC1, item.ISRC)
	assert.Equal(t, int64(0), source.itemCalls.Load())
	store.AssertExpectations(t)
}

func TestEntityCache_SaveFailureStillReturnsEntity(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MockCatalogRepository{}
	testutil.ExpectFindMediaItem(store, testutil.TestTrackID2, models.KindTrack, nil, nil)
	testutil.ExpectSaveMediaItem(store, errors.New("read-only"))
	source := &fakeSource{items: map[string]*models.MediaItem{
		"track:" + testutil.TestTrackID2: testutil.NewMediaItemBuilder().WithID(testutil.TestTrackID2).Build(),
	}}

	c := NewEntityCache(store, source)

	item, err := c.EnsureTrack(ctx, testutil.TestTrackID2)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestTrackID2, item.ID)

	// Memoized, so the store is not consulted again
	_, err = c.EnsureTrack(ctx, testutil.TestTrackID2)
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "FindMediaItem", 1)
	store.AssertNumberOfCalls(t, "SaveMediaItem", 1)
}
