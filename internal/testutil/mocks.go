package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"maxtrack/internal/models"
)

// MockCatalogRepository is a mock implementation of CatalogRepository for testing
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	args := m.Called(ctx, id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MediaItem), args.Error(1)
}

func (m *MockCatalogRepository) SaveMediaItem(ctx context.Context, item *models.MediaItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCatalogRepository) FindAlbum(ctx context.Context, id string) (*models.Album, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1)
}

func (m *MockCatalogRepository) SaveAlbum(ctx context.Context, album *models.Album) error {
	args := m.Called(ctx, album)
	return args.Error(0)
}

func (m *MockCatalogRepository) Count(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// Helper functions for setting up common mock expectations

// ExpectFindMediaItem sets up expectation for FindMediaItem
func ExpectFindMediaItem(mockRepo *MockCatalogRepository, id string, kind models.MediaKind, item *models.MediaItem, err error) {
	mockRepo.On("FindMediaItem", mock.Anything, id, kind).Return(item, err)
}

// ExpectSaveMediaItem sets up expectation for SaveMediaItem of any item
func ExpectSaveMediaItem(mockRepo *MockCatalogRepository, err error) {
	mockRepo.On("SaveMediaItem", mock.Anything, mock.AnythingOfType("*models.MediaItem")).Return(err)
}

// ExpectFindAlbum sets up expectation for FindAlbum
func ExpectFindAlbum(mockRepo *MockCatalogRepository, id string, album *models.Album, err error) {
	mockRepo.On("FindAlbum", mock.Anything, id).Return(album, err)
}
