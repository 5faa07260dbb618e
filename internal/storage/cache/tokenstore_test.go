package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/streamyfin/go-push-service/internal/storage/cache"
	"github.com/streamyfin/go-push-service/pkg/push"
)

// --- Mocks ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

type MockRealStore struct {
	mock.Mock
}

func (m *MockRealStore) UpsertDeviceToken(ctx context.Context, token push.DeviceToken) (push.DeviceToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(push.DeviceToken), args.Error(1)
}
func (m *MockRealStore) GetTokenForDevice(ctx context.Context, deviceID uuid.UUID) (*push.DeviceToken, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.DeviceToken), args.Error(1)
}
func (m *MockRealStore) ListAllTokens(ctx context.Context) ([]push.DeviceToken, error) {
	args := m.Called(ctx)
	return args.Get(0).([]push.DeviceToken), args.Error(1)
}
func (m *MockRealStore) ListTokensForUser(ctx context.Context, userID uuid.UUID) ([]push.DeviceToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]push.DeviceToken), args.Error(1)
}
func (m *MockRealStore) DeleteTokenForDevice(ctx context.Context, deviceID uuid.UUID) error {
	return m.Called(ctx, deviceID).Error(0)
}

func TestCachedStore_ReadAside(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	userKey := "push:tokens:user:" + userID.String()

	t.Run("Miss falls back to real store and refills cache", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, 1*time.Hour)

		fresh := []push.DeviceToken{{DeviceID: uuid.New(), UserID: userID, Token: "tok"}}

		mockCache.On("Get", ctx, userKey, mock.Anything).Return(assert.AnError) // Error implies miss
		mockDB.On("ListTokensForUser", ctx, userID).Return(fresh, nil)
		mockCache.On("Set", ctx, userKey, fresh, mock.Anything).Return(nil)

		tokens, err := store.ListTokensForUser(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, fresh, tokens)
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Hit never touches the real store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, 1*time.Hour)

		mockCache.On("Get", ctx, "push:tokens:all", mock.Anything).Return(nil)

		_, err := store.ListAllTokens(ctx)

		require.NoError(t, err)
		mockDB.AssertNotCalled(t, "ListAllTokens")
	})
}

func TestCachedStore_ImmediateInvalidation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	deviceID := uuid.New()
	userKey := "push:tokens:user:" + userID.String()

	t.Run("Upsert invalidates user and all-devices keys", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, 1*time.Hour)

		record := push.DeviceToken{DeviceID: deviceID, UserID: userID, Token: "tok"}
		mockDB.On("UpsertDeviceToken", ctx, record).Return(record, nil)
		mockCache.On("Del", ctx, []string{userKey, "push:tokens:all"}).Return(nil)

		_, err := store.UpsertDeviceToken(ctx, record)

		require.NoError(t, err)
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Delete invalidates the owner's key immediately", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, 1*time.Hour)

		existing := &push.DeviceToken{DeviceID: deviceID, UserID: userID, Token: "tok"}
		mockDB.On("GetTokenForDevice", ctx, deviceID).Return(existing, nil)
		mockDB.On("DeleteTokenForDevice", ctx, deviceID).Return(nil)
		// Crucial: the cache delete must happen so the device stops
		// receiving notifications right away.
		mockCache.On("Del", ctx, []string{userKey, "push:tokens:all"}).Return(nil)

		err := store.DeleteTokenForDevice(ctx, deviceID)

		require.NoError(t, err)
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Delete of unknown device still invalidates listings", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, 1*time.Hour)

		mockDB.On("GetTokenForDevice", ctx, deviceID).Return(nil, nil)
		mockDB.On("DeleteTokenForDevice", ctx, deviceID).Return(nil)
		mockCache.On("Del", ctx, []string{"push:tokens:all"}).Return(nil)

		err := store.DeleteTokenForDevice(ctx, deviceID)

		require.NoError(t, err)
		mockCache.AssertExpectations(t)
	})
}
