package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the keys.
	Del(ctx context.Context, keys ...string) error
}

// CachedTokenStore is a decorator that adds read-aside caching to any
// TokenStore. Every write invalidates the affected keys so a device that
// unregisters stops receiving notifications immediately.
type CachedTokenStore struct {
	realStore push.TokenStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedTokenStore(realStore push.TokenStore, cache CacheClient, ttl time.Duration) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATHS (Read-Aside) ---

func (s *CachedTokenStore) ListAllTokens(ctx context.Context) ([]push.DeviceToken, error) {
	return s.fetch(ctx, allKey(), func() ([]push.DeviceToken, error) {
		return s.realStore.ListAllTokens(ctx)
	})
}

func (s *CachedTokenStore) ListTokensForUser(ctx context.Context, userID uuid.UUID) ([]push.DeviceToken, error) {
	return s.fetch(ctx, userKey(userID), func() ([]push.DeviceToken, error) {
		return s.realStore.ListTokensForUser(ctx, userID)
	})
}

// GetTokenForDevice always reads through; single-record lookups are not on
// the dispatch hot path.
func (s *CachedTokenStore) GetTokenForDevice(ctx context.Context, deviceID uuid.UUID) (*push.DeviceToken, error) {
	return s.realStore.GetTokenForDevice(ctx, deviceID)
}

func (s *CachedTokenStore) fetch(ctx context.Context, key string, load func() ([]push.DeviceToken, error)) ([]push.DeviceToken, error) {
	var cached []push.DeviceToken
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := load()
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction; if Redis is down we
	// just serve from the real store.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)
	return fresh, nil
}

// --- WRITE PATHS (Invalidate-on-Write) ---

func (s *CachedTokenStore) UpsertDeviceToken(ctx context.Context, token push.DeviceToken) (push.DeviceToken, error) {
	stored, err := s.realStore.UpsertDeviceToken(ctx, token)
	if err != nil {
		return push.DeviceToken{}, err
	}
	return stored, s.invalidate(ctx, stored.UserID)
}

// DeleteTokenForDevice looks the record up first so the owning user's cache
// entry can be invalidated along with the all-devices listing.
func (s *CachedTokenStore) DeleteTokenForDevice(ctx context.Context, deviceID uuid.UUID) error {
	existing, err := s.realStore.GetTokenForDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := s.realStore.DeleteTokenForDevice(ctx, deviceID); err != nil {
		return err
	}

	if existing == nil {
		return s.cache.Del(ctx, allKey())
	}
	return s.invalidate(ctx, existing.UserID)
}

// --- Helpers ---

func (s *CachedTokenStore) invalidate(ctx context.Context, userID uuid.UUID) error {
	// The next listing is forced back to the real store. This keeps
	// "disable notifications" immediate even with a long TTL.
	return s.cache.Del(ctx, userKey(userID), allKey())
}

func userKey(userID uuid.UUID) string {
	return fmt.Sprintf("push:tokens:user:%s", userID)
}

func allKey() string {
	return "push:tokens:all"
}
