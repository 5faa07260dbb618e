// Package memory provides an in-memory TokenStore. It is the reference
// implementation of the upsert contract and backs unit tests and local runs
// that have no Firestore project.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// TokenStore keeps one record per device ID, guarded for concurrent reads
// from simultaneous dispatch calls.
type TokenStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]push.DeviceToken
	order   []uuid.UUID // insertion order for stable listings
	now     func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		records: make(map[uuid.UUID]push.DeviceToken),
		now:     time.Now,
	}
}

// UpsertDeviceToken replaces any previous record for the device and
// refreshes the timestamp.
func (s *TokenStore) UpsertDeviceToken(_ context.Context, token push.DeviceToken) (push.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token.Timestamp = s.now().UTC()
	if _, exists := s.records[token.DeviceID]; !exists {
		s.order = append(s.order, token.DeviceID)
	}
	s.records[token.DeviceID] = token
	return token, nil
}

func (s *TokenStore) GetTokenForDevice(_ context.Context, deviceID uuid.UUID) (*push.DeviceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[deviceID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *TokenStore) ListAllTokens(_ context.Context) ([]push.DeviceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]push.DeviceToken, 0, len(s.order))
	for _, id := range s.order {
		if rec, ok := s.records[id]; ok {
			tokens = append(tokens, rec)
		}
	}
	return tokens, nil
}

func (s *TokenStore) ListTokensForUser(_ context.Context, userID uuid.UUID) ([]push.DeviceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens []push.DeviceToken
	for _, id := range s.order {
		if rec, ok := s.records[id]; ok && rec.UserID == userID {
			tokens = append(tokens, rec)
		}
	}
	return tokens, nil
}

func (s *TokenStore) DeleteTokenForDevice(_ context.Context, deviceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[deviceID]; !exists {
		return nil
	}
	delete(s.records, deviceID)
	for i, id := range s.order {
		if id == deviceID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
