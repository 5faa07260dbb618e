// Package firestore implements token persistence and admin identity lookup
// on Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/streamyfin/go-push-service/pkg/push"
)

const tokensCollection = "device_tokens"

// TokenStore implements push.TokenStore using Firestore.
type TokenStore struct {
	client *firestore.Client
}

func NewTokenStore(client *firestore.Client) *TokenStore {
	return &TokenStore{client: client}
}

// tokenRecord is the internal DB representation.
type tokenRecord struct {
	DeviceID  string    `firestore:"device_id"`
	UserID    string    `firestore:"user_id"`
	Token     string    `firestore:"token"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// UpsertDeviceToken writes the record under the device's own ID, so a
// re-registration from the same device replaces the prior token instead of
// appending a second one.
func (s *TokenStore) UpsertDeviceToken(ctx context.Context, token push.DeviceToken) (push.DeviceToken, error) {
	token.Timestamp = time.Now().UTC()
	record := tokenRecord{
		DeviceID:  token.DeviceID.String(),
		UserID:    token.UserID.String(),
		Token:     token.Token,
		UpdatedAt: token.Timestamp,
	}

	if _, err := s.deviceRef(token.DeviceID).Set(ctx, record); err != nil {
		return push.DeviceToken{}, fmt.Errorf("upserting token for device %s: %w", token.DeviceID, err)
	}
	return token, nil
}

func (s *TokenStore) GetTokenForDevice(ctx context.Context, deviceID uuid.UUID) (*push.DeviceToken, error) {
	doc, err := s.deviceRef(deviceID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching token for device %s: %w", deviceID, err)
	}

	token, err := docToToken(doc)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *TokenStore) ListAllTokens(ctx context.Context) ([]push.DeviceToken, error) {
	iter := s.client.Collection(tokensCollection).OrderBy("updated_at", firestore.Asc).Documents(ctx)
	return collectTokens(iter)
}

func (s *TokenStore) ListTokensForUser(ctx context.Context, userID uuid.UUID) ([]push.DeviceToken, error) {
	iter := s.client.Collection(tokensCollection).
		Where("user_id", "==", userID.String()).
		Documents(ctx)
	return collectTokens(iter)
}

func (s *TokenStore) DeleteTokenForDevice(ctx context.Context, deviceID uuid.UUID) error {
	if _, err := s.deviceRef(deviceID).Delete(ctx); err != nil {
		return fmt.Errorf("deleting token for device %s: %w", deviceID, err)
	}
	return nil
}

// --- Helpers ---

func (s *TokenStore) deviceRef(deviceID uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(tokensCollection).Doc(deviceID.String())
}

func collectTokens(iter *firestore.DocumentIterator) ([]push.DeviceToken, error) {
	defer iter.Stop()

	var tokens []push.DeviceToken
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		token, err := docToToken(doc)
		if err != nil {
			// Corrupt rows are skipped rather than failing the whole listing.
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func docToToken(doc *firestore.DocumentSnapshot) (push.DeviceToken, error) {
	var record tokenRecord
	if err := doc.DataTo(&record); err != nil {
		return push.DeviceToken{}, fmt.Errorf("decoding token record %s: %w", doc.Ref.ID, err)
	}

	deviceID, err := uuid.Parse(record.DeviceID)
	if err != nil {
		return push.DeviceToken{}, fmt.Errorf("record %s has invalid device id: %w", doc.Ref.ID, err)
	}
	userID, err := uuid.Parse(record.UserID)
	if err != nil {
		return push.DeviceToken{}, fmt.Errorf("record %s has invalid user id: %w", doc.Ref.ID, err)
	}

	return push.DeviceToken{
		DeviceID:  deviceID,
		UserID:    userID,
		Token:     record.Token,
		Timestamp: record.UpdatedAt,
	}, nil
}
