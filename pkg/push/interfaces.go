package push

import (
	"context"

	"github.com/google/uuid"
)

// TokenStore defines the contract for device token persistence. The
// dispatch path only ever reads; writes come from the registration API.
type TokenStore interface {
	// UpsertDeviceToken adds or replaces the token for a device and
	// returns the stored record with its refreshed timestamp.
	UpsertDeviceToken(ctx context.Context, token DeviceToken) (DeviceToken, error)

	// GetTokenForDevice returns the record for a device, or nil when the
	// device has no registered token.
	GetTokenForDevice(ctx context.Context, deviceID uuid.UUID) (*DeviceToken, error)

	// ListAllTokens returns every registered token.
	ListAllTokens(ctx context.Context) ([]DeviceToken, error)

	// ListTokensForUser returns the tokens owned by one user.
	ListTokensForUser(ctx context.Context, userID uuid.UUID) ([]DeviceToken, error)

	// DeleteTokenForDevice removes a device's token. Deleting an unknown
	// device is not an error.
	DeleteTokenForDevice(ctx context.Context, deviceID uuid.UUID) error
}

// IdentityResolver enumerates the users flagged as administrators of the
// host system.
type IdentityResolver interface {
	ListAdminUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AudienceResolver computes the deduplicated destination token list for a
// scope. An empty result means "no recipients" and is not an error.
type AudienceResolver interface {
	Resolve(ctx context.Context, scope Scope) ([]string, error)
}

// DeliveryClient performs the network exchange with the push gateway. One
// call is one HTTPS request; the client never retries.
type DeliveryClient interface {
	// Send delivers the batch and returns the gateway's reply. A nil error
	// means a reply was received and decoded; the response is non-nil in
	// that case.
	Send(ctx context.Context, envelopes []Envelope) (*DeliveryResponse, error)
}
