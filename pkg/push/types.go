// Package push contains the public domain model and interfaces for the
// Expo push dispatch service: device tokens, audience scopes, outbound
// envelopes and the gateway's delivery response.
package push

import (
	"time"

	"github.com/google/uuid"
)

// DeviceToken is one registered push destination. There is at most one
// record per physical device; re-registering the same device replaces the
// stored token and refreshes the timestamp.
type DeviceToken struct {
	DeviceID  uuid.UUID `json:"device_id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is the caller-supplied content for one notification. It is
// transient and exists only for the duration of a dispatch call.
type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`

	// TargetUserID optionally names one user whose devices should receive
	// this notification in addition to the admin audience. Only honoured
	// under the Admins scope.
	TargetUserID *uuid.UUID `json:"target_user_id,omitempty"`
}

// Envelope is one notification bundled with its resolved destination list,
// ready for wire encoding. The JSON field names are the Expo push API's
// documented schema and must not change.
type Envelope struct {
	To    []string       `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// DeliveryResponse is the gateway's decoded reply. The service decodes it
// and hands it back to the caller verbatim; it never inspects the
// per-destination ticket statuses itself.
type DeliveryResponse struct {
	Data   []PushTicket   `json:"data,omitempty"`
	Errors []GatewayError `json:"errors,omitempty"`
}

// PushTicket is one per-destination entry in the gateway response.
type PushTicket struct {
	Status  string         `json:"status,omitempty"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// GatewayError is a request-level error reported by the gateway.
type GatewayError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ScopeKind tags the audience selection rule of a Scope.
type ScopeKind int

const (
	// ScopeAllDevices targets every registered device.
	ScopeAllDevices ScopeKind = iota
	// ScopeAdmins targets the devices of users flagged admin.
	ScopeAdmins
	// ScopeAdminsPlusUser targets admin devices plus one user's devices.
	ScopeAdminsPlusUser
	// ScopeAdminsExcluding targets admin devices minus an excluded user set.
	ScopeAdminsExcluding
)

// Scope is a tagged audience selector. It replaces the overload-shaped
// entry points of older revisions with one explicit, testable variant.
type Scope struct {
	Kind     ScopeKind
	UserID   uuid.UUID   // set for ScopeAdminsPlusUser
	Excluded []uuid.UUID // set for ScopeAdminsExcluding
}

// AllDevices selects every token in the store.
func AllDevices() Scope {
	return Scope{Kind: ScopeAllDevices}
}

// Admins selects the tokens of users flagged admin.
func Admins() Scope {
	return Scope{Kind: ScopeAdmins}
}

// AdminsPlusUser selects admin tokens unioned with one user's tokens.
func AdminsPlusUser(userID uuid.UUID) Scope {
	return Scope{Kind: ScopeAdminsPlusUser, UserID: userID}
}

// AdminsExcluding selects admin tokens whose owners are not in the
// excluded set.
func AdminsExcluding(excluded ...uuid.UUID) Scope {
	return Scope{Kind: ScopeAdminsExcluding, Excluded: excluded}
}

func (k ScopeKind) String() string {
	switch k {
	case ScopeAllDevices:
		return "all"
	case ScopeAdmins:
		return "admins"
	case ScopeAdminsPlusUser:
		return "admins_plus_user"
	case ScopeAdminsExcluding:
		return "admins_excluding"
	default:
		return "unknown"
	}
}
