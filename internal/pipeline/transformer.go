// Package pipeline contains the message processing components that feed the
// dispatcher from the ingestion subscription.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// DispatchRequest is the wire shape of one inbound dispatch message: an
// audience scope plus a batch of notification contents.
type DispatchRequest struct {
	Scope           string              `json:"scope"` // "all" | "admins" | "admins_excluding"
	ExcludedUserIDs []uuid.UUID         `json:"excluded_user_ids,omitempty"`
	Notifications   []push.Notification `json:"notifications"`
}

// AudienceScope maps the wire scope onto the tagged domain variant.
func (r *DispatchRequest) AudienceScope() (push.Scope, error) {
	switch r.Scope {
	case "all":
		return push.AllDevices(), nil
	case "admins":
		return push.Admins(), nil
	case "admins_excluding":
		return push.AdminsExcluding(r.ExcludedUserIDs...), nil
	default:
		return push.Scope{}, fmt.Errorf("unknown scope %q", r.Scope)
	}
}

// DispatchRequestTransformer safely unmarshals and validates a raw message
// payload into a DispatchRequest.
//
// On failure it returns skip=true so the StreamingService can handle the
// Nack/DLQ logic instead of looping on a poison message.
func DispatchRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*DispatchRequest, bool, error) {
	var req DispatchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal dispatch request from message %s: %w", msg.ID, err)
	}

	if _, err := req.AudienceScope(); err != nil {
		return nil, true, fmt.Errorf("dispatch request %s rejected: %w", msg.ID, err)
	}
	if len(req.Notifications) == 0 {
		return nil, true, fmt.Errorf("dispatch request %s rejected: no notifications", msg.ID)
	}

	return &req, false, nil
}
