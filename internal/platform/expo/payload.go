// Package expo is the client for Expo's push delivery gateway.
package expo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// EncodeBatch serializes envelopes into the JSON array the gateway expects.
// The output is deterministic for identical input; field names come from the
// envelope's JSON tags and follow the gateway's documented schema exactly.
func EncodeBatch(envelopes []push.Envelope) ([]byte, error) {
	body, err := json.Marshal(envelopes)
	if err != nil {
		return nil, fmt.Errorf("encoding push batch: %w", err)
	}
	return body, nil
}

// DecodeResponse reads the gateway's JSON reply into a DeliveryResponse.
// The structure is gateway-defined and passed through to the caller as-is.
func DecodeResponse(r io.Reader) (*push.DeliveryResponse, error) {
	var resp push.DeliveryResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}
	return &resp, nil
}
