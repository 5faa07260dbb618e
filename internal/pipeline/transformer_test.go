package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamyfin/go-push-service/internal/pipeline"
	"github.com/streamyfin/go-push-service/pkg/push"
)

func TestDispatchRequestTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	validReq := pipeline.DispatchRequest{
		Scope: "admins",
		Notifications: []push.Notification{
			{Title: "New media", Body: "A movie was added"},
		},
	}
	validPayload, err := json.Marshal(validReq)
	require.NoError(t, err)

	unknownScopeReq := pipeline.DispatchRequest{
		Scope:         "everyone-and-their-dog",
		Notifications: []push.Notification{{Title: "x"}},
	}
	unknownScopePayload, err := json.Marshal(unknownScopeReq)
	require.NoError(t, err)

	emptyBatchReq := pipeline.DispatchRequest{Scope: "all"}
	emptyBatchPayload, err := json.Marshal(emptyBatchReq)
	require.NoError(t, err)

	testCases := []struct {
		name                  string
		inputMessage          *messagepipeline.Message
		expectError           bool
		expectedErrorContains string
	}{
		{
			name: "Happy Path - Valid Request",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: validPayload},
			},
			expectError: false,
		},
		{
			name: "Failure - Malformed JSON",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-2", Payload: []byte("not-json")},
			},
			expectError:           true,
			expectedErrorContains: "failed to unmarshal dispatch request",
		},
		{
			name: "Failure - Unknown Scope",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-3", Payload: unknownScopePayload},
			},
			expectError:           true,
			expectedErrorContains: "unknown scope",
		},
		{
			name: "Failure - Empty Notification Batch",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-4", Payload: emptyBatchPayload},
			},
			expectError:           true,
			expectedErrorContains: "no notifications",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, skip, err := pipeline.DispatchRequestTransformer(ctx, tc.inputMessage)

			if tc.expectError {
				require.Error(t, err)
				assert.True(t, skip)
				assert.Contains(t, err.Error(), tc.expectedErrorContains)
			} else {
				assert.NoError(t, err)
				assert.False(t, skip)
			}
		})
	}
}

func TestDispatchRequest_AudienceScope(t *testing.T) {
	excluded := uuid.New()

	scope, err := (&pipeline.DispatchRequest{Scope: "all"}).AudienceScope()
	require.NoError(t, err)
	assert.Equal(t, push.ScopeAllDevices, scope.Kind)

	scope, err = (&pipeline.DispatchRequest{Scope: "admins"}).AudienceScope()
	require.NoError(t, err)
	assert.Equal(t, push.ScopeAdmins, scope.Kind)

	scope, err = (&pipeline.DispatchRequest{
		Scope:           "admins_excluding",
		ExcludedUserIDs: []uuid.UUID{excluded},
	}).AudienceScope()
	require.NoError(t, err)
	assert.Equal(t, push.ScopeAdminsExcluding, scope.Kind)
	assert.Equal(t, []uuid.UUID{excluded}, scope.Excluded)
}
