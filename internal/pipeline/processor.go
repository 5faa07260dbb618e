package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// Sender is what the processor needs from the dispatcher.
type Sender interface {
	Dispatch(ctx context.Context, scope push.Scope, notifications ...push.Notification) (*push.DeliveryResponse, error)
}

// NewProcessor creates the pipeline stage that hands validated dispatch
// requests to the dispatcher.
func NewProcessor(
	dispatcher Sender,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[DispatchRequest] {

	return func(ctx context.Context, original messagepipeline.Message, request *DispatchRequest) error {
		procLogger := logger.With(
			"scope", request.Scope,
			"pubsub_msg_id", original.ID,
		)

		scope, err := request.AudienceScope()
		if err != nil {
			// The transformer already validated the scope; treat this as a
			// dropped message rather than a retry loop.
			procLogger.Error("Rejecting request with invalid scope", "err", err)
			return nil
		}

		resp, err := dispatcher.Dispatch(ctx, scope, request.Notifications...)
		if err != nil {
			procLogger.Error("Dispatch failed", "err", err)
			return err // Retryable
		}

		if resp == nil {
			procLogger.Info("Dispatch skipped: no recipients")
			return nil
		}

		procLogger.Info("Dispatch complete", "notifications", len(request.Notifications), "tickets", len(resp.Data))
		return nil
	}
}
