package push

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher is the public entry point for sending notifications. It
// resolves the audience for a scope, attaches the destinations to each
// notification and forwards the batch to the delivery client.
//
// A Dispatcher holds no mutable state; concurrent Dispatch calls are
// independent and each builds its own envelopes.
type Dispatcher struct {
	audience AudienceResolver
	delivery DeliveryClient
	logger   *slog.Logger
}

// NewDispatcher assembles a dispatcher. The logger may be nil, in which
// case dispatch attempts are not logged.
func NewDispatcher(audience AudienceResolver, delivery DeliveryClient, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		audience: audience,
		delivery: delivery,
		logger:   logger.With("component", "Dispatcher"),
	}
}

// Dispatch resolves the audience for scope and sends every notification in
// the batch to it. Under the Admins scope, a notification carrying a
// TargetUserID additionally reaches that user's devices.
//
// When the resolved audience is empty no network call is made and the
// returned response is nil. A nil response with a nil error always means
// "no recipients", never "delivered".
func (d *Dispatcher) Dispatch(ctx context.Context, scope Scope, notifications ...Notification) (*DeliveryResponse, error) {
	if len(notifications) == 0 {
		return nil, nil
	}
	d.logger.Info("Attempting to send notifications", "count", len(notifications), "scope", scope.Kind.String())

	base, err := d.audience.Resolve(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("audience resolution failed: %w", err)
	}
	if len(base) == 0 {
		d.logger.Info("No recipients found", "scope", scope.Kind.String())
		return nil, nil
	}

	envelopes := make([]Envelope, 0, len(notifications))
	for _, n := range notifications {
		to := base
		if scope.Kind == ScopeAdmins && n.TargetUserID != nil {
			to, err = d.audience.Resolve(ctx, AdminsPlusUser(*n.TargetUserID))
			if err != nil {
				return nil, fmt.Errorf("audience resolution failed: %w", err)
			}
		}
		envelopes = append(envelopes, Envelope{
			To:    to,
			Title: n.Title,
			Body:  n.Body,
			Data:  n.Data,
		})
	}

	return d.Send(ctx, envelopes...)
}

// Send forwards envelopes whose destinations are already attached. It is
// the final stage Dispatch delegates to, and is exported for callers that
// resolve audiences themselves.
func (d *Dispatcher) Send(ctx context.Context, envelopes ...Envelope) (*DeliveryResponse, error) {
	if len(envelopes) == 0 {
		return nil, nil
	}

	resp, err := d.delivery.Send(ctx, envelopes)
	if err != nil {
		return nil, fmt.Errorf("delivery failed: %w", err)
	}

	tickets := 0
	if resp != nil {
		tickets = len(resp.Data)
	}
	d.logger.Info("Notifications sent", "envelopes", len(envelopes), "tickets", tickets)
	return resp, nil
}
