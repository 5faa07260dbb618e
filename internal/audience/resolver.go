// Package audience computes destination token lists for tagged scopes.
package audience

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// Resolver maps an audience scope to a deduplicated token list by consulting
// the token store and, for admin scopes, the identity resolver. It only ever
// reads, so it is safe for concurrent use by simultaneous dispatch calls.
type Resolver struct {
	store    push.TokenStore
	identity push.IdentityResolver
}

func NewResolver(store push.TokenStore, identity push.IdentityResolver) *Resolver {
	return &Resolver{store: store, identity: identity}
}

// Resolve returns the destination tokens for scope, deduplicated with
// first-seen order preserved. An empty slice means "no recipients" and is
// not an error; store or identity failures propagate unmodified.
func (r *Resolver) Resolve(ctx context.Context, scope push.Scope) ([]string, error) {
	switch scope.Kind {
	case push.ScopeAllDevices:
		records, err := r.store.ListAllTokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing all tokens: %w", err)
		}
		return dedupe(records, nil), nil

	case push.ScopeAdmins:
		records, err := r.adminRecords(ctx)
		if err != nil {
			return nil, err
		}
		return dedupe(records, nil), nil

	case push.ScopeAdminsPlusUser:
		records, err := r.adminRecords(ctx)
		if err != nil {
			return nil, err
		}
		userRecords, err := r.store.ListTokensForUser(ctx, scope.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing tokens for user %s: %w", scope.UserID, err)
		}
		return dedupe(append(records, userRecords...), nil), nil

	case push.ScopeAdminsExcluding:
		records, err := r.adminRecords(ctx)
		if err != nil {
			return nil, err
		}
		excluded := make(map[uuid.UUID]struct{}, len(scope.Excluded))
		for _, id := range scope.Excluded {
			excluded[id] = struct{}{}
		}
		return dedupe(records, excluded), nil

	default:
		return nil, fmt.Errorf("unknown audience scope %d", scope.Kind)
	}
}

// adminRecords collects the token records of every admin user, in the order
// the identity resolver enumerates them.
func (r *Resolver) adminRecords(ctx context.Context) ([]push.DeviceToken, error) {
	adminIDs, err := r.identity.ListAdminUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing admin users: %w", err)
	}

	var records []push.DeviceToken
	for _, id := range adminIDs {
		userRecords, err := r.store.ListTokensForUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("listing tokens for admin %s: %w", id, err)
		}
		records = append(records, userRecords...)
	}
	return records, nil
}

// dedupe flattens records to their token strings, dropping duplicates while
// keeping the first occurrence, and filtering out excluded owners.
func dedupe(records []push.DeviceToken, excluded map[uuid.UUID]struct{}) []string {
	seen := make(map[string]struct{}, len(records))
	tokens := make([]string, 0, len(records))
	for _, rec := range records {
		if _, skip := excluded[rec.UserID]; skip {
			continue
		}
		if _, dup := seen[rec.Token]; dup {
			continue
		}
		seen[rec.Token] = struct{}{}
		tokens = append(tokens, rec.Token)
	}
	return tokens
}
