package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const usersCollection = "users"

// IdentityResolver enumerates admin users from the host's user directory,
// mirrored into a Firestore collection where each user document carries an
// is_admin flag.
type IdentityResolver struct {
	client *firestore.Client
}

func NewIdentityResolver(client *firestore.Client) *IdentityResolver {
	return &IdentityResolver{client: client}
}

func (r *IdentityResolver) ListAdminUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	iter := r.client.Collection(usersCollection).
		Where("is_admin", "==", true).
		Documents(ctx)
	defer iter.Stop()

	var ids []uuid.UUID
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		// The document ID is the user's UUID; anything else is a corrupt
		// row and is skipped.
		id, err := uuid.Parse(doc.Ref.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
