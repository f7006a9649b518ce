package notes

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the interface for notes persistence.
//
// Implementations translate their driver-level "no documents" condition to
// ErrNoteNotFound; everything else comes back verbatim and is classified as a
// transport failure by the service.
type Repository interface {
	Insert(ctx context.Context, n *Note) error

	// Get fetches a note by id with no owner filter. The service layer is
	// responsible for the ownership decision on reads.
	Get(ctx context.Context, noteID bson.ObjectID) (*Note, error)

	// ListByOwner returns all notes of one owner, updated_at descending.
	ListByOwner(ctx context.Context, ownerID bson.ObjectID) ([]*Note, error)

	// Update replaces title, content and color of the note matching both id
	// and owner, bumping updated_at. A note owned by someone else behaves
	// exactly like a missing note.
	Update(ctx context.Context, ownerID, noteID bson.ObjectID, title, content, color string) (*Note, error)

	// Delete removes the note matching both id and owner.
	Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error

	// SearchByTitlePrefix returns the owner's notes whose title falls in the
	// half-open range [prefix, prefix+""), title ascending.
	SearchByTitlePrefix(ctx context.Context, ownerID bson.ObjectID, prefix string) ([]*Note, error)
}
