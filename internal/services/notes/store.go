package notes

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CurrentUser reports the identity store operations are scoped to.
// The auth session implements it; tests use a stub.
type CurrentUser interface {
	CurrentUserID() (bson.ObjectID, bool)
}

// Store binds the notes service to a single signed-in user, the way a client
// session sees the note collection. Every operation resolves the current user
// first and fails with ErrUnauthenticated when nobody is signed in; the layer
// never retries on its own.
type Store struct {
	svc *Service
	who CurrentUser
}

// NewStore creates a store scoped to the given identity source.
func NewStore(svc *Service, who CurrentUser) *Store {
	return &Store{svc: svc, who: who}
}

// Create persists a new note owned by the current user and returns the
// generated id.
func (st *Store) Create(ctx context.Context, title, content, color string) (bson.ObjectID, error) {
	ownerID, ok := st.who.CurrentUserID()
	if !ok {
		return bson.ObjectID{}, ErrUnauthenticated
	}
	note, err := st.svc.Create(ctx, ownerID, CreateNoteRequest{Title: title, Content: content, Color: color})
	if err != nil {
		return bson.ObjectID{}, err
	}
	return note.ID, nil
}

// ListForCurrentUser returns all notes of the current user, updated_at
// descending.
func (st *Store) ListForCurrentUser(ctx context.Context) ([]*Note, error) {
	ownerID, ok := st.who.CurrentUserID()
	if !ok {
		return nil, ErrUnauthenticated
	}
	return st.svc.List(ctx, ownerID)
}

// GetByID fetches one of the current user's notes. Missing and foreign-owned
// notes are both reported as ErrNoteNotFound.
func (st *Store) GetByID(ctx context.Context, noteID bson.ObjectID) (*Note, error) {
	ownerID, ok := st.who.CurrentUserID()
	if !ok {
		return nil, ErrUnauthenticated
	}
	return st.svc.Get(ctx, ownerID, noteID)
}

// Update replaces title, content and color of one of the current user's
// notes and bumps its updated_at.
func (st *Store) Update(ctx context.Context, noteID bson.ObjectID, title, content, color string) error {
	ownerID, ok := st.who.CurrentUserID()
	if !ok {
		return ErrUnauthenticated
	}
	_, err := st.svc.Update(ctx, ownerID, noteID, UpdateNoteRequest{Title: title, Content: content, Color: color})
	return err
}

// Delete verifies ownership with a read first, propagating its failure, then
// deletes the note.
func (st *Store) Delete(ctx context.Context, noteID bson.ObjectID) error {
	if _, err := st.GetByID(ctx, noteID); err != nil {
		return err
	}
	ownerID, _ := st.who.CurrentUserID()
	return st.svc.Delete(ctx, ownerID, noteID)
}

// Search returns the current user's notes whose title starts with q, title
// ascending. An empty q matches every note.
func (st *Store) Search(ctx context.Context, q string) ([]*Note, error) {
	ownerID, ok := st.who.CurrentUserID()
	if !ok {
		return nil, ErrUnauthenticated
	}
	return st.svc.Search(ctx, ownerID, q)
}

// Subscribe opens a live watch over the current user's notes, or returns nil
// when nobody is signed in.
func (st *Store) Subscribe(ctx context.Context) *Subscription {
	ownerID, ok := st.who.CurrentUserID()
	if !ok {
		return nil
	}
	return st.svc.Subscribe(ctx, ownerID)
}
