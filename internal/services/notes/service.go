package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notesync/internal/utils/sanitize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service implements the owner-scoped note operations: CRUD, prefix search
// and the live snapshot subscription. All ownership enforcement lives here
// and in the repository filters; transports pass user ids through untouched.
type Service struct {
	repo     Repository
	watchers *Watchers
	log      *slog.Logger
}

// NewService creates a new notes service
func NewService(repo Repository, watchers *Watchers, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		watchers: watchers,
		log:      log,
	}
}

// Create persists a new note for ownerID and returns it with the generated id
// and both timestamps set to now.
func (s *Service) Create(ctx context.Context, ownerID bson.ObjectID, req CreateNoteRequest) (*Note, error) {
	color := req.Color
	if color == "" {
		color = DefaultColor
	}

	now := time.Now().UTC()
	note := &Note{
		ID:        bson.NewObjectID(),
		OwnerID:   ownerID,
		Title:     sanitize.Clean(req.Title),
		Content:   sanitize.Clean(req.Content),
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, note); err != nil {
		s.log.Error("failed to create note", "error", err, "owner_id", ownerID.Hex())
		return nil, transportErr(err)
	}

	s.refresh(ctx, ownerID)

	return note, nil
}

// List returns all notes of ownerID, most recently touched first.
func (s *Service) List(ctx context.Context, ownerID bson.ObjectID) ([]*Note, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error("failed to list notes", "error", err, "owner_id", ownerID.Hex())
		return nil, transportErr(err)
	}
	if list == nil {
		list = []*Note{}
	}
	return list, nil
}

// Get fetches a single note. A note owned by someone else is reported as
// ErrNoteNotFound, identical to a missing one, so callers cannot probe for
// the existence of foreign notes.
func (s *Service) Get(ctx context.Context, ownerID, noteID bson.ObjectID) (*Note, error) {
	note, err := s.repo.Get(ctx, noteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error("failed to get note", "error", err, "owner_id", ownerID.Hex(), "note_id", noteID.Hex())
		return nil, transportErr(err)
	}
	if note.OwnerID != ownerID {
		s.log.Info("note owned by another user", "owner_id", ownerID.Hex(), "note_id", noteID.Hex())
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// Update replaces the note's title, content and color and bumps updated_at.
// Ownership is part of the write filter, so updating someone else's note is
// indistinguishable from updating a missing one.
func (s *Service) Update(ctx context.Context, ownerID, noteID bson.ObjectID, req UpdateNoteRequest) (*Note, error) {
	color := req.Color
	if color == "" {
		color = DefaultColor
	}

	note, err := s.repo.Update(ctx, ownerID, noteID, sanitize.Clean(req.Title), sanitize.Clean(req.Content), color)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for update", "owner_id", ownerID.Hex(), "note_id", noteID.Hex())
			return nil, ErrNoteNotFound
		}
		s.log.Error("failed to update note", "error", err, "owner_id", ownerID.Hex(), "note_id", noteID.Hex())
		return nil, transportErr(err)
	}

	s.refresh(ctx, ownerID)

	return note, nil
}

// Delete removes a note belonging to ownerID.
func (s *Service) Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error {
	if err := s.repo.Delete(ctx, ownerID, noteID); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for delete", "owner_id", ownerID.Hex(), "note_id", noteID.Hex())
			return ErrNoteNotFound
		}
		s.log.Error("failed to delete note", "error", err, "owner_id", ownerID.Hex(), "note_id", noteID.Hex())
		return transportErr(err)
	}

	s.refresh(ctx, ownerID)

	return nil
}

// Search returns the owner's notes whose title starts with q, title ascending.
// An empty q matches every note.
func (s *Service) Search(ctx context.Context, ownerID bson.ObjectID, q string) ([]*Note, error) {
	list, err := s.repo.SearchByTitlePrefix(ctx, ownerID, q)
	if err != nil {
		s.log.Error("failed to search notes", "error", err, "owner_id", ownerID.Hex())
		return nil, transportErr(err)
	}
	if list == nil {
		list = []*Note{}
	}
	return list, nil
}

// Subscribe opens a live watch over ownerID's notes. The current snapshot is
// delivered immediately, then again after every matching change. The caller
// must Cancel the subscription when its owning scope ends.
func (s *Service) Subscribe(ctx context.Context, ownerID bson.ObjectID) *Subscription {
	sub := s.watchers.Attach(ownerID)
	s.refresh(ctx, ownerID)
	return sub
}

// refresh re-queries the owner's full snapshot and pushes it to all live
// subscriptions. Runs on a context detached from the mutation's cancellation
// so a caller giving up right after a successful write cannot starve other
// watchers of the update.
func (s *Service) refresh(ctx context.Context, ownerID bson.ObjectID) {
	if !s.watchers.Active(ownerID) {
		return
	}

	snapshot, err := s.repo.ListByOwner(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		s.log.Error("snapshot refresh failed", "error", err, "owner_id", ownerID.Hex())
		s.watchers.PushError(ownerID, transportErr(err))
		return
	}
	if snapshot == nil {
		snapshot = []*Note{}
	}
	s.watchers.Push(ownerID, snapshot)
}

func transportErr(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
