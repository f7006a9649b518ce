// Package syncstate holds the client-visible note list and drives it from the
// store's live subscription. The subscription is authoritative: a successful
// create/update/delete never touches the visible list directly, the next
// snapshot push does. This trades a short latency window for freedom from
// lost-update races between completion handlers and pushes.
package syncstate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"notesync/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MsgEmptyNote is surfaced when both title and content are blank.
const MsgEmptyNote = "Note cannot be empty"

// Store defines the slice of the note store the state holder consumes.
type Store interface {
	Create(ctx context.Context, title, content, color string) (bson.ObjectID, error)
	Update(ctx context.Context, noteID bson.ObjectID, title, content, color string) error
	Delete(ctx context.Context, noteID bson.ObjectID) error
	GetByID(ctx context.Context, noteID bson.ObjectID) (*notes.Note, error)
	Search(ctx context.Context, q string) ([]*notes.Note, error)
	Subscribe(ctx context.Context) *notes.Subscription
}

// Snapshot is the read-only view of the state holder.
type Snapshot struct {
	Notes        []*notes.Note
	IsLoading    bool
	ErrorMessage string
	Selected     *notes.Note
}

// State owns the visible note list, loading flag, error message and the
// currently open note. All transitions funnel through a single writer
// goroutine; readers take a consistent copy via State().
type State struct {
	store Store
	log   *slog.Logger

	ops       chan func()
	closed    chan struct{}
	closeOnce sync.Once
	sub       *notes.Subscription

	mu  sync.RWMutex
	cur Snapshot
}

// New constructs the state holder and immediately subscribes to the store.
// When nobody is signed in the subscription is nil and the list stays empty
// until the holder is rebuilt under an authenticated session.
// Callers must Close the holder when its owning scope ends.
func New(ctx context.Context, store Store, log *slog.Logger) *State {
	s := &State{
		store:  store,
		log:    log,
		ops:    make(chan func()),
		closed: make(chan struct{}),
		cur:    Snapshot{Notes: []*notes.Note{}},
	}
	s.sub = store.Subscribe(ctx)
	go s.run()
	return s
}

// State returns the current snapshot.
func (s *State) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// run is the single writer. Subscription pushes and operation transitions are
// serialized here; nothing else mutates cur.
func (s *State) run() {
	var snapshots <-chan []*notes.Note
	var errs <-chan error
	if s.sub != nil {
		snapshots = s.sub.Snapshots()
		errs = s.sub.Errs()
	}

	for {
		select {
		case fn := <-s.ops:
			fn()
		case snap := <-snapshots:
			// The push replaces the list wholesale; never nil.
			if snap == nil {
				snap = []*notes.Note{}
			}
			s.write(func(c *Snapshot) { c.Notes = snap })
		case err := <-errs:
			s.log.Warn("live subscription error", "error", err)
			s.write(func(c *Snapshot) { c.ErrorMessage = err.Error() })
		case <-s.closed:
			return
		}
	}
}

func (s *State) write(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.cur)
	s.mu.Unlock()
}

// apply runs fn on the writer goroutine and waits for it to complete.
func (s *State) apply(fn func(*Snapshot)) {
	done := make(chan struct{})
	select {
	case s.ops <- func() {
		s.write(fn)
		close(done)
	}:
		<-done
	case <-s.closed:
	}
}

func (s *State) begin() {
	s.apply(func(c *Snapshot) {
		c.IsLoading = true
		c.ErrorMessage = ""
	})
}

func (s *State) finish(err error) {
	s.apply(func(c *Snapshot) {
		if err != nil {
			c.ErrorMessage = err.Error()
		}
		c.IsLoading = false
	})
}

func blank(title, content string) bool {
	return strings.TrimSpace(title) == "" && strings.TrimSpace(content) == ""
}

// CreateNote validates and creates a note. The visible list is refreshed by
// the subscription push, not here.
func (s *State) CreateNote(ctx context.Context, title, content, color string) {
	if blank(title, content) {
		s.apply(func(c *Snapshot) { c.ErrorMessage = MsgEmptyNote })
		return
	}

	s.begin()
	_, err := s.store.Create(ctx, title, content, color)
	s.finish(err)
}

// UpdateNote validates and updates a note.
func (s *State) UpdateNote(ctx context.Context, noteID bson.ObjectID, title, content, color string) {
	if blank(title, content) {
		s.apply(func(c *Snapshot) { c.ErrorMessage = MsgEmptyNote })
		return
	}

	s.begin()
	err := s.store.Update(ctx, noteID, title, content, color)
	s.finish(err)
}

// DeleteNote deletes a note.
func (s *State) DeleteNote(ctx context.Context, noteID bson.ObjectID) {
	s.begin()
	err := s.store.Delete(ctx, noteID)
	s.finish(err)
}

// LoadNote fetches a note into Selected. On failure Selected is left
// untouched and the failure lands in ErrorMessage.
func (s *State) LoadNote(ctx context.Context, noteID bson.ObjectID) {
	s.begin()
	note, err := s.store.GetByID(ctx, noteID)
	if err == nil {
		s.apply(func(c *Snapshot) { c.Selected = note })
	}
	s.finish(err)
}

// SearchNotes runs a title prefix search and hands the result to onResult.
// It does not touch Notes or IsLoading; on failure onResult receives an empty
// list and the failure lands in ErrorMessage.
func (s *State) SearchNotes(ctx context.Context, q string, onResult func([]*notes.Note)) {
	results, err := s.store.Search(ctx, q)
	if err != nil {
		s.apply(func(c *Snapshot) { c.ErrorMessage = err.Error() })
		onResult([]*notes.Note{})
		return
	}
	onResult(results)
}

// ClearError resets the error message. Local only, no backend call.
func (s *State) ClearError() {
	s.apply(func(c *Snapshot) { c.ErrorMessage = "" })
}

// ClearSelectedNote resets the currently open note. Local only.
func (s *State) ClearSelectedNote() {
	s.apply(func(c *Snapshot) { c.Selected = nil })
}

// Close releases the live subscription and stops the writer goroutine.
// Idempotent; a missed release would leak a server-side watch, a double
// release is harmless.
func (s *State) Close() {
	s.closeOnce.Do(func() {
		if s.sub != nil {
			s.sub.Cancel()
		}
		close(s.closed)
	})
}
