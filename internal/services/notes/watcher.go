package notes

import (
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Subscription is a live watch over one owner's notes. Every time the
// owner's note set changes, the full current snapshot (updated_at descending)
// arrives on Snapshots. Failures of the snapshot re-query arrive on Errs.
//
// Cancel releases the watch and is safe to call more than once; after the
// first call Done is closed and no further snapshots are delivered.
type Subscription struct {
	id        ulid.ULID
	ownerID   bson.ObjectID
	snapshots chan []*Note
	errs      chan error
	done      chan struct{}
	once      sync.Once
	detach    func()
}

// Snapshots delivers the full note list after every matching change.
func (s *Subscription) Snapshots() <-chan []*Note { return s.snapshots }

// Errs delivers snapshot refresh failures.
func (s *Subscription) Errs() <-chan error { return s.errs }

// Done is closed when the subscription is released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel releases the server-side watch. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.detach()
		close(s.done)
	})
}

// Watchers fans full-result snapshots out to every subscription of an owner.
// Slow consumers never block a mutation: when a subscription's buffer is full
// the push is dropped and counted, the next push carries the newer state
// anyway.
type Watchers struct {
	mu      sync.RWMutex
	buckets map[bson.ObjectID]map[ulid.ULID]*Subscription
	buffer  int
	dropped uint64
}

// NewWatchers creates a watcher registry with the given per-subscription
// channel buffer.
func NewWatchers(buffer int) *Watchers {
	return &Watchers{
		buckets: make(map[bson.ObjectID]map[ulid.ULID]*Subscription),
		buffer:  buffer,
	}
}

// Attach registers a new subscription for ownerID.
func (w *Watchers) Attach(ownerID bson.ObjectID) *Subscription {
	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)

	sub := &Subscription{
		id:        id,
		ownerID:   ownerID,
		snapshots: make(chan []*Note, w.buffer),
		errs:      make(chan error, w.buffer),
		done:      make(chan struct{}),
	}
	sub.detach = func() { w.remove(ownerID, id) }

	w.mu.Lock()
	bucket, ok := w.buckets[ownerID]
	if !ok {
		bucket = make(map[ulid.ULID]*Subscription)
		w.buckets[ownerID] = bucket
	}
	bucket[id] = sub
	w.mu.Unlock()

	return sub
}

func (w *Watchers) remove(ownerID bson.ObjectID, id ulid.ULID) {
	w.mu.Lock()
	if bucket, ok := w.buckets[ownerID]; ok {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(w.buckets, ownerID)
		}
	}
	w.mu.Unlock()
}

// Active reports whether ownerID has at least one live subscription.
// Mutations skip the snapshot re-query entirely when nobody is watching.
func (w *Watchers) Active(ownerID bson.ObjectID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.buckets[ownerID]) > 0
}

// Push delivers snapshot to every subscription of ownerID.
func (w *Watchers) Push(ownerID bson.ObjectID, snapshot []*Note) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, sub := range w.buckets[ownerID] {
		select {
		case sub.snapshots <- snapshot:
		default:
			atomic.AddUint64(&w.dropped, 1)
		}
	}
}

// PushError delivers a snapshot refresh failure to every subscription of
// ownerID.
func (w *Watchers) PushError(ownerID bson.ObjectID, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, sub := range w.buckets[ownerID] {
		select {
		case sub.errs <- err:
		default:
			atomic.AddUint64(&w.dropped, 1)
		}
	}
}

// Stats returns the current subscription count and the number of dropped
// pushes, for observability and tests.
func (w *Watchers) Stats() (subscriptions int, dropped uint64) {
	w.mu.RLock()
	for _, bucket := range w.buckets {
		subscriptions += len(bucket)
	}
	w.mu.RUnlock()
	return subscriptions, atomic.LoadUint64(&w.dropped)
}
