package store

import (
	"sync"

	"github.com/google/uuid"
)

// feed fans change batches out to subscribers. Backends enqueue a batch
// while still holding the lock that ordered the write, then flush after
// releasing it, so listeners see batches in write order and may call back
// into the store.
type feed struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]Listener

	qmu        sync.Mutex
	pending    []ChangeSet
	delivering bool
}

// Subscribe registers l and returns a func that removes it.
func (f *feed) Subscribe(l Listener) (cancel func()) {
	id := uuid.New()
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[uuid.UUID]Listener)
	}
	f.subs[id] = l
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// enqueue records a batch for delivery. Empty batches are dropped.
func (f *feed) enqueue(changes ChangeSet) {
	if len(changes) == 0 {
		return
	}
	f.qmu.Lock()
	f.pending = append(f.pending, changes)
	f.qmu.Unlock()
}

// flush delivers pending batches in order. Only one goroutine delivers at a
// time; a flush that finds delivery in progress leaves its batches to it.
func (f *feed) flush() {
	f.qmu.Lock()
	if f.delivering {
		f.qmu.Unlock()
		return
	}
	f.delivering = true
	f.qmu.Unlock()

	done := false
	defer func() {
		// A panicking listener must not wedge delivery.
		if !done {
			f.qmu.Lock()
			f.delivering = false
			f.qmu.Unlock()
		}
	}()

	for {
		f.qmu.Lock()
		if len(f.pending) == 0 {
			f.delivering = false
			f.qmu.Unlock()
			done = true
			return
		}
		changes := f.pending[0]
		f.pending[0] = nil
		f.pending = f.pending[1:]
		f.qmu.Unlock()

		f.deliver(changes)
	}
}

func (f *feed) deliver(changes ChangeSet) {
	f.mu.RLock()
	listeners := make([]Listener, 0, len(f.subs))
	for _, l := range f.subs {
		listeners = append(listeners, l)
	}
	f.mu.RUnlock()

	for _, l := range listeners {
		l(changes)
	}
}
