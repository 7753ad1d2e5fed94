package draft

import (
	"sync"

	"github.com/google/uuid"
)

// Locks serialises read-modify-write cycles on a draft within one process.
// Requests for different drafts never wait on each other. The zero value
// is ready to use.
type Locks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*draftLock
}

type draftLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the caller holds the lock of draft id and returns the
// func that releases it.
func (l *Locks) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*draftLock)
	}
	dl, ok := l.locks[id]
	if !ok {
		dl = &draftLock{}
		l.locks[id] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			dl.mu.Unlock()

			l.mu.Lock()
			dl.refs--
			if dl.refs == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns how many drafts are locked or waited on.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
