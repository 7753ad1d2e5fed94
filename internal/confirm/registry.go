package confirm

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Target identifies the record a dialog would delete.
type Target struct {
	Resource string
	ID       string
	Label    string

	// ReturnTo is the page shown once the record is gone.
	ReturnTo string
}

type entry struct {
	dialog *Dialog
	target Target
	owner  [sha256.Size]byte
	opened time.Time
}

// Registry keeps the open dialogs of every operator, keyed by a random
// token rendered into the modal. A token can be confirmed at most once,
// and only by the operator who opened it. Operators are identified by
// their access token, of which only a hash is kept.
type Registry struct {
	mu      sync.Mutex
	dialogs map[string]*entry
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		dialogs: make(map[string]*entry),
		now:     time.Now,
	}
}

// Open creates and opens a dialog for target on behalf of owner and
// returns its token.
func (r *Registry) Open(owner string, target Target, deleter Deleter) string {
	d := NewDialog(deleter)
	d.Open()

	token := uuid.NewString()
	r.mu.Lock()
	r.dialogs[token] = &entry{dialog: d, target: target, owner: sha256.Sum256([]byte(owner)), opened: r.now()}
	r.mu.Unlock()
	return token
}

// lookup returns the dialog of token if owner opened it. r.mu must be held.
func (r *Registry) lookup(owner, token string) (*entry, bool) {
	e, ok := r.dialogs[token]
	if !ok {
		return nil, false
	}
	sum := sha256.Sum256([]byte(owner))
	if subtle.ConstantTimeCompare(sum[:], e.owner[:]) != 1 {
		return nil, false
	}
	return e, true
}

// Target returns what token would delete.
func (r *Registry) Target(token string) (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.dialogs[token]
	if !ok {
		return Target{}, false
	}
	return e.target, true
}

// Confirm runs the dialog's deleter. The token is spent whatever the
// outcome. An unknown or spent token, or one opened by another owner,
// returns ErrNotOpen.
func (r *Registry) Confirm(ctx context.Context, owner, token string) (Target, error) {
	r.mu.Lock()
	e, ok := r.lookup(owner, token)
	r.mu.Unlock()
	if !ok {
		return Target{}, ErrNotOpen
	}

	err := e.dialog.Confirm(ctx)
	if errors.Is(err, ErrBusy) {
		return e.target, err
	}

	r.mu.Lock()
	delete(r.dialogs, token)
	r.mu.Unlock()
	return e.target, err
}

// Cancel closes the dialog without deleting. It reports whether owner had
// the token open.
func (r *Registry) Cancel(owner, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lookup(owner, token)
	if !ok || e.dialog.Busy() {
		return false
	}
	e.dialog.Cancel()
	delete(r.dialogs, token)
	return true
}

// Purge drops idle dialogs opened before cutoff and returns how many went.
func (r *Registry) Purge(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for token, e := range r.dialogs {
		if e.opened.Before(cutoff) && !e.dialog.Busy() {
			delete(r.dialogs, token)
			n++
		}
	}
	return n
}

// Len returns the number of open dialogs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dialogs)
}
