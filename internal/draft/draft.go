// Package draft persists the server-side state of an open edit form: its
// upload list and its address selection.
//
// A draft is created when a form opens and deleted when it is saved or
// abandoned. Drafts that outlive their TTL are purged by the janitor,
// together with the files staged for them.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/upload"
)

// ErrNotFound is returned for unknown or expired drafts.
var ErrNotFound = errors.New("draft: not found")

// Kind is the form a draft belongs to.
type Kind string

const (
	KindProduct  Kind = "product"
	KindCustomer Kind = "customer"
)

// Valid reports whether k is a known form kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProduct, KindCustomer:
		return true
	}
	return false
}

// Draft is the state of one open form.
type Draft struct {
	ID        uuid.UUID
	Kind      Kind
	RecordID  string // empty while creating a new record
	Files     upload.List
	Address   domain.AddressSelection
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// IsNew reports whether the draft creates a record rather than edits one.
func (d Draft) IsNew() bool {
	return d.RecordID == ""
}

// FilesEditable reports whether the upload list may change. The API only
// takes images when a product is created, so an edit shows the stored
// images read-only.
func (d Draft) FilesEditable() bool {
	return d.Kind == KindProduct && d.IsNew()
}

// Expired reports whether the draft is past its TTL at now.
func (d Draft) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// Store persists drafts. Implementations must be safe for concurrent use.
type Store interface {
	// Create stores a new draft. ID and timestamps are assigned by the store.
	Create(ctx context.Context, d Draft) (Draft, error)

	// Get returns an unexpired draft or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Draft, error)

	// Save replaces the files and address of an existing draft and
	// extends its expiry.
	Save(ctx context.Context, d Draft) (Draft, error)

	// Delete removes a draft. Deleting an unknown draft is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes drafts that expired before cutoff and returns them
	// so their staged files can be cleaned up.
	DeleteExpired(ctx context.Context, cutoff time.Time) ([]Draft, error)
}
