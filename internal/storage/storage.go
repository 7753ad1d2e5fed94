// Package storage holds the bytes of files staged by the upload control
// before a record is submitted to the upstream API.
//
// Two backends are provided:
// - LocalStorage: files under a directory on disk (development)
// - R2Storage: Cloudflare R2 through the S3 API (production)
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage is the blob store behind staged uploads and their previews.
type Storage interface {
	// Put stores data at key. ErrKeyExists is returned when the key is
	// taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns an address the browser can load the object from.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is detected from the key when empty.
	ContentType string

	// MaxSize rejects payloads larger than this many bytes. Zero disables the check.
	MaxSize int64

	Overwrite bool
	Public    bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration
// =============================================================================

// LocalConfig configures LocalStorage.
type LocalConfig struct {
	BasePath string // e.g. "./storage"
	BaseURL  string // e.g. "http://localhost:8080/files"
}

// R2Config configures R2Storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's custom domain. Presigned URLs are used when empty.
	PublicURL string

	// Region defaults to "auto".
	Region string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// =============================================================================
// Keys
// =============================================================================

// StagedFileKey returns a fresh key for a file staged in a draft.
// Format: drafts/{draftID}/files/{uuid}{ext}
func StagedFileKey(draftID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("drafts/%s/files/%s%s", draftID, uuid.New(), ext)
}

// PreviewKey returns the key of the preview rendered for a staged file.
// Format: drafts/{draftID}/previews/{base}.jpg
func PreviewKey(fileKey string) string {
	dir, base := filepath.Split(fileKey)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	dir = strings.TrimSuffix(strings.TrimSuffix(dir, "/"), "files")
	return dir + "previews/" + base + ".jpg"
}

// DraftPrefix is the key prefix shared by every object of a draft.
func DraftPrefix(draftID uuid.UUID) string {
	return fmt.Sprintf("drafts/%s/", draftID)
}
