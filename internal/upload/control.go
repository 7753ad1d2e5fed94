package upload

import (
	"errors"
	"log/slog"

	"github.com/DukeRupert/shopdesk/internal/metrics"
)

// DefaultMaxSizeBytes is the per-file ceiling when Control.MaxSizeBytes is unset.
const DefaultMaxSizeBytes int64 = 10 * 1024 * 1024

// NoTarget is the Reorder destination of a drag that was dropped outside
// the list.
const NoTarget = -1

// ErrNoFiles is returned by Validate when a required control is empty.
var ErrNoFiles = errors.New("at least one file is required")

// Control applies the upload policy of one form field to its List.
//
// Every mutation returns a new List and passes it to OnChange, which is
// how the owning form learns the field value changed.
type Control struct {
	// MaxSizeBytes drops larger files on Add. Zero means DefaultMaxSizeBytes.
	MaxSizeBytes int64

	// Multiple allows more than one file. A single-file control keeps only
	// the most recently added file.
	Multiple bool

	// Required makes Validate reject an empty list.
	Required bool

	// OnChange is called with the result of every Add, Remove and Reorder.
	OnChange func(List)

	// URLs issues display URLs for local items. Optional.
	URLs *ObjectURLs

	Logger *slog.Logger
}

func (c *Control) maxSize() int64 {
	if c.MaxSizeBytes > 0 {
		return c.MaxSizeBytes
	}
	return DefaultMaxSizeBytes
}

// Accepts reports whether a file of size bytes passes the size filter.
func (c *Control) Accepts(size int64) bool {
	return size <= c.maxSize()
}

// Add appends the files that pass the size filter, in the order given.
// Oversized files are dropped without error.
func (c *Control) Add(list List, files []Item) List {
	accepted := make([]Item, 0, len(files))
	for _, f := range files {
		if !c.Accepts(f.Size) {
			metrics.FileRejected("too_large")
			c.logger().Debug("dropped oversized file", "name", f.Name, "size", f.Size, "max", c.maxSize())
			continue
		}
		accepted = append(accepted, f)
	}
	metrics.FilesAccepted(len(accepted))

	next := make(List, 0, len(list)+len(accepted))
	next = append(next, list...)
	next = append(next, accepted...)

	if !c.Multiple && len(next) > 1 {
		c.release(next[:len(next)-1])
		next = List{next[len(next)-1]}
	}

	return c.changed(next)
}

// Remove drops the item at index. Out of range indexes leave the list as is.
func (c *Control) Remove(list List, index int) List {
	if index < 0 || index >= len(list) {
		return c.changed(list.clone())
	}

	c.release(list[index : index+1])

	next := make(List, 0, len(list)-1)
	next = append(next, list[:index]...)
	next = append(next, list[index+1:]...)
	return c.changed(next)
}

// Reorder moves the item at from so it ends up at index to. The move is
// skipped when to is NoTarget or either index is out of range.
func (c *Control) Reorder(list List, from, to int) List {
	next := list.clone()
	if to == NoTarget || from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return c.changed(next)
	}

	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append(List{moved}, next[to:]...)...)
	return c.changed(next)
}

// Validate checks the list against the Required flag.
func (c *Control) Validate(list List) error {
	if c.Required && len(list) == 0 {
		return ErrNoFiles
	}
	return nil
}

// DisplayURL returns the URL a preview of item is loaded from: the stored
// URL for remote items, an object URL from c.URLs for local ones.
func (c *Control) DisplayURL(item Item) string {
	if !item.IsLocal() {
		return item.URL
	}
	if c.URLs == nil {
		return ""
	}
	return c.URLs.Create(item)
}

func (c *Control) changed(next List) List {
	if c.OnChange != nil {
		c.OnChange(next)
	}
	return next
}

// release revokes the object URLs of local items leaving the list.
func (c *Control) release(items []Item) {
	if c.URLs == nil {
		return
	}
	for _, it := range items {
		if it.IsLocal() {
			c.URLs.Release(it)
		}
	}
}

func (c *Control) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
