// Package upload manages the ordered list of files attached to a record
// being created or edited.
//
// A List holds two kinds of entries: files the user has picked but which
// have not been submitted yet (Local, staged in storage under Handle), and
// files the API already persisted (Remote). List order is the display order
// and the order files are submitted in.
package upload

// Kind tags an Item as Local or Remote.
type Kind string

const (
	Local  Kind = "local"
	Remote Kind = "remote"
)

// Item is one entry of a List.
//
// Local items set Handle, the storage key of the staged bytes.
// Remote items set URL and ID.
type Item struct {
	Kind        Kind   `json:"kind"`
	Handle      string `json:"handle,omitempty"`
	URL         string `json:"url,omitempty"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// LocalFile builds a Local item for bytes staged at handle.
func LocalFile(handle, name string, size int64, contentType string) Item {
	return Item{Kind: Local, Handle: handle, Name: name, Size: size, ContentType: contentType}
}

// RemoteFile builds a Remote item for a file the API already stores.
func RemoteFile(id, url, name string, size int64) Item {
	return Item{Kind: Remote, ID: id, URL: url, Name: name, Size: size}
}

// IsLocal reports whether the item still has to be submitted.
func (i Item) IsLocal() bool {
	return i.Kind == Local
}

// identity distinguishes items within a list.
func (i Item) identity() string {
	if i.Kind == Local {
		return "l:" + i.Handle
	}
	if i.ID != "" {
		return "r:" + i.ID
	}
	return "r:" + i.URL
}

// List is an ordered sequence of items. Operations never modify a List in
// place; they return a new one.
type List []Item

// Locals returns the items that still need to be submitted, in order.
func (l List) Locals() []Item {
	var out []Item
	for _, it := range l {
		if it.IsLocal() {
			out = append(out, it)
		}
	}
	return out
}

// TotalSize sums the sizes of all items.
func (l List) TotalSize() int64 {
	var n int64
	for _, it := range l {
		n += it.Size
	}
	return n
}

// Diff reports which items of next are new relative to prev and which
// items of prev are gone from next.
func Diff(prev, next List) (added, removed []Item) {
	inPrev := make(map[string]bool, len(prev))
	for _, it := range prev {
		inPrev[it.identity()] = true
	}
	inNext := make(map[string]bool, len(next))
	for _, it := range next {
		inNext[it.identity()] = true
		if !inPrev[it.identity()] {
			added = append(added, it)
		}
	}
	for _, it := range prev {
		if !inNext[it.identity()] {
			removed = append(removed, it)
		}
	}
	return added, removed
}

func (l List) clone() List {
	if l == nil {
		return List{}
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}
