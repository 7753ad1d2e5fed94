package upload

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ObjectURLs issues revocable URLs for previews of local items.
//
// A URL stays valid until it is released, either when its item leaves a
// list or when Purge finds it older than the draft lifetime.
// It is safe for concurrent use.
type ObjectURLs struct {
	prefix string

	mu       sync.Mutex
	byToken  map[string]objectURL
	byHandle map[string]string
}

type objectURL struct {
	item    Item
	created time.Time
}

// NewObjectURLs serves tokens under prefix, e.g. "/previews/".
func NewObjectURLs(prefix string) *ObjectURLs {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ObjectURLs{
		prefix:   prefix,
		byToken:  make(map[string]objectURL),
		byHandle: make(map[string]string),
	}
}

// Create returns the URL for item, reusing the live URL if one exists.
func (o *ObjectURLs) Create(item Item) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if token, ok := o.byHandle[item.Handle]; ok {
		return o.prefix + token
	}

	token := uuid.NewString()
	o.byToken[token] = objectURL{item: item, created: time.Now()}
	o.byHandle[item.Handle] = token
	return o.prefix + token
}

// Resolve returns the item a token was issued for.
func (o *ObjectURLs) Resolve(token string) (Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	u, ok := o.byToken[token]
	return u.item, ok
}

// Release revokes the URL issued for item, if any.
func (o *ObjectURLs) Release(item Item) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if token, ok := o.byHandle[item.Handle]; ok {
		delete(o.byToken, token)
		delete(o.byHandle, item.Handle)
	}
}

// Revoke releases a URL by token.
func (o *ObjectURLs) Revoke(token string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if u, ok := o.byToken[token]; ok {
		delete(o.byHandle, u.item.Handle)
		delete(o.byToken, token)
	}
}

// Purge revokes URLs created before cutoff and returns how many it removed.
func (o *ObjectURLs) Purge(cutoff time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for token, u := range o.byToken {
		if u.created.Before(cutoff) {
			delete(o.byHandle, u.item.Handle)
			delete(o.byToken, token)
			n++
		}
	}
	return n
}

// Len returns the number of live URLs.
func (o *ObjectURLs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.byToken)
}
