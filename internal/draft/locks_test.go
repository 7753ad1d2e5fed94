package draft

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLocks_SerialisesOneDraft(t *testing.T) {
	var locks Locks
	id := uuid.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			defer unlock()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locks.Len(), "released locks are forgotten")
}

func TestLocks_OtherDraftsDoNotWait(t *testing.T) {
	var locks Locks
	unlock := locks.Lock(uuid.New())
	defer unlock()

	done := make(chan struct{})
	go func() {
		locks.Lock(uuid.New())()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of another draft blocked")
	}
}

func TestLocks_UnlockTwiceIsSafe(t *testing.T) {
	var locks Locks
	id := uuid.New()
	unlock := locks.Lock(id)
	unlock()
	unlock()

	locks.Lock(id)()
	assert.Equal(t, 0, locks.Len())
}
