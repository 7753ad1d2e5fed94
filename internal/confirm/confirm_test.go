package confirm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingDeleter(calls *atomic.Int32, err error) Deleter {
	return func(context.Context) error {
		calls.Add(1)
		return err
	}
}

func TestDialog_CancelNeverDeletes(t *testing.T) {
	var calls atomic.Int32
	d := NewDialog(countingDeleter(&calls, nil))

	assert.Equal(t, Closed, d.State())
	d.Open()
	assert.Equal(t, Open, d.State())
	d.Cancel()
	assert.Equal(t, Closed, d.State())
	assert.Equal(t, int32(0), calls.Load())
}

func TestDialog_ConfirmDeletesOnce(t *testing.T) {
	var calls atomic.Int32
	d := NewDialog(countingDeleter(&calls, nil))

	d.Open()
	require.NoError(t, d.Confirm(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Closed, d.State())

	assert.ErrorIs(t, d.Confirm(context.Background()), ErrNotOpen)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDialog_ConfirmSurfacesDeleterError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	d := NewDialog(countingDeleter(&calls, boom))

	d.Open()
	assert.ErrorIs(t, d.Confirm(context.Background()), boom)
	assert.Equal(t, Closed, d.State())
	assert.False(t, d.Busy())
}

func TestDialog_ConfirmWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	d := NewDialog(func(context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	})
	d.Open()

	done := make(chan error, 1)
	go func() { done <- d.Confirm(context.Background()) }()
	<-started

	assert.True(t, d.Busy())
	assert.ErrorIs(t, d.Confirm(context.Background()), ErrBusy)

	d.Cancel()
	assert.Equal(t, Open, d.State(), "cancel is ignored while busy")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Closed, d.State())
}

func TestRegistry_ConfirmOnce(t *testing.T) {
	r := NewRegistry()
	var calls atomic.Int32
	token := r.Open("op", Target{Resource: "products", ID: "p1"}, countingDeleter(&calls, nil))

	target, ok := r.Target(token)
	require.True(t, ok)
	assert.Equal(t, "p1", target.ID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Confirm(context.Background(), "op", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, r.Len())

	_, err := r.Confirm(context.Background(), "op", token)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestRegistry_FailedConfirmSpendsToken(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	var calls atomic.Int32
	token := r.Open("op", Target{Resource: "orders", ID: "o1"}, countingDeleter(&calls, boom))

	target, err := r.Confirm(context.Background(), "op", token)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "o1", target.ID)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()
	var calls atomic.Int32
	token := r.Open("op", Target{Resource: "users", ID: "u1"}, countingDeleter(&calls, nil))

	assert.True(t, r.Cancel("op", token))
	assert.False(t, r.Cancel("op", token))
	_, err := r.Confirm(context.Background(), "op", token)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRegistry_Purge(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	old := r.Open("op", Target{ID: "old"}, countingDeleter(new(atomic.Int32), nil))

	r.now = func() time.Time { return base.Add(time.Hour) }
	fresh := r.Open("op", Target{ID: "fresh"}, countingDeleter(new(atomic.Int32), nil))

	assert.Equal(t, 1, r.Purge(base.Add(30*time.Minute)))
	_, ok := r.Target(old)
	assert.False(t, ok)
	_, ok = r.Target(fresh)
	assert.True(t, ok)
}

func TestRegistry_OtherOwnerCannotUseToken(t *testing.T) {
	r := NewRegistry()
	var calls atomic.Int32
	token := r.Open("op", Target{Resource: "products", ID: "p1"}, countingDeleter(&calls, nil))

	_, err := r.Confirm(context.Background(), "intruder", token)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.False(t, r.Cancel("intruder", token))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 1, r.Len(), "the owner's dialog stays open")

	_, err = r.Confirm(context.Background(), "op", token)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
