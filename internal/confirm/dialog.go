// Package confirm implements the two-step delete confirmation.
//
// A Dialog moves Closed → Open → Closed. Cancel never calls the deleter;
// Confirm calls it exactly once. Confirm returns the deleter's error so the
// caller can show it rather than treating the delete as done.
package confirm

import (
	"context"
	"errors"
	"sync"
)

// State is the dialog's visibility.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

var (
	// ErrNotOpen is returned by Confirm on a closed dialog.
	ErrNotOpen = errors.New("confirm: dialog is not open")

	// ErrBusy is returned by Confirm while a previous confirm is running.
	ErrBusy = errors.New("confirm: delete already in progress")
)

// Deleter performs the destructive action.
type Deleter func(ctx context.Context) error

// Dialog guards one destructive action behind an explicit confirmation.
type Dialog struct {
	mu      sync.Mutex
	state   State
	busy    bool
	deleter Deleter
}

// NewDialog returns a closed dialog for deleter.
func NewDialog(deleter Deleter) *Dialog {
	return &Dialog{deleter: deleter}
}

// State returns the current state.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Busy reports whether the deleter is running.
func (d *Dialog) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Open shows the dialog. Opening an open dialog is a no-op.
func (d *Dialog) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Open
}

// Cancel closes the dialog without deleting. It has no effect while a
// confirm is running.
func (d *Dialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.busy {
		d.state = Closed
	}
}

// Confirm runs the deleter once and closes the dialog, whatever the
// outcome.
func (d *Dialog) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	if d.state != Open {
		d.mu.Unlock()
		return ErrNotOpen
	}
	d.busy = true
	d.mu.Unlock()

	err := d.deleter(ctx)

	d.mu.Lock()
	d.busy = false
	d.state = Closed
	d.mu.Unlock()
	return err
}
