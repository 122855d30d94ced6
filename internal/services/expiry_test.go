package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingDeleter struct {
	mu      sync.Mutex
	deleted []int
	err     error
	done    chan struct{}
}

func (r *recordingDeleter) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, messageID)
	r.mu.Unlock()
	close(r.done)
	return r.err
}

func TestExpiryScheduler_DeletesAfterWindow(t *testing.T) {
	d := &recordingDeleter{done: make(chan struct{})}
	s := NewExpiryScheduler(d, zerolog.Nop())

	s.Schedule(1, 42, time.Millisecond)

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("delete never fired")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deleted) != 1 || d.deleted[0] != 42 {
		t.Fatalf("deleted = %v, want [42]", d.deleted)
	}
}

func TestExpiryScheduler_DeleteFailureIsSwallowed(t *testing.T) {
	d := &recordingDeleter{done: make(chan struct{}), err: errors.New("message to delete not found")}
	s := NewExpiryScheduler(d, zerolog.Nop())

	// Schedule must not panic or propagate anything when the delete fails.
	s.Schedule(1, 7, time.Millisecond)

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("delete never fired")
	}
}
