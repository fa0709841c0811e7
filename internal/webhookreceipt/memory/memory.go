// Package memory implements an in-process webhookreceipt.Recorder, a
// fixed-capacity ring buffer: useful for tests and for running the
// engine without a configured database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketsignal/decisionengine/internal/webhookreceipt"
)

const defaultCapacity = 1000

// Store is a mutex-guarded ring buffer of the most recent receipts,
// oldest dropped first once capacity is reached.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entries  []webhookreceipt.Receipt
	now      func() time.Time
}

var _ webhookreceipt.Recorder = (*Store)(nil)

func New() *Store {
	return &Store{capacity: defaultCapacity, now: time.Now}
}

func (s *Store) Record(_ context.Context, r webhookreceipt.Receipt) (*webhookreceipt.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = uuid.NewString()
	r.ReceivedAt = s.now().UTC()
	s.entries = append(s.entries, r)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}

	saved := r
	return &saved, nil
}

// Recent returns up to limit receipts, newest first. limit<=0 means
// "all retained", bounded by capacity.
func (s *Store) Recent(_ context.Context, limit int) ([]webhookreceipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]webhookreceipt.Receipt, n)
	for i := 0; i < n; i++ {
		out[i] = s.entries[len(s.entries)-1-i]
	}
	return out, nil
}
