// Package notify keeps a bounded in-process feed of business alerts. The
// HTTP layer serves it; the scheduler and anything else that wants to raise
// an alert writes into it.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/xid"
)

type Sink struct {
	mu       sync.RWMutex
	buf      []domain.Notification
	capacity int
}

func NewSink(capacity int) *Sink {
	if capacity < 1 {
		capacity = 100
	}
	return &Sink{
		buf:      make([]domain.Notification, 0, capacity),
		capacity: capacity,
	}
}

func (s *Sink) Notify(_ context.Context, event domain.Notification) error {
	if event.ID == "" {
		event.ID = xid.New("ntf")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, event)
	if len(s.buf) > s.capacity {
		s.buf = s.buf[len(s.buf)-s.capacity:]
	}
	log.Printf("[notify] %s: %s", event.Type, event.Title)
	return nil
}

// Recent returns newest first.
func (s *Sink) Recent(limit int) []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]domain.Notification, 0, limit)
	for i := len(s.buf) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.buf[i])
	}
	return out
}
