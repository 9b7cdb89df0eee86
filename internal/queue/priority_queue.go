package queue

import (
	"github.com/notifyhub/chatbridge/internal/domain"
)

// PriorityQueue buffers notifications pushed through the intake API until the
// poller drains them. Items sit in one of three buffered channels by priority.
//
// Draining is strictly ordered: every high item is served before any normal
// item, every normal item before any low item. Within a tier, arrival order
// is preserved.
type PriorityQueue struct {
	high   chan domain.Notification
	normal chan domain.Notification
	low    chan domain.Notification
}

// New creates a queue whose tiers each hold up to capacity items.
func New(capacity int) *PriorityQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &PriorityQueue{
		high:   make(chan domain.Notification, capacity),
		normal: make(chan domain.Notification, capacity),
		low:    make(chan domain.Notification, capacity),
	}
}

// Enqueue places a notification on its priority tier.
// It is non-blocking: if the tier is full, ErrQueueFull is returned
// immediately rather than blocking the caller (the HTTP handler or poller).
func (q *PriorityQueue) Enqueue(n domain.Notification) error {
	var tier chan domain.Notification
	switch n.Priority.Normalize() {
	case domain.PriorityHigh:
		tier = q.high
	case domain.PriorityLow:
		tier = q.low
	default:
		tier = q.normal
	}

	select {
	case tier <- n:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// TryDequeue returns the next notification in priority order without
// blocking. ok is false when all tiers are empty.
func (q *PriorityQueue) TryDequeue() (n domain.Notification, ok bool) {
	for _, tier := range []chan domain.Notification{q.high, q.normal, q.low} {
		select {
		case n = <-tier:
			return n, true
		default:
		}
	}
	return domain.Notification{}, false
}

// Depths returns the current number of items waiting in each priority tier.
// Used by the status handler and the queue-depth gauges.
func (q *PriorityQueue) Depths() (high, normal, low int) {
	return len(q.high), len(q.normal), len(q.low)
}
