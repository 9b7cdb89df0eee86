package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// MaxBatchSize bounds a single batch submission.
const MaxBatchSize = 1000

// Enqueuer accepts notifications for the poller to drain.
type Enqueuer interface {
	Enqueue(n domain.Notification) error
}

// Receipt acknowledges an accepted notification.
type Receipt struct {
	ID         string           `json:"id"`
	Kind       domain.EventKind `json:"eventKind"`
	Priority   domain.Priority  `json:"priority"`
	AcceptedAt time.Time        `json:"acceptedAt"`
}

// BatchReceipt acknowledges a batch. Rejected counts items that did not fit
// in the queue; they were not enqueued.
type BatchReceipt struct {
	BatchID    string    `json:"batchId"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// IntakeService validates pushed notifications and places them on the intake
// queue. Nothing is dispatched here; the poller drains the queue on its next
// tick so delivery stays single-lane.
type IntakeService struct {
	q      Enqueuer
	logger *zap.Logger
}

func NewIntakeService(q Enqueuer, logger *zap.Logger) *IntakeService {
	return &IntakeService{q: q, logger: logger}
}

// Submit validates and enqueues a single notification.
func (s *IntakeService) Submit(_ context.Context, n domain.Notification) (*Receipt, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	n.Priority = n.Priority.Normalize()

	if err := s.q.Enqueue(n); err != nil {
		return nil, err
	}

	r := &Receipt{ID: uuid.NewString(), Kind: n.Kind, Priority: n.Priority, AcceptedAt: time.Now().UTC()}
	s.logger.Debug("notification accepted", zap.String("id", r.ID), zap.String("kind", string(n.Kind)))
	return r, nil
}

// SubmitBatch validates every item, orders the batch by priority (stable
// within a tier) and enqueues it. If the queue fills part-way the remaining
// items are rejected; when nothing fits ErrQueueFull is returned.
func (s *IntakeService) SubmitBatch(_ context.Context, ns []domain.Notification) (*BatchReceipt, error) {
	if len(ns) == 0 {
		return nil, domain.ErrBatchEmpty
	}
	if len(ns) > MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	batch := slices.Clone(ns)
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		batch[i].Priority = batch[i].Priority.Normalize()
	}
	domain.SortByPriority(batch)

	r := &BatchReceipt{BatchID: uuid.NewString(), AcceptedAt: time.Now().UTC()}
	for _, n := range batch {
		if err := s.q.Enqueue(n); err != nil {
			if !errors.Is(err, domain.ErrQueueFull) {
				return nil, err
			}
			r.Rejected++
			continue
		}
		r.Accepted++
	}

	if r.Accepted == 0 {
		return nil, domain.ErrQueueFull
	}
	if r.Rejected > 0 {
		s.logger.Warn("batch partially accepted, queue full",
			zap.String("batch_id", r.BatchID), zap.Int("accepted", r.Accepted), zap.Int("rejected", r.Rejected))
	}
	return r, nil
}
