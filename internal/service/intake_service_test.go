package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/queue"
	"github.com/notifyhub/chatbridge/internal/service"
)

func newService(capacity int) (*service.IntakeService, *queue.PriorityQueue) {
	q := queue.New(capacity)
	return service.NewIntakeService(q, zap.NewNop()), q
}

var valid = domain.Notification{Kind: domain.KindPasswordReset, UserID: "42", Priority: "high"}

func TestIntakeService_Submit(t *testing.T) {
	svc, q := newService(10)

	r, err := svc.Submit(context.Background(), valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected a receipt id")
	}
	if r.Priority != domain.PriorityHigh {
		t.Fatalf("expected normalized priority HIGH, got %q", r.Priority)
	}

	high, normal, low := q.Depths()
	if high != 1 || normal+low != 0 {
		t.Fatalf("expected one high item, got %d/%d/%d", high, normal, low)
	}
}

func TestIntakeService_Submit_InvalidKind(t *testing.T) {
	svc, _ := newService(10)

	bad := valid
	bad.Kind = ""
	_, err := svc.Submit(context.Background(), bad)
	if err != domain.ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestIntakeService_Submit_QueueFull(t *testing.T) {
	svc, _ := newService(1)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, valid); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(ctx, valid); err != domain.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestIntakeService_SubmitBatch_OrdersByPriority(t *testing.T) {
	svc, q := newService(10)

	batch := []domain.Notification{
		{Kind: "low-1", Priority: domain.PriorityLow},
		{Kind: "normal-1"},
		{Kind: "high-1", Priority: domain.PriorityHigh},
		{Kind: "normal-2", Priority: domain.PriorityNormal},
	}
	r, err := svc.SubmitBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Accepted != 4 || r.Rejected != 0 {
		t.Fatalf("expected 4 accepted, got %+v", r)
	}

	want := []domain.EventKind{"high-1", "normal-1", "normal-2", "low-1"}
	for i, k := range want {
		n, ok := q.TryDequeue()
		if !ok || n.Kind != k {
			t.Fatalf("position %d: expected %q, got %q (ok=%v)", i, k, n.Kind, ok)
		}
	}
	if batch[0].Kind != "low-1" {
		t.Fatal("caller's slice must not be reordered")
	}
}

func TestIntakeService_SubmitBatch_Limits(t *testing.T) {
	svc, _ := newService(10)
	ctx := context.Background()

	if _, err := svc.SubmitBatch(ctx, nil); err != domain.ErrBatchEmpty {
		t.Fatalf("expected ErrBatchEmpty, got %v", err)
	}

	big := make([]domain.Notification, service.MaxBatchSize+1)
	for i := range big {
		big[i] = valid
	}
	if _, err := svc.SubmitBatch(ctx, big); err != domain.ErrBatchTooLarge {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
}

func TestIntakeService_SubmitBatch_InvalidItem(t *testing.T) {
	svc, q := newService(10)

	_, err := svc.SubmitBatch(context.Background(), []domain.Notification{valid, {Kind: " "}})
	if !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if h, n, l := q.Depths(); h+n+l != 0 {
		t.Fatal("nothing should be enqueued when validation fails")
	}
}

func TestIntakeService_SubmitBatch_PartialWhenFull(t *testing.T) {
	svc, _ := newService(2)

	batch := []domain.Notification{valid, valid, valid}
	r, err := svc.SubmitBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Accepted != 2 || r.Rejected != 1 {
		t.Fatalf("expected 2 accepted / 1 rejected, got %+v", r)
	}

	if _, err := svc.SubmitBatch(context.Background(), batch); err != domain.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull once nothing fits, got %v", err)
	}
}
