package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/inferia-ai/inferia/cmd/loops/tasks/outbox"
	"github.com/inferia-ai/inferia/pkg/bus"
	"github.com/inferia-ai/inferia/pkg/bus/mem"
	"github.com/inferia-ai/inferia/pkg/domain"
	mockoutbox "github.com/inferia-ai/inferia/pkg/domain/outbox/db/mock"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func TestTask_PublishesPoppedEvents(t *testing.T) {
	ctx := context.Background()

	event := domain.OutboxEvent{
		Id:          "event-1",
		AggregateId: "deployment-1",
		Type:        domain.DeploymentCreated,
		Payload:     json.RawMessage(`{"deployment_id":"deployment-1","status":"pending"}`),
	}

	mock := mockoutbox.NewOutboxInterface()
	mock.Impl.Pop = func(_ context.Context, callback func(domain.OutboxEvent) error) (bool, error) {
		if err := callback(event); err != nil {
			return false, err
		}
		return true, nil
	}

	topic := mem.NewTopic()
	consumer := topic.Consumer("reconciler")

	testee := outbox.Task(mock, topic)

	_, popped, err := testee(ctx, outbox.Seed())
	if err != nil {
		t.Fatal(err)
	}
	if !popped {
		t.Error("the task should report backlog")
	}

	deliveries := try.To(consumer.Fetch(ctx, 10)).OrFatal(t)
	if len(deliveries) != 1 {
		t.Fatalf("unexpected deliveries: %d", len(deliveries))
	}
	got := deliveries[0].Event
	if got.Id != event.Id || got.Type != event.Type || string(got.Payload) != string(event.Payload) {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestTask_ReportsNoBacklogWhenOutboxIsEmpty(t *testing.T) {
	ctx := context.Background()

	mock := mockoutbox.NewOutboxInterface()
	mock.Impl.Pop = func(context.Context, func(domain.OutboxEvent) error) (bool, error) {
		return false, nil
	}

	testee := outbox.Task(mock, mem.NewTopic())

	_, popped, err := testee(ctx, outbox.Seed())
	if err != nil {
		t.Fatal(err)
	}
	if popped {
		t.Error("the task should report no backlog")
	}
}

func TestTask_KeepsEventUnpublishedWhenBusFails(t *testing.T) {
	ctx := context.Background()
	expectedErr := errors.New("fake bus outage")

	mock := mockoutbox.NewOutboxInterface()
	mock.Impl.Pop = func(_ context.Context, callback func(domain.OutboxEvent) error) (bool, error) {
		if err := callback(domain.OutboxEvent{Id: "event-1", Type: domain.DeploymentCreated}); err != nil {
			// the repository rolls back: not popped.
			return false, err
		}
		return true, nil
	}

	testee := outbox.Task(mock, failingBus{err: expectedErr})

	_, popped, err := testee(ctx, outbox.Seed())
	if !errors.Is(err, expectedErr) {
		t.Errorf("unexpected error: %+v", err)
	}
	if popped {
		t.Error("a failed publish should not count as progress")
	}
}

type failingBus struct {
	err error
}

func (b failingBus) Publish(context.Context, bus.Event) error {
	return b.err
}
