package redis_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/inferia-ai/inferia/pkg/bus"
	busredis "github.com/inferia-ai/inferia/pkg/bus/redis"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisBus_PublishAndFetch(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	testee := busredis.NewBus(client, "deployment-events")
	consumer := try.To(
		busredis.NewConsumer(ctx, client, "deployment-events", "reconciler", "reconciler-1"),
	).OrFatal(t)
	defer consumer.Close()

	published := []bus.Event{
		{
			Id:          "event-1",
			AggregateId: "deployment-1",
			Type:        domain.DeploymentCreated,
			Payload:     json.RawMessage(`{"deployment_id":"deployment-1","status":"pending"}`),
		},
		{
			Id:          "event-2",
			AggregateId: "deployment-1",
			Type:        domain.DeploymentStatusChanged,
			Payload:     json.RawMessage(`{"deployment_id":"deployment-1","status":"provisioning"}`),
		},
	}
	for _, event := range published {
		if err := testee.Publish(ctx, event); err != nil {
			t.Fatal(err)
		}
	}

	deliveries := try.To(consumer.Fetch(ctx, 10)).OrFatal(t)
	if len(deliveries) != len(published) {
		t.Fatalf("unexpected deliveries: got %d, want %d", len(deliveries), len(published))
	}
	for nth, delivery := range deliveries {
		want := published[nth]
		got := delivery.Event
		if got.Id != want.Id || got.AggregateId != want.AggregateId || got.Type != want.Type {
			t.Errorf("unexpected event:\n===got===\n%+v\n===want===\n%+v", got, want)
		}
		if string(got.Payload) != string(want.Payload) {
			t.Errorf("unexpected payload: got %s, want %s", got.Payload, want.Payload)
		}
	}
}

func TestRedisBus_UnackedDeliveriesComeBackFirst(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	testee := busredis.NewBus(client, "deployment-events")
	consumer := try.To(
		busredis.NewConsumer(ctx, client, "deployment-events", "reconciler", "reconciler-1"),
	).OrFatal(t)
	defer consumer.Close()

	for _, event := range []bus.Event{
		{Id: "event-1", Type: domain.DeploymentCreated},
		{Id: "event-2", Type: domain.DeploymentStatusChanged},
	} {
		if err := testee.Publish(ctx, event); err != nil {
			t.Fatal(err)
		}
	}

	first := try.To(consumer.Fetch(ctx, 10)).OrFatal(t)
	if len(first) != 2 {
		t.Fatalf("unexpected deliveries: got %d, want 2", len(first))
	}

	// ack only the first one. The second must be served again.
	if err := first[0].Ack(ctx); err != nil {
		t.Fatal(err)
	}

	second := try.To(consumer.Fetch(ctx, 10)).OrFatal(t)
	if len(second) != 1 {
		t.Fatalf("unexpected deliveries: got %d, want 1", len(second))
	}
	if second[0].Event.Id != "event-2" {
		t.Errorf("unexpected event: got %s, want event-2", second[0].Event.Id)
	}

	if err := second[0].Ack(ctx); err != nil {
		t.Fatal(err)
	}
	rest := try.To(consumer.Fetch(ctx, 10)).OrFatal(t)
	if len(rest) != 0 {
		t.Errorf("unexpected deliveries after acking everything: %+v", rest)
	}
}

func TestRedisBus_GroupsHaveIndependentCursors(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	testee := busredis.NewBus(client, "deployment-events")
	reconciler := try.To(
		busredis.NewConsumer(ctx, client, "deployment-events", "reconciler", "reconciler-1"),
	).OrFatal(t)
	defer reconciler.Close()
	prober := try.To(
		busredis.NewConsumer(ctx, client, "deployment-events", "prober", "prober-1"),
	).OrFatal(t)
	defer prober.Close()

	if err := testee.Publish(ctx, bus.Event{Id: "event-1", Type: domain.DeploymentCreated}); err != nil {
		t.Fatal(err)
	}

	forReconciler := try.To(reconciler.Fetch(ctx, 10)).OrFatal(t)
	forProber := try.To(prober.Fetch(ctx, 10)).OrFatal(t)

	if len(forReconciler) != 1 || len(forProber) != 1 {
		t.Fatalf(
			"both groups should receive the event: reconciler=%d prober=%d",
			len(forReconciler), len(forProber),
		)
	}
}
