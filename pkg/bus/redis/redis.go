// Redis Streams backing for the event bus.
//
// Each event becomes one stream entry. Consumer groups give every
// worker type its own cursor, and the pending entries list keeps
// deliveries that were fetched but not acked.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/inferia-ai/inferia/pkg/bus"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

const (
	fieldId          = "id"
	fieldAggregateId = "aggregate_id"
	fieldType        = "type"
	fieldPayload     = "payload"
)

type redisBus struct {
	client *redis.Client
	stream string
}

func NewBus(client *redis.Client, stream string) bus.Bus {
	return &redisBus{client: client, stream: stream}
}

func (b *redisBus) Publish(ctx context.Context, event bus.Event) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]interface{}{
			fieldId:          event.Id,
			fieldAggregateId: event.AggregateId,
			fieldType:        string(event.Type),
			fieldPayload:     string(event.Payload),
		},
	}).Err()
	if err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

type redisConsumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewConsumer joins (creating if needed) the consumer group on the stream.
func NewConsumer(
	ctx context.Context, client *redis.Client, stream string, group string, consumer string,
) (bus.Consumer, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, xerrors.Wrap(err)
	}
	return &redisConsumer{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}, nil
}

func (c *redisConsumer) Fetch(ctx context.Context, max int64) ([]bus.Delivery, error) {
	// own pending entries first, then new ones.
	deliveries, err := c.read(ctx, "0", max)
	if err != nil {
		return nil, err
	}
	if len(deliveries) > 0 {
		return deliveries, nil
	}
	return c.read(ctx, ">", max)
}

func (c *redisConsumer) read(ctx context.Context, cursor string, max int64) ([]bus.Delivery, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, cursor},
		Count:    max,
		Block:    -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []bus.Delivery{}, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	deliveries := []bus.Delivery{}
	for _, stream := range streams {
		for _, message := range stream.Messages {
			event, err := asEvent(message)
			if err != nil {
				return nil, err
			}
			messageId := message.ID
			deliveries = append(deliveries, bus.Delivery{
				Event: event,
				Ack: func(ctx context.Context) error {
					if err := c.client.XAck(ctx, c.stream, c.group, messageId).Err(); err != nil {
						return xerrors.Wrap(err)
					}
					return nil
				},
			})
		}
	}
	return deliveries, nil
}

func (c *redisConsumer) Close() error {
	return nil
}

func asEvent(message redis.XMessage) (bus.Event, error) {
	event := bus.Event{}

	id, ok := message.Values[fieldId].(string)
	if !ok {
		return bus.Event{}, xerrors.New(fmt.Sprintf("stream entry %s: missing field %s", message.ID, fieldId))
	}
	event.Id = id

	if aggregateId, ok := message.Values[fieldAggregateId].(string); ok {
		event.AggregateId = aggregateId
	}

	typ, ok := message.Values[fieldType].(string)
	if !ok {
		return bus.Event{}, xerrors.New(fmt.Sprintf("stream entry %s: missing field %s", message.ID, fieldType))
	}
	eventType, err := domain.AsEventType(typ)
	if err != nil {
		return bus.Event{}, xerrors.Wrap(err)
	}
	event.Type = eventType

	if payload, ok := message.Values[fieldPayload].(string); ok {
		event.Payload = json.RawMessage(payload)
	}

	return event, nil
}
