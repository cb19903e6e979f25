package postgres

import (
	"context"

	kpool "github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool"
	"github.com/inferia-ai/inferia/pkg/domain"
	kdb "github.com/inferia-ai/inferia/pkg/domain/outbox/db"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type pgOutbox struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.OutboxInterface {
	return &pgOutbox{pool: pool}
}

func (o *pgOutbox) Pop(ctx context.Context, callback func(domain.OutboxEvent) error) (bool, error) {
	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return false, xerrors.Wrap(err)
	}
	defer tx.Rollback(ctx)

	// skip locked keeps concurrent publishers off each other's rows,
	// at the price of momentary reordering between them.
	rows, err := tx.Query(
		ctx,
		`
		select "event_id", "aggregate_id", "event_type", "payload", "created_at"
		from "outbox_event"
		where "published_at" is null
		order by "created_at", "event_id"
		limit 1
		for update skip locked
		`,
	)
	if err != nil {
		return false, xerrors.Wrap(err)
	}
	defer rows.Close()

	event := domain.OutboxEvent{}
	pop := false
	for rows.Next() {
		var eventType string
		if err := rows.Scan(
			&event.Id, &event.AggregateId, &eventType, &event.Payload, &event.CreatedAt,
		); err != nil {
			return false, xerrors.Wrap(err)
		}
		et, err := domain.AsEventType(eventType)
		if err != nil {
			return false, xerrors.Wrap(err)
		}
		event.Type = et
		pop = true
	}
	if err := rows.Err(); err != nil {
		return false, xerrors.Wrap(err)
	}
	rows.Close()

	if !pop {
		return false, nil
	}

	if callback != nil {
		if err := callback(event); err != nil {
			return false, err
		}
	}

	if _, err := tx.Exec(
		ctx,
		`update "outbox_event" set "published_at" = now() where "event_id" = $1`,
		event.Id,
	); err != nil {
		return false, xerrors.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, xerrors.Wrap(err)
	}

	return true, nil
}
