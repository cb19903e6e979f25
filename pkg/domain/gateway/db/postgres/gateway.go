package postgres

import (
	"context"

	kpool "github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool"
	kdb "github.com/inferia-ai/inferia/pkg/domain/gateway/db"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type pgGateway struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.GatewayInterface {
	return &pgGateway{pool: pool}
}

func (g *pgGateway) UpsertEndpoint(
	ctx context.Context, deploymentId string, modelName string, endpoint string,
) error {
	if _, err := g.pool.Exec(
		ctx,
		`
		insert into "endpoint" ("deployment_id", "model_name", "endpoint", "updated_at")
		values ($1, $2, $3, now())
		on conflict ("deployment_id") do update set
			"model_name" = excluded."model_name",
			"endpoint" = excluded."endpoint",
			"updated_at" = now()
		`,
		deploymentId, modelName, endpoint,
	); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

func (g *pgGateway) DeleteEndpoint(ctx context.Context, deploymentId string) error {
	if _, err := g.pool.Exec(
		ctx,
		`delete from "endpoint" where "deployment_id" = $1`,
		deploymentId,
	); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

// Null is the gateway to use when no gateway database is configured.
// It drops every sync.
func Null() kdb.GatewayInterface {
	return &nullGateway{}
}

type nullGateway struct{}

func (nullGateway) UpsertEndpoint(context.Context, string, string, string) error {
	return nil
}

func (nullGateway) DeleteEndpoint(context.Context, string) error {
	return nil
}
