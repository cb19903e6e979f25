package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	kpgpool "github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool"
	kdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kpgdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db/postgres"
	kgateway "github.com/inferia-ai/inferia/pkg/domain/gateway/db"
	kpggateway "github.com/inferia-ai/inferia/pkg/domain/gateway/db/postgres"
	dbInterface "github.com/inferia-ai/inferia/pkg/domain/inferia/db"
	koutbox "github.com/inferia-ai/inferia/pkg/domain/outbox/db"
	kpgoutbox "github.com/inferia-ai/inferia/pkg/domain/outbox/db/postgres"
	kpooldb "github.com/inferia-ai/inferia/pkg/domain/pool/db"
	kpgpooldb "github.com/inferia-ai/inferia/pkg/domain/pool/db/postgres"
	kregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db"
	kpgregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db/postgres"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type inferiaDBPostgres struct {
	pool        *pgxpool.Pool
	gatewayPool *pgxpool.Pool

	pools      kpooldb.PoolInterface
	registry   kregistry.RegistryInterface
	deployment kdeployment.DeploymentInterface
	outbox     koutbox.OutboxInterface
	gateway    kgateway.GatewayInterface
}

type Config struct {
	// GatewayDatabase is the connection string of the database the
	// inference gateway reads endpoints from. Empty means no gateway
	// sync; endpoint upserts become no-ops.
	GatewayDatabase string
}

type Option func(*Config) *Config

func WithGatewayDatabase(url string) Option {
	return func(c *Config) *Config {
		c.GatewayDatabase = url
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (dbInterface.InferiaDatabase, error) {
	c := Config{}
	for _, option := range options {
		c = *option(&c)
	}

	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	var gatewayPool *pgxpool.Pool
	gateway := kpggateway.Null()
	if c.GatewayDatabase != "" {
		gatewayPool, err = pgxpool.Connect(ctx, c.GatewayDatabase)
		if err != nil {
			pool.Close()
			return nil, xerrors.Wrap(err)
		}
		gateway = kpggateway.New(kpgpool.Wrap(gatewayPool))
	}

	p := kpgpool.Wrap(pool)

	return &inferiaDBPostgres{
		pool:        pool,
		gatewayPool: gatewayPool,
		pools:       kpgpooldb.New(p),
		registry:    kpgregistry.New(p),
		deployment:  kpgdeployment.New(p),
		outbox:      kpgoutbox.New(p),
		gateway:     gateway,
	}, nil
}

func (d *inferiaDBPostgres) Pool() kpooldb.PoolInterface {
	return d.pools
}

func (d *inferiaDBPostgres) Registry() kregistry.RegistryInterface {
	return d.registry
}

func (d *inferiaDBPostgres) Deployment() kdeployment.DeploymentInterface {
	return d.deployment
}

func (d *inferiaDBPostgres) Outbox() koutbox.OutboxInterface {
	return d.outbox
}

func (d *inferiaDBPostgres) Gateway() kgateway.GatewayInterface {
	return d.gateway
}

func (d *inferiaDBPostgres) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

func (d *inferiaDBPostgres) Close() error {
	d.pool.Close()
	if d.gatewayPool != nil {
		d.gatewayPool.Close()
	}
	return nil
}
