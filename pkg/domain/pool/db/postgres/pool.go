package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	kpool "github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool"
	"github.com/inferia-ai/inferia/pkg/domain"
	dberr "github.com/inferia-ai/inferia/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/inferia-ai/inferia/pkg/domain/pool/db"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type pgPool struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.PoolInterface {
	return &pgPool{pool: pool}
}

func (p *pgPool) Register(ctx context.Context, pool domain.ComputePool) (string, error) {
	poolId := uuid.NewString()

	_, err := p.pool.Exec(
		ctx,
		`
		insert into "compute_pool" (
			"pool_id", "name", "provider", "region",
			"gpu_type", "gpu_count", "gpu_memory_gb", "vcpu", "ram_gb",
			"pricing_model", "price_per_hour", "capacity", "status",
			"created_at", "updated_at"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		`,
		poolId, pool.Name, string(pool.Provider), pool.Region,
		pool.GPUType, pool.GPUCount, pool.GPUMemoryGB, pool.VCPU, pool.RAMGB,
		pool.PricingModel, pool.PricePerHour, pool.Capacity, string(pool.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", dberr.Duplication{Table: "compute_pool", Identity: pool.Name}
		}
		return "", xerrors.Wrap(err)
	}

	return poolId, nil
}

func (p *pgPool) Find(ctx context.Context, statuses []domain.PoolStatus) ([]string, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select "pool_id" from "compute_pool"
		where ($1::varchar[] is null or "status" = any($1::varchar[]))
		order by "created_at", "pool_id"
		`,
		statusesToStrings(statuses),
	)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	poolIds := []string{}
	for rows.Next() {
		var poolId string
		if err := rows.Scan(&poolId); err != nil {
			return nil, xerrors.Wrap(err)
		}
		poolIds = append(poolIds, poolId)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err)
	}

	return poolIds, nil
}

func (p *pgPool) Get(ctx context.Context, poolIds []string) (map[string]domain.ComputePool, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select
			"pool_id", "name", "provider", "region",
			"gpu_type", "gpu_count", "gpu_memory_gb", "vcpu", "ram_gb",
			"pricing_model", "price_per_hour", "capacity", "status",
			"created_at", "updated_at"
		from "compute_pool"
		where "pool_id" = any($1::varchar[])
		`,
		poolIds,
	)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	pools := map[string]domain.ComputePool{}
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools[pool.PoolId] = pool
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err)
	}

	return pools, nil
}

func (p *pgPool) SetStatus(ctx context.Context, poolId string, status domain.PoolStatus) error {
	tag, err := p.pool.Exec(
		ctx,
		`update "compute_pool" set "status" = $2, "updated_at" = now() where "pool_id" = $1`,
		poolId, string(status),
	)
	if err != nil {
		return xerrors.Wrap(err)
	}
	if tag.RowsAffected() < 1 {
		return dberr.Missing{Table: "compute_pool", Identity: poolId}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPool(row rowScanner) (domain.ComputePool, error) {
	pool := domain.ComputePool{}
	var provider, status string
	if err := row.Scan(
		&pool.PoolId, &pool.Name, &provider, &pool.Region,
		&pool.GPUType, &pool.GPUCount, &pool.GPUMemoryGB, &pool.VCPU, &pool.RAMGB,
		&pool.PricingModel, &pool.PricePerHour, &pool.Capacity, &status,
		&pool.CreatedAt, &pool.UpdatedAt,
	); err != nil {
		return domain.ComputePool{}, xerrors.Wrap(err)
	}

	prov, err := domain.AsProvider(provider)
	if err != nil {
		return domain.ComputePool{}, xerrors.Wrap(err)
	}
	pool.Provider = prov

	st, err := domain.AsPoolStatus(status)
	if err != nil {
		return domain.ComputePool{}, xerrors.Wrap(err)
	}
	pool.Status = st

	return pool, nil
}

func statusesToStrings(statuses []domain.PoolStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	ss := make([]string, len(statuses))
	for nth, s := range statuses {
		ss[nth] = string(s)
	}
	return ss
}
