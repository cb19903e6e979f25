package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	kpool "github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool"
	"github.com/inferia-ai/inferia/pkg/domain"
	dberr "github.com/inferia-ai/inferia/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/inferia-ai/inferia/pkg/domain/registry/db"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type pgRegistry struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.RegistryInterface {
	return &pgRegistry{pool: pool}
}

func (r *pgRegistry) Register(ctx context.Context, model domain.ModelSpec) error {
	_, err := r.pool.Exec(
		ctx,
		`
		insert into "model_registry" (
			"name", "version", "source",
			"min_gpu_memory_gb", "min_vcpu", "created_at"
		)
		values ($1, $2, $3, $4, $5, now())
		`,
		model.Name, model.Version, model.Source,
		model.MinGPUMemoryGB, model.MinVCPU,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return dberr.Duplication{
				Table:    "model_registry",
				Identity: fmt.Sprintf("%s:%s", model.Name, model.Version),
			}
		}
		return xerrors.Wrap(err)
	}
	return nil
}

func (r *pgRegistry) Find(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(
		ctx,
		`select distinct "name" from "model_registry" order by "name"`,
	)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, xerrors.Wrap(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err)
	}

	return names, nil
}

func (r *pgRegistry) Get(ctx context.Context, name string) (domain.ModelSpec, error) {
	model := domain.ModelSpec{}
	err := r.pool.QueryRow(
		ctx,
		`
		select "name", "version", "source", "min_gpu_memory_gb", "min_vcpu", "created_at"
		from "model_registry"
		where "name" = $1
		order by "created_at" desc
		limit 1
		`,
		name,
	).Scan(
		&model.Name, &model.Version, &model.Source,
		&model.MinGPUMemoryGB, &model.MinVCPU, &model.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ModelSpec{}, dberr.Missing{Table: "model_registry", Identity: name}
	}
	if err != nil {
		return domain.ModelSpec{}, xerrors.Wrap(err)
	}

	return model, nil
}
