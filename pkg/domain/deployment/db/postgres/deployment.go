package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	kpool "github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool"
	"github.com/inferia-ai/inferia/pkg/domain"
	kdb "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	dberr "github.com/inferia-ai/inferia/pkg/domain/errors/dberrors/postgres"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type pgDeployment struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.DeploymentInterface {
	return &pgDeployment{pool: pool}
}

// statuses which hold (or are about to hold) a node, and so count
// against a pool's capacity.
var occupyingStatuses = []string{
	string(domain.Pending),
	string(domain.Provisioning),
	string(domain.Running),
	string(domain.Ready),
	string(domain.Terminating),
}

func (d *pgDeployment) New(
	ctx context.Context, spec domain.NewDeploymentSpec, model domain.ModelSpec,
) (string, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return "", xerrors.Wrap(err)
	}
	defer tx.Rollback(ctx)

	// Candidates in allocation order. No lock yet: the capacity check
	// happens per pool below, under that pool's row lock.
	candidates := []string{}
	rows, err := tx.Query(
		ctx,
		`
		select "pool_id" from "compute_pool"
		where "status" = 'active'
			and "gpu_memory_gb" >= $1
			and "vcpu" >= $2
		order by "price_per_hour", "created_at", "pool_id"
		`,
		model.MinGPUMemoryGB, model.MinVCPU,
	)
	if err != nil {
		return "", xerrors.Wrap(err)
	}
	for rows.Next() {
		var candidate string
		if err := rows.Scan(&candidate); err != nil {
			rows.Close()
			return "", xerrors.Wrap(err)
		}
		candidates = append(candidates, candidate)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", xerrors.Wrap(err)
	}

	poolId := ""
	for _, candidate := range candidates {
		// Lock first, count after, as two statements. The count then runs
		// on its own snapshot taken once the lock is granted, so it sees
		// deployments committed by a creation we waited behind. Folding the
		// count into the locking statement would let two concurrent
		// creations both count before either inserts.
		var capacity int
		err := tx.QueryRow(
			ctx,
			`select "capacity" from "compute_pool" where "pool_id" = $1 and "status" = 'active' for update`,
			candidate,
		).Scan(&capacity)
		if errors.Is(err, pgx.ErrNoRows) {
			// deactivated since it was listed.
			continue
		}
		if err != nil {
			return "", xerrors.Wrap(err)
		}

		var occupied int
		if err := tx.QueryRow(
			ctx,
			`select count(*) from "deployment" where "pool_id" = $1 and "status" = any($2::varchar[])`,
			candidate, occupyingStatuses,
		).Scan(&occupied); err != nil {
			return "", xerrors.Wrap(err)
		}

		if occupied < capacity {
			poolId = candidate
			break
		}
	}
	if poolId == "" {
		return "", fmt.Errorf(
			"%w: no active pool can host model %s", kerr.ErrNoCapacity, model.Name,
		)
	}

	deploymentId := uuid.NewString()
	configuration, err := json.Marshal(spec.Configuration)
	if err != nil {
		return "", xerrors.Wrap(err)
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "deployment" (
			"deployment_id", "org_id", "model_name", "engine", "configuration",
			"pool_id", "instance_id", "endpoint", "status", "retries",
			"error_message", "created_at", "updated_at"
		)
		values ($1, $2, $3, $4, $5, $6, '', '', $7, 0, '', now(), now())
		`,
		deploymentId, spec.OrgId, spec.ModelName, spec.Engine, configuration,
		poolId, string(domain.Pending),
	); err != nil {
		return "", xerrors.Wrap(err)
	}

	if err := insertOutbox(ctx, tx, domain.DeploymentCreated, domain.DeploymentEvent{
		DeploymentId: deploymentId,
		OrgId:        spec.OrgId,
		ModelName:    spec.ModelName,
		Engine:       spec.Engine,
		Status:       domain.Pending,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", xerrors.Wrap(err)
	}
	return deploymentId, nil
}

func (d *pgDeployment) Get(ctx context.Context, ids []string) (map[string]domain.Deployment, error) {
	rows, err := d.pool.Query(
		ctx,
		`
		select
			"deployment_id", "org_id", "model_name", "engine", "configuration",
			"pool_id", "instance_id", "endpoint", "status", "retries",
			"error_message", "created_at", "updated_at"
		from "deployment"
		where "deployment_id" = any($1::varchar[])
		`,
		ids,
	)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	deployments := map[string]domain.Deployment{}
	for rows.Next() {
		dep, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments[dep.Id] = dep
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err)
	}

	return deployments, nil
}

func (d *pgDeployment) Find(ctx context.Context, query domain.DeploymentFindQuery) ([]string, error) {
	statuses := statusesToStrings(query.Status)

	rows, err := d.pool.Query(
		ctx,
		`
		select "deployment_id" from "deployment"
		where ($1 = '' or "org_id" = $1)
			and ($2::varchar[] is null or "status" = any($2::varchar[]))
		order by "created_at", "deployment_id"
		`,
		query.OrgId, statuses,
	)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, xerrors.Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err)
	}

	return ids, nil
}

func (d *pgDeployment) SetStatus(
	ctx context.Context, id string, status domain.DeploymentStatus, outcome domain.Outcome,
) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return xerrors.Wrap(err)
	}
	defer tx.Rollback(ctx)

	cur, err := lockDeployment(ctx, tx, id)
	if err != nil {
		return err
	}

	if !cur.Status.CanAdvanceTo(status) {
		return fmt.Errorf(
			"%w: deployment %s: %s -> %s",
			kerr.ErrInvalidStatusChanging, id, cur.Status, status,
		)
	}

	retries := cur.Retries
	if status == domain.Provisioning {
		retries += 1
	}

	// Only running and ready rows carry an endpoint. instance_id stays
	// as-is regardless: deprovisioning needs it after the endpoint is gone.
	endpoint := cur.Endpoint
	if outcome.Endpoint != "" {
		endpoint = outcome.Endpoint
	}
	if !status.HasEndpoint() {
		endpoint = ""
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "deployment" set
			"status" = $2,
			"endpoint" = $3,
			"instance_id" = coalesce(nullif($4, ''), "instance_id"),
			"error_message" = $5,
			"retries" = $6,
			"updated_at" = now()
		where "deployment_id" = $1
		`,
		id, string(status), endpoint, outcome.InstanceId, outcome.Error, retries,
	); err != nil {
		return xerrors.Wrap(err)
	}

	if err := insertOutbox(ctx, tx, domain.DeploymentStatusChanged, domain.DeploymentEvent{
		DeploymentId: id,
		OrgId:        cur.OrgId,
		ModelName:    cur.ModelName,
		Engine:       cur.Engine,
		Status:       status,
		Endpoint:     endpoint,
		Error:        outcome.Error,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

func (d *pgDeployment) RequestTermination(ctx context.Context, id string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return xerrors.Wrap(err)
	}
	defer tx.Rollback(ctx)

	cur, err := lockDeployment(ctx, tx, id)
	if err != nil {
		return err
	}

	if !cur.Status.CanAdvanceTo(domain.Terminating) {
		return fmt.Errorf(
			"%w: deployment %s: %s -> %s",
			kerr.ErrInvalidStatusChanging, id, cur.Status, domain.Terminating,
		)
	}

	// terminating drops out of serving, so the endpoint goes away with it.
	if _, err := tx.Exec(
		ctx,
		`update "deployment" set "status" = $2, "endpoint" = '', "updated_at" = now() where "deployment_id" = $1`,
		id, string(domain.Terminating),
	); err != nil {
		return xerrors.Wrap(err)
	}

	if err := insertOutbox(ctx, tx, domain.DeploymentDeleteRequest, domain.DeploymentEvent{
		DeploymentId: id,
		OrgId:        cur.OrgId,
		ModelName:    cur.ModelName,
		Engine:       cur.Engine,
		Status:       domain.Terminating,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

func lockDeployment(ctx context.Context, tx kpool.Tx, id string) (domain.Deployment, error) {
	dep := domain.Deployment{}
	var status string
	err := tx.QueryRow(
		ctx,
		`
		select "deployment_id", "org_id", "model_name", "engine",
			"endpoint", "status", "retries"
		from "deployment"
		where "deployment_id" = $1
		for update
		`,
		id,
	).Scan(
		&dep.Id, &dep.OrgId, &dep.ModelName, &dep.Engine,
		&dep.Endpoint, &status, &dep.Retries,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deployment{}, dberr.Missing{Table: "deployment", Identity: id}
	}
	if err != nil {
		return domain.Deployment{}, xerrors.Wrap(err)
	}

	st, err := domain.AsDeploymentStatus(status)
	if err != nil {
		return domain.Deployment{}, xerrors.Wrap(err)
	}
	dep.Status = st

	return dep, nil
}

func insertOutbox(
	ctx context.Context, tx kpool.Queryer, eventType domain.EventType, payload domain.DeploymentEvent,
) error {
	raw, err := payload.Marshal()
	if err != nil {
		return xerrors.Wrap(err)
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "outbox_event" ("event_id", "aggregate_id", "event_type", "payload", "created_at")
		values ($1, $2, $3, $4, now())
		`,
		uuid.NewString(), payload.DeploymentId, string(eventType), raw,
	); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeployment(row rowScanner) (domain.Deployment, error) {
	dep := domain.Deployment{}
	var status string
	var configuration []byte
	if err := row.Scan(
		&dep.Id, &dep.OrgId, &dep.ModelName, &dep.Engine, &configuration,
		&dep.PoolId, &dep.InstanceId, &dep.Endpoint, &status, &dep.Retries,
		&dep.ErrorMessage, &dep.CreatedAt, &dep.UpdatedAt,
	); err != nil {
		return domain.Deployment{}, xerrors.Wrap(err)
	}

	if len(configuration) != 0 {
		if err := json.Unmarshal(configuration, &dep.Configuration); err != nil {
			return domain.Deployment{}, xerrors.Wrap(err)
		}
	}

	st, err := domain.AsDeploymentStatus(status)
	if err != nil {
		return domain.Deployment{}, xerrors.Wrap(err)
	}
	dep.Status = st

	return dep, nil
}

func statusesToStrings(statuses []domain.DeploymentStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	ss := make([]string, len(statuses))
	for nth, s := range statuses {
		ss[nth] = string(s)
	}
	return ss
}
