package domain

import (
	"fmt"
	"time"

	"github.com/inferia-ai/inferia/pkg/utils/cmp"
)

type DeploymentStatus string

const (
	// Accepted and persisted; no provisioning attempt made yet.
	Pending DeploymentStatus = "pending"

	// The worker is acquiring a node from the provider.
	Provisioning DeploymentStatus = "provisioning"

	// A node is up and the endpoint is known.
	Running DeploymentStatus = "running"

	// The endpoint answered its health probe. Terminal success.
	Ready DeploymentStatus = "ready"

	// Provisioning attempts are exhausted. Terminal unless retried.
	Failed DeploymentStatus = "failed"

	// Termination was requested; the node may still exist.
	Terminating DeploymentStatus = "terminating"

	// The node is gone (or abandoned to the reaper). Terminal.
	Terminated DeploymentStatus = "terminated"
)

func (ds DeploymentStatus) String() string {
	return string(ds)
}

func AsDeploymentStatus(s string) (DeploymentStatus, error) {
	switch s {
	case string(Pending):
		return Pending, nil
	case string(Provisioning):
		return Provisioning, nil
	case string(Running):
		return Running, nil
	case string(Ready):
		return Ready, nil
	case string(Failed):
		return Failed, nil
	case string(Terminating):
		return Terminating, nil
	case string(Terminated):
		return Terminated, nil
	default:
		return "", fmt.Errorf("'%s' is not DeploymentStatus", s)
	}
}

// IsTerminal reports whether no further transition is possible,
// except Failed which may re-enter provisioning by an explicit retry.
func (ds DeploymentStatus) IsTerminal() bool {
	switch ds {
	case Ready, Failed, Terminated:
		return true
	default:
		return false
	}
}

// HasEndpoint reports whether a deployment in this status may carry an endpoint.
func (ds DeploymentStatus) HasEndpoint() bool {
	switch ds {
	case Running, Ready:
		return true
	default:
		return false
	}
}

// CanAdvanceTo is the transition table of the deployment lifecycle.
//
// Anything not listed here is rejected as ErrInvalidStatusChanging.
// Duplicate event delivery lands on an already-advanced row and gets rejected
// here, which callers treat as a logged no-op.
func (ds DeploymentStatus) CanAdvanceTo(next DeploymentStatus) bool {
	switch ds {
	case Pending:
		return next == Provisioning || next == Terminating
	case Provisioning:
		return next == Running || next == Failed || next == Terminating
	case Running:
		return next == Ready || next == Failed || next == Terminating
	case Ready:
		return next == Terminating
	case Failed:
		// user-initiated cleanup of the failed deployment, or an explicit retry.
		return next == Terminating || next == Provisioning
	case Terminating:
		return next == Terminated
	case Terminated:
		return false
	default:
		return false
	}
}

// Deployment is a running (or pending) instance of a model served via an engine.
//
// The row in the deployments table is the single source of truth for Status.
// All mutation goes through the repository's transition-checked transaction.
type Deployment struct {
	Id            string
	OrgId         string
	ModelName     string
	Engine        string
	Configuration map[string]string
	PoolId        string
	InstanceId    string
	Endpoint      string
	Status        DeploymentStatus
	Retries       int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (d Deployment) Equal(other Deployment) bool {
	return d.Id == other.Id &&
		d.OrgId == other.OrgId &&
		d.ModelName == other.ModelName &&
		d.Engine == other.Engine &&
		cmp.MapEq(d.Configuration, other.Configuration) &&
		d.PoolId == other.PoolId &&
		d.InstanceId == other.InstanceId &&
		d.Endpoint == other.Endpoint &&
		d.Status == other.Status &&
		d.ErrorMessage == other.ErrorMessage
}

// NewDeploymentSpec is what a caller provides to create a deployment.
type NewDeploymentSpec struct {
	OrgId         string
	ModelName     string
	Engine        string
	Configuration map[string]string
}

// Outcome carries the facts learned along with a status transition.
//
// Endpoint and InstanceId are recorded on running, Error on failed.
type Outcome struct {
	Endpoint   string
	InstanceId string
	Error      string
}

// parameter to query deployments.
//
// When all dimension matches a deployment, this query matches the deployment.
type DeploymentFindQuery struct {
	// match if deployment's org is this one.
	//
	// If it is empty, it means "match any".
	OrgId string

	// match if deployment's status is one of these statuses.
	//
	// If it is nil or empty, it means "match any".
	Status []DeploymentStatus
}

func (q DeploymentFindQuery) Equal(other DeploymentFindQuery) bool {
	return q.OrgId == other.OrgId &&
		cmp.SliceContentEq(q.Status, other.Status)
}
