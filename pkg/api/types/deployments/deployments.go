package deployments

import (
	"github.com/inferia-ai/inferia/pkg/utils/cmp"
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
)

// Spec is a request to deploy a model.
type Spec struct {
	OrgId         string            `json:"org_id"`
	ModelName     string            `json:"model_name"`
	Engine        string            `json:"engine"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// Detail is a deployment and its current lifecycle position.
type Detail struct {
	DeploymentId  string            `json:"deployment_id"`
	OrgId         string            `json:"org_id"`
	ModelName     string            `json:"model_name"`
	Engine        string            `json:"engine"`
	Configuration map[string]string `json:"configuration,omitempty"`
	PoolId        string            `json:"pool_id"`
	InstanceId    string            `json:"instance_id,omitempty"`
	Endpoint      string            `json:"endpoint,omitempty"`
	Status        string            `json:"status"`
	Retries       int               `json:"retries"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	CreatedAt     rfctime.RFC3339   `json:"created_at"`
	UpdatedAt     rfctime.RFC3339   `json:"updated_at"`
}

func (d Detail) Equal(other Detail) bool {
	return d.DeploymentId == other.DeploymentId &&
		d.OrgId == other.OrgId &&
		d.ModelName == other.ModelName &&
		d.Engine == other.Engine &&
		cmp.MapEq(d.Configuration, other.Configuration) &&
		d.PoolId == other.PoolId &&
		d.InstanceId == other.InstanceId &&
		d.Endpoint == other.Endpoint &&
		d.Status == other.Status &&
		d.Retries == other.Retries &&
		d.ErrorMessage == other.ErrorMessage
}
