package deployments

import (
	apideployments "github.com/inferia-ai/inferia/pkg/api/types/deployments"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
)

func ComposeDetail(d domain.Deployment) apideployments.Detail {
	return apideployments.Detail{
		DeploymentId:  d.Id,
		OrgId:         d.OrgId,
		ModelName:     d.ModelName,
		Engine:        d.Engine,
		Configuration: d.Configuration,
		PoolId:        d.PoolId,
		InstanceId:    d.InstanceId,
		Endpoint:      d.Endpoint,
		Status:        d.Status.String(),
		Retries:       d.Retries,
		ErrorMessage:  d.ErrorMessage,
		CreatedAt:     rfctime.RFC3339(d.CreatedAt),
		UpdatedAt:     rfctime.RFC3339(d.UpdatedAt),
	}
}
