package models

import (
	apimodels "github.com/inferia-ai/inferia/pkg/api/types/models"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
)

func ComposeDetail(m domain.ModelSpec) apimodels.Detail {
	return apimodels.Detail{
		Name:           m.Name,
		Version:        m.Version,
		Source:         m.Source,
		MinGPUMemoryGB: m.MinGPUMemoryGB,
		MinVCPU:        m.MinVCPU,
		CreatedAt:      rfctime.RFC3339(m.CreatedAt),
	}
}
