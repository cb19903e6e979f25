package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	binderr "github.com/inferia-ai/inferia/pkg/api-types-binding/errors"
	bindmodels "github.com/inferia-ai/inferia/pkg/api-types-binding/models"
	apimodels "github.com/inferia-ai/inferia/pkg/api/types/models"
	"github.com/inferia-ai/inferia/pkg/domain"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	kregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db"
)

func ModelRegisterHandler(registry kregistry.RegistryInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		if !strings.HasPrefix(strings.ToLower(req.Header.Get("content-type")), "application/json") {
			return binderr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		spec := new(apimodels.Spec)
		if err := json.NewDecoder(req.Body).Decode(spec); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		if spec.Name == "" {
			return binderr.BadRequest("name is required", nil)
		}
		if spec.Source == "" {
			return binderr.BadRequest("source is required", nil)
		}

		model := domain.ModelSpec{
			Name:           spec.Name,
			Version:        spec.Version,
			Source:         spec.Source,
			MinGPUMemoryGB: spec.MinGPUMemoryGB,
			MinVCPU:        spec.MinVCPU,
		}
		if err := registry.Register(ctx, model); err != nil {
			if errors.Is(err, kerr.ErrConflict) {
				return binderr.Conflict(
					"the model is registered already. entries are immutable",
					binderr.WithSee(spec.Name),
					binderr.WithError(err),
				)
			}
			return binderr.InternalServerError(err)
		}

		registered, err := registry.Get(ctx, spec.Name)
		if err != nil {
			return binderr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, bindmodels.ComposeDetail(registered))
	}
}

func FindModelHandler(registry kregistry.RegistryInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		names, err := registry.Find(ctx)
		if err != nil {
			return binderr.InternalServerError(err)
		}

		found := make([]apimodels.Detail, 0, len(names))
		for _, name := range names {
			model, err := registry.Get(ctx, name)
			if err != nil {
				if kerr.AsMissingError(err) {
					// deregistered between Find and now. skip.
					continue
				}
				return binderr.InternalServerError(err)
			}
			found = append(found, bindmodels.ComposeDetail(model))
		}

		return c.JSON(http.StatusOK, found)
	}
}

func GetModelHandler(registry kregistry.RegistryInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		name := c.Param(paramKey)

		model, err := registry.Get(ctx, name)
		if err != nil {
			if kerr.AsMissingError(err) {
				return binderr.NotFound()
			}
			return binderr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, bindmodels.ComposeDetail(model))
	}
}
