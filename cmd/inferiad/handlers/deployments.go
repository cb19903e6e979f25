package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	binddeployments "github.com/inferia-ai/inferia/pkg/api-types-binding/deployments"
	binderr "github.com/inferia-ai/inferia/pkg/api-types-binding/errors"
	apideployments "github.com/inferia-ai/inferia/pkg/api/types/deployments"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	kdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	"github.com/inferia-ai/inferia/pkg/utils/slices"
)

// DeploymentCreateHandler accepts a deployment request.
//
// The deployment comes back pending. Provisioning happens
// asynchronously; poll GET to watch it progress.
func DeploymentCreateHandler(
	ctrl controller.Controller, dbDeployment kdeployment.DeploymentInterface,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		if !strings.HasPrefix(strings.ToLower(req.Header.Get("content-type")), "application/json") {
			return binderr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		spec := new(apideployments.Spec)
		if err := json.NewDecoder(req.Body).Decode(spec); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		deploymentId, err := ctrl.Create(ctx, domain.NewDeploymentSpec{
			OrgId:         spec.OrgId,
			ModelName:     spec.ModelName,
			Engine:        spec.Engine,
			Configuration: spec.Configuration,
		})
		if err != nil {
			if kerr.AsValidation(err) {
				return binderr.BadRequest(err.Error(), err)
			}
			return binderr.InternalServerError(err)
		}

		created, err := dbDeployment.Get(ctx, []string{deploymentId})
		if err != nil {
			return binderr.InternalServerError(err)
		}
		found, ok := created[deploymentId]
		if !ok {
			return binderr.InternalServerError(
				errors.New("created deployment is not found"),
			)
		}

		return c.JSON(http.StatusOK, binddeployments.ComposeDetail(found))
	}
}

func FindDeploymentHandler(dbDeployment kdeployment.DeploymentInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		statuses, err := slices.MapUntilError(
			c.QueryParams()["status"], domain.AsDeploymentStatus,
		)
		if err != nil {
			return binderr.BadRequest(
				"status should be a deployment status", err,
			)
		}

		deploymentIds, err := dbDeployment.Find(ctx, domain.DeploymentFindQuery{
			OrgId:  c.QueryParam("org"),
			Status: statuses,
		})
		if err != nil {
			return binderr.InternalServerError(err)
		}
		if len(deploymentIds) == 0 {
			return c.JSON(http.StatusOK, []apideployments.Detail{})
		}

		deployments, err := dbDeployment.Get(ctx, deploymentIds)
		if err != nil {
			return binderr.InternalServerError(err)
		}

		found := make([]apideployments.Detail, 0, len(deployments))
		for _, deploymentId := range deploymentIds {
			if d, ok := deployments[deploymentId]; ok {
				found = append(found, binddeployments.ComposeDetail(d))
			}
		}

		return c.JSON(http.StatusOK, found)
	}
}

func GetDeploymentHandler(
	dbDeployment kdeployment.DeploymentInterface, paramKey string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		deploymentId := c.Param(paramKey)

		deployments, err := dbDeployment.Get(ctx, []string{deploymentId})
		if err != nil {
			return binderr.InternalServerError(err)
		}
		found, ok := deployments[deploymentId]
		if !ok {
			return binderr.NotFound()
		}

		return c.JSON(http.StatusOK, binddeployments.ComposeDetail(found))
	}
}

// DeleteDeploymentHandler requests termination.
//
// It answers 202 Accepted: the node is released asynchronously and the
// deployment reaches terminated later.
func DeleteDeploymentHandler(
	ctrl controller.Controller, paramKey string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		deploymentId := c.Param(paramKey)

		if err := ctrl.Delete(ctx, deploymentId); err != nil {
			if kerr.AsMissingError(err) {
				return binderr.NotFound()
			}
			if kerr.AsInvalidStatusChanging(err) {
				return binderr.Conflict(
					"the deployment can not be terminated from its current status",
					binderr.WithError(err),
				)
			}
			return binderr.InternalServerError(err)
		}

		return c.NoContent(http.StatusAccepted)
	}
}
