package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	binderr "github.com/inferia-ai/inferia/pkg/api-types-binding/errors"
	bindpools "github.com/inferia-ai/inferia/pkg/api-types-binding/pools"
	apipools "github.com/inferia-ai/inferia/pkg/api/types/pools"
	"github.com/inferia-ai/inferia/pkg/domain"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	kpool "github.com/inferia-ai/inferia/pkg/domain/pool/db"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/utils/slices"
)

func PoolRegisterHandler(dbpool kpool.PoolInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		if !strings.HasPrefix(strings.ToLower(req.Header.Get("content-type")), "application/json") {
			return binderr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		spec := new(apipools.Spec)
		if err := json.NewDecoder(req.Body).Decode(spec); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		pool, err := poolFromSpec(*spec)
		if err != nil {
			return binderr.BadRequest(err.Error(), err)
		}

		poolId, err := dbpool.Register(ctx, pool)
		if err != nil {
			if errors.Is(err, kerr.ErrConflict) {
				return binderr.Conflict(
					"a pool with same name exists", binderr.WithError(err),
				)
			}
			return binderr.InternalServerError(err)
		}

		registered, err := dbpool.Get(ctx, []string{poolId})
		if err != nil {
			return binderr.InternalServerError(err)
		}
		found, ok := registered[poolId]
		if !ok {
			return binderr.InternalServerError(
				errors.New("registered pool is not found"),
			)
		}

		return c.JSON(http.StatusOK, bindpools.ComposeDetail(found))
	}
}

func poolFromSpec(spec apipools.Spec) (domain.ComputePool, error) {
	if spec.Name == "" {
		return domain.ComputePool{}, errors.New("name is required")
	}
	provider, err := domain.AsProvider(spec.Provider)
	if err != nil {
		return domain.ComputePool{}, err
	}
	if spec.Capacity < 1 {
		return domain.ComputePool{}, errors.New("capacity should be 1 or more")
	}

	return domain.ComputePool{
		Name:         spec.Name,
		Provider:     provider,
		Region:       spec.Region,
		GPUType:      spec.GPUType,
		GPUCount:     spec.GPUCount,
		GPUMemoryGB:  spec.GPUMemoryGB,
		VCPU:         spec.VCPU,
		RAMGB:        spec.RAMGB,
		PricingModel: spec.PricingModel,
		PricePerHour: spec.PricePerHour,
		Capacity:     spec.Capacity,
		Status:       domain.PoolActive,
	}, nil
}

func FindPoolHandler(dbpool kpool.PoolInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		statuses, err := slices.MapUntilError(
			c.QueryParams()["status"], domain.AsPoolStatus,
		)
		if err != nil {
			return binderr.BadRequest(
				"status should be one of active, draining or disabled", err,
			)
		}

		poolIds, err := dbpool.Find(ctx, statuses)
		if err != nil {
			return binderr.InternalServerError(err)
		}
		if len(poolIds) == 0 {
			return c.JSON(http.StatusOK, []apipools.Detail{})
		}

		pools, err := dbpool.Get(ctx, poolIds)
		if err != nil {
			return binderr.InternalServerError(err)
		}

		found := make([]apipools.Detail, 0, len(pools))
		for _, poolId := range poolIds {
			if p, ok := pools[poolId]; ok {
				found = append(found, bindpools.ComposeDetail(p))
			}
		}

		return c.JSON(http.StatusOK, found)
	}
}

// PoolDiscoveryHandler asks the pool's provider what is provisionable
// right now.
func PoolDiscoveryHandler(
	dbpool kpool.PoolInterface, eng engine.Engine, paramKey string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		poolId := c.Param(paramKey)

		pools, err := dbpool.Get(ctx, []string{poolId})
		if err != nil {
			return binderr.InternalServerError(err)
		}
		pool, ok := pools[poolId]
		if !ok {
			return binderr.NotFound()
		}

		discovery, err := eng.DiscoverResources(ctx, pool)
		if err != nil {
			return binderr.ServiceUnavailable(
				"the provider of the pool can not be asked now. retry later.", err,
			)
		}

		return c.JSON(http.StatusOK, bindpools.ComposeDiscovery(poolId, discovery))
	}
}
