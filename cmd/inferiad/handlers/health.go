package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	binderr "github.com/inferia-ai/inferia/pkg/api-types-binding/errors"
)

// Pinger verifies a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

type pinger struct {
	name string
	ping func(ctx context.Context) error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.ping(ctx)
}

func (p pinger) Name() string {
	return p.name
}

func NewPinger(name string, ping func(ctx context.Context) error) Pinger {
	return pinger{name: name, ping: ping}
}

// HealthHandler answers liveness. It is true as long as the process serves.
func HealthHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyHandler answers readiness: every backing service must be reachable.
func ReadyHandler(pingers ...Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		for _, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				return binderr.ServiceUnavailable(p.Name()+" is not reachable", err)
			}
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
}
