// DePIN marketplaces are reached through a sidecar process which
// normalizes the marketplace's own API to a small JSON one:
//
//	GET    /api/offers?region=...   list rentable resources
//	POST   /api/rentals             rent one (idempotent on token)
//	DELETE /api/rentals/:id         release it
package depin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	"github.com/inferia-ai/inferia/pkg/utils/slices"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

type depinAdapter struct {
	client  *http.Client
	baseUrl string
}

func New(client *http.Client, baseUrl string) adapter.Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &depinAdapter{client: client, baseUrl: baseUrl}
}

func (a *depinAdapter) Provider() domain.Provider {
	return domain.DePIN
}

type offer struct {
	OfferId      string  `json:"offer_id"`
	GPUType      string  `json:"gpu_type"`
	GPUCount     int     `json:"gpu_count"`
	GPUMemoryGB  int     `json:"gpu_memory_gb"`
	VCPU         int     `json:"vcpu"`
	RAMGB        int     `json:"ram_gb"`
	Region       string  `json:"region"`
	PricePerHour float64 `json:"price_per_hour"`
}

func (a *depinAdapter) Discover(ctx context.Context, pool domain.ComputePool) ([]domain.ComputeResource, error) {
	query := url.Values{}
	query.Set("region", pool.Region)
	query.Set("gpu_type", pool.GPUType)

	var offers []offer
	if err := a.do(
		ctx, http.MethodGet, "/api/offers?"+query.Encode(), nil, &offers,
	); err != nil {
		return nil, err
	}

	return slices.Map(offers, func(o offer) domain.ComputeResource {
		return domain.ComputeResource{
			Provider:           domain.DePIN,
			ProviderResourceId: o.OfferId,
			GPUType:            o.GPUType,
			GPUCount:           o.GPUCount,
			GPUMemoryGB:        o.GPUMemoryGB,
			VCPU:               o.VCPU,
			RAMGB:              o.RAMGB,
			Region:             o.Region,
			PricingModel:       "spot",
			PricePerHour:       o.PricePerHour,
		}
	}), nil
}

type rentalRequest struct {
	Token       string  `json:"token"`
	GPUType     string  `json:"gpu_type"`
	GPUCount    int     `json:"gpu_count"`
	MinVCPU     int     `json:"min_vcpu"`
	MinRAMGB    int     `json:"min_ram_gb"`
	Region      string  `json:"region"`
	MaxPrice    float64 `json:"max_price_per_hour"`
	Image       string  `json:"image,omitempty"`
	ModelSource string  `json:"model_source"`
	Engine      string  `json:"engine"`
}

type rental struct {
	RentalId string `json:"rental_id"`
	Endpoint string `json:"endpoint"`
}

func (a *depinAdapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
	var rented rental
	if err := a.do(ctx, http.MethodPost, "/api/rentals", rentalRequest{
		Token:       req.Token,
		GPUType:     req.Pool.GPUType,
		GPUCount:    req.Pool.GPUCount,
		MinVCPU:     req.Model.MinVCPU,
		MinRAMGB:    req.Pool.RAMGB,
		Region:      req.Pool.Region,
		MaxPrice:    req.Pool.PricePerHour,
		ModelSource: req.Model.Source,
		Engine:      req.Engine,
	}, &rented); err != nil {
		return domain.Node{}, err
	}

	return domain.Node{
		ProviderInstanceId: rented.RentalId,
		Hostname:           rented.Endpoint,
	}, nil
}

func (a *depinAdapter) Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error {
	path := "/api/rentals/" + url.PathEscape(instanceId)
	err := a.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		var missing *statusError
		if errors.As(err, &missing) && missing.status == http.StatusNotFound {
			// the rental expired or was released already.
			return nil
		}
	}
	return err
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("depin sidecar responded %d: %s", e.status, e.body)
}

func (a *depinAdapter) do(ctx context.Context, method string, path string, in interface{}, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return xerrors.Wrap(err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseUrl+path, body)
	if err != nil {
		return xerrors.Wrap(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return xerrors.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return xerrors.Wrap(&statusError{status: resp.StatusCode, body: string(raw)})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerrors.Wrap(err)
	}
	return nil
}
