package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/inferia-ai/inferia/cmd/inferiad/handlers"
	httptestutil "github.com/inferia-ai/inferia/internal/testutils/http"
	apimodels "github.com/inferia-ai/inferia/pkg/api/types/models"
	"github.com/inferia-ai/inferia/pkg/domain"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	registrymock "github.com/inferia-ai/inferia/pkg/domain/registry/db/mock"
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func TestModelRegisterHandler(t *testing.T) {
	t.Run("it registers a model and returns it", func(t *testing.T) {
		createdAt := try.To(rfctime.ParseRFC3339DateTime(
			"2025-10-30T12:34:56+00:00",
		)).OrFatal(t).Time()

		mckregistry := registrymock.NewRegistryInterface()
		mckregistry.Impl.Register = func(ctx context.Context, model domain.ModelSpec) error {
			return nil
		}
		mckregistry.Impl.Get = func(ctx context.Context, name string) (domain.ModelSpec, error) {
			return domain.ModelSpec{
				Name: "llama-3-70b", Version: "1", Source: "s3://models/llama-3-70b",
				MinGPUMemoryGB: 80, MinVCPU: 8, CreatedAt: createdAt,
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/models/",
			strings.NewReader(`{
				"name": "llama-3-70b", "version": "1",
				"source": "s3://models/llama-3-70b",
				"min_gpu_memory_gb": 80, "min_vcpu": 8
			}`),
			httptestutil.ContentType("application/json"),
		)

		testee := handlers.ModelRegisterHandler(mckregistry)
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		if respRec.Result().StatusCode != http.StatusOK {
			t.Errorf("status code is not 200: %d", respRec.Result().StatusCode)
		}

		if len(mckregistry.Calls.Register) != 1 {
			t.Fatalf("Register is called %d times, not once", len(mckregistry.Calls.Register))
		}
		registered := mckregistry.Calls.Register[0]
		expectedModel := domain.ModelSpec{
			Name: "llama-3-70b", Version: "1", Source: "s3://models/llama-3-70b",
			MinGPUMemoryGB: 80, MinVCPU: 8,
		}
		if !registered.Equal(expectedModel) {
			t.Errorf("Register is called with unexpected model: %+v", registered)
		}

		actual := apimodels.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		expected := apimodels.Detail{
			Name: "llama-3-70b", Version: "1", Source: "s3://models/llama-3-70b",
			MinGPUMemoryGB: 80, MinVCPU: 8,
		}
		if !actual.Equal(expected) {
			t.Errorf(
				"response body:\n- actual   : %+v\n- expected : %+v",
				actual, expected,
			)
		}
	})

	t.Run("it responds 400 when name is missing", func(t *testing.T) {
		mckregistry := registrymock.NewRegistryInterface()

		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/models/",
			strings.NewReader(`{"source": "s3://models/anonymous"}`),
			httptestutil.ContentType("application/json"),
		)

		testee := handlers.ModelRegisterHandler(mckregistry)
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusBadRequest {
			t.Errorf("status code is not 400: %d", echoErr.Code)
		}
		if len(mckregistry.Calls.Register) != 0 {
			t.Error("Register is called, unexpectedly")
		}
	})

	t.Run("it responds 409 when the model is registered already", func(t *testing.T) {
		mckregistry := registrymock.NewRegistryInterface()
		mckregistry.Impl.Register = func(ctx context.Context, model domain.ModelSpec) error {
			return kerr.ErrConflict
		}

		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/models/",
			strings.NewReader(`{"name": "llama-3-70b", "source": "s3://models/llama-3-70b"}`),
			httptestutil.ContentType("application/json"),
		)

		testee := handlers.ModelRegisterHandler(mckregistry)
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusConflict {
			t.Errorf("status code is not 409: %d", echoErr.Code)
		}
	})
}

func TestFindModelHandler(t *testing.T) {
	t.Run("it lists registered models", func(t *testing.T) {
		mckregistry := registrymock.NewRegistryInterface()
		mckregistry.Impl.Find = func(ctx context.Context) ([]string, error) {
			return []string{"llama-3-70b", "mistral-7b"}, nil
		}
		mckregistry.Impl.Get = func(ctx context.Context, name string) (domain.ModelSpec, error) {
			return domain.ModelSpec{Name: name, Source: "s3://models/" + name}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/models/")

		testee := handlers.FindModelHandler(mckregistry)
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		actual := []apimodels.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if len(actual) != 2 ||
			actual[0].Name != "llama-3-70b" || actual[1].Name != "mistral-7b" {
			t.Errorf("unexpected models: %+v", actual)
		}
	})
}

func TestGetModelHandler(t *testing.T) {
	t.Run("it returns the named model", func(t *testing.T) {
		mckregistry := registrymock.NewRegistryInterface()
		mckregistry.Impl.Get = func(ctx context.Context, name string) (domain.ModelSpec, error) {
			return domain.ModelSpec{
				Name: name, Version: "2", Source: "s3://models/" + name,
				MinGPUMemoryGB: 24, MinVCPU: 4,
			}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/models/mistral-7b/")
		c.SetParamNames("name")
		c.SetParamValues("mistral-7b")

		testee := handlers.GetModelHandler(mckregistry, "name")
		if err := testee(c); err != nil {
			t.Fatal(err)
		}

		actual := apimodels.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		expected := apimodels.Detail{
			Name: "mistral-7b", Version: "2", Source: "s3://models/mistral-7b",
			MinGPUMemoryGB: 24, MinVCPU: 4,
		}
		if !actual.Equal(expected) {
			t.Errorf(
				"response body:\n- actual   : %+v\n- expected : %+v",
				actual, expected,
			)
		}
	})

	t.Run("it responds 404 for an unknown model", func(t *testing.T) {
		mckregistry := registrymock.NewRegistryInterface()
		mckregistry.Impl.Get = func(ctx context.Context, name string) (domain.ModelSpec, error) {
			return domain.ModelSpec{}, kerr.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/models/no-such-model/")
		c.SetParamNames("name")
		c.SetParamValues("no-such-model")

		testee := handlers.GetModelHandler(mckregistry, "name")
		err := testee(c)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusNotFound {
			t.Errorf("status code is not 404: %d", echoErr.Code)
		}
	})
}
