// Package server exposes a read-only HTTP view of the pipeline: the build
// manifest, the run log and per-model readiness. It never triggers
// generation; the CLI verbs stay the only write path.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"testbuilder/internal/domain"
	"testbuilder/internal/manifest"
	"testbuilder/internal/naming"
	"testbuilder/internal/ready"
	"testbuilder/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Workdir      string
	ManifestPath string
	Repo         repo.Repo
	BasePath     string
	Auth         AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"manifest could not be read"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the status API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Testbuilder API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerStatus(group, cfg)
	registerManifest(group, cfg)
	registerRuns(group, cfg)
	registerReadiness(group, cfg)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var pe *manifest.ParseError
	if errors.As(err, &pe) {
		return newAPIError(http.StatusNotFound, "manifest_unreadable", err.Error(), map[string]any{"path": pe.Path})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type statusBody struct {
	Workdir  string `json:"workdir"`
	Manifest string `json:"manifest"`
	Sources  int    `json:"sources"`
	Runs     int    `json:"runs"`
}

func registerStatus(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Pipeline status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body statusBody `json:"body"`
	}, error) {
		m, err := manifest.Load(cfg.ManifestPath)
		if err != nil {
			return nil, handleError(err)
		}
		runs, err := cfg.Repo.CountRuns(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body statusBody `json:"body"`
		}{Body: statusBody{
			Workdir:  cfg.Workdir,
			Manifest: cfg.ManifestPath,
			Sources:  m.Sources.Len(),
			Runs:     runs,
		}}, nil
	})
}

type manifestBody struct {
	Path   string   `json:"path"`
	Source []string `json:"source"`
}

func registerManifest(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "manifest",
		Method:      http.MethodGet,
		Path:        "/manifest",
		Summary:     "Build manifest source list",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body manifestBody `json:"body"`
	}, error) {
		m, err := manifest.Load(cfg.ManifestPath)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body manifestBody `json:"body"`
		}{Body: manifestBody{Path: cfg.ManifestPath, Source: m.Sources.Sorted()}}, nil
	})
}

func registerRuns(api huma.API, cfg Config) {
	type runsQuery struct {
		N     int    `query:"n" default:"20" minimum:"1" maximum:"500"`
		Verb  string `query:"verb"`
		Model string `query:"model"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "Recent run-log entries",
	}, func(ctx context.Context, input *runsQuery) (*struct {
		Body struct {
			Items []domain.Run `json:"items"`
		} `json:"body"`
	}, error) {
		runs, err := cfg.Repo.LatestRuns(ctx, input.N, input.Verb, input.Model)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items []domain.Run `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = runs
		return out, nil
	})
}

type readinessBody struct {
	Model   string   `json:"model"`
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

func registerReadiness(api huma.API, cfg Config) {
	type modelPath struct {
		Model string `path:"model"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "readiness",
		Method:      http.MethodGet,
		Path:        "/models/{model}/readiness",
		Summary:     "Model input readiness",
	}, func(ctx context.Context, input *modelPath) (*struct {
		Body readinessBody `json:"body"`
	}, error) {
		if err := naming.CheckModel(input.Model); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		body := readinessBody{Model: input.Model, Ready: true}
		if err := ready.Validate(cfg.Workdir, input.Model); err != nil {
			var mi *ready.MissingInputError
			if !errors.As(err, &mi) {
				return nil, handleError(err)
			}
			body.Ready = false
			for _, in := range mi.Missing {
				body.Missing = append(body.Missing, in.Name)
			}
		}
		return &struct {
			Body readinessBody `json:"body"`
		}{Body: body}, nil
	})
}
