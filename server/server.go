// Package server exposes the orchestrators over HTTP: typed operations on
// projects and sessions, tenant-scoped through bearer-token auth, with a
// uniform error envelope.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/Lewis121025/Generate-Agent/creative"
	"github.com/Lewis121025/Generate-Agent/general"
	"github.com/Lewis121025/Generate-Agent/store"
)

// Config for the HTTP API handler.
type Config struct {
	Creative *creative.Orchestrator
	General  *general.Orchestrator
	BasePath string
	Auth     AuthConfig
	// ExposeErrorDetails attaches the underlying error text to internal-error
	// envelopes. Off in production: clients get the generic message only.
	ExposeErrorDetails bool
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"approval only legal from script_review"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns the HTTP handler for the engine API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))

	hcfg := huma.DefaultConfig("Generate-Agent API", "0.1.0")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	errs := errorMapper{exposeInternal: cfg.ExposeErrorDetails}
	registerHealth(group)
	registerCreative(group, cfg.Creative, errs)
	registerGeneral(group, cfg.General, errs)

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

// errorMapper maps the domain error taxonomy onto HTTP statuses. Internal
// errors carry their underlying text only when exposure is enabled; otherwise
// the envelope holds the generic message alone.
type errorMapper struct {
	exposeInternal bool
}

func (m errorMapper) handle(err error) huma.StatusError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, creative.ErrInvalidTransition):
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, general.ErrSessionNotActive):
		return newAPIError(http.StatusConflict, "session_not_active", err.Error(), nil)
	default:
		var details map[string]any
		if m.exposeInternal {
			details = map[string]any{"error": err.Error()}
		}
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", details)
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
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
