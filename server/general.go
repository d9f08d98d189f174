package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Lewis121025/Generate-Agent/general"
)

// CreateSessionRequest is the caller's session spec.
type CreateSessionRequest struct {
	Goal          string  `json:"goal" example:"find the three most cited papers on raft consensus"`
	MaxIterations int     `json:"max_iterations,omitempty" example:"5"`
	BudgetUSD     float64 `json:"budget_usd,omitempty" example:"5"`
}

type sessionPath struct {
	SessionID string `path:"session_id"`
}

type sessionBody struct {
	Body *general.Session `json:"body"`
}

func registerGeneral(api huma.API, orch *general.Orchestrator, errs errorMapper) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/general/sessions",
		Summary:       "Create a reasoning session",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateSessionRequest `json:"body"`
	}) (*sessionBody, error) {
		tenant, authErr := tenantFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Goal == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "goal is required", nil)
		}
		s, err := orch.CreateSession(ctx, general.CreateSpec{
			TenantID:      tenant,
			Goal:          input.Body.Goal,
			MaxIterations: input.Body.MaxIterations,
			BudgetUSD:     input.Body.BudgetUSD,
		})
		if err != nil {
			return nil, errs.handle(err)
		}
		return &sessionBody{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/general/sessions",
		Summary:     "List the tenant's sessions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []*general.Session `json:"body"`
	}, error) {
		tenant, authErr := tenantFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := orch.ListForTenant(ctx, tenant)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &struct {
			Body []*general.Session `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/general/sessions/{session_id}",
		Summary:     "Get a session",
	}, func(ctx context.Context, input *sessionPath) (*sessionBody, error) {
		s, err := loadTenantSession(ctx, orch, errs, input.SessionID)
		if err != nil {
			return nil, err
		}
		return &sessionBody{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "iterate-session",
		Method:      http.MethodPost,
		Path:        "/general/sessions/{session_id}/iterate",
		Summary:     "Run one think/act/observe step",
	}, func(ctx context.Context, input *sessionPath) (*sessionBody, error) {
		if _, err := loadTenantSession(ctx, orch, errs, input.SessionID); err != nil {
			return nil, err
		}
		s, err := orch.RunIteration(ctx, input.SessionID)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &sessionBody{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resume-session",
		Method:      http.MethodPost,
		Path:        "/general/sessions/{session_id}/resume",
		Summary:     "Resume a paused session",
	}, func(ctx context.Context, input *sessionPath) (*sessionBody, error) {
		if _, err := loadTenantSession(ctx, orch, errs, input.SessionID); err != nil {
			return nil, err
		}
		s, err := orch.Resume(ctx, input.SessionID)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &sessionBody{Body: s}, nil
	})
}

func loadTenantSession(ctx context.Context, orch *general.Orchestrator, errs errorMapper, id string) (*general.Session, huma.StatusError) {
	tenant, authErr := tenantFromContext(ctx)
	if authErr != nil {
		return nil, authErr
	}
	s, err := orch.Get(ctx, id)
	if err != nil {
		return nil, errs.handle(err)
	}
	if s.TenantID != tenant {
		return nil, newAPIError(http.StatusNotFound, "not_found", "session not found", nil)
	}
	return s, nil
}
