package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Lewis121025/Generate-Agent/creative"
)

// CreateProjectRequest is the caller's project spec. The tenant comes from the
// authenticated principal, never from the body.
type CreateProjectRequest struct {
	Title           string  `json:"title" example:"Launch teaser"`
	Brief           string  `json:"brief,omitempty"`
	Style           string  `json:"style,omitempty" example:"cinematic"`
	DurationSeconds int     `json:"duration_seconds,omitempty" example:"30"`
	BudgetUSD       float64 `json:"budget_usd,omitempty" example:"50"`
}

// PauseProjectRequest names the pause reason.
type PauseProjectRequest struct {
	Reason string `json:"reason" example:"client review"`
}

type projectPath struct {
	ProjectID string `path:"project_id"`
}

type projectBody struct {
	Body *creative.Project `json:"body"`
}

func registerCreative(api huma.API, orch *creative.Orchestrator, errs errorMapper) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/creative/projects",
		Summary:       "Create a creative project",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*projectBody, error) {
		tenant, authErr := tenantFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		p, err := orch.CreateProject(ctx, creative.CreateSpec{
			TenantID:        tenant,
			Title:           input.Body.Title,
			Brief:           input.Body.Brief,
			Style:           input.Body.Style,
			DurationSeconds: input.Body.DurationSeconds,
			BudgetUSD:       input.Body.BudgetUSD,
		})
		if err != nil {
			return nil, errs.handle(err)
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/creative/projects",
		Summary:     "List the tenant's projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []*creative.Project `json:"body"`
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
			Body []*creative.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/creative/projects/{project_id}",
		Summary:     "Get a project",
	}, func(ctx context.Context, input *projectPath) (*projectBody, error) {
		p, err := loadTenantProject(ctx, orch, errs, input.ProjectID)
		if err != nil {
			return nil, err
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-project",
		Method:      http.MethodPost,
		Path:        "/creative/projects/{project_id}/advance",
		Summary:     "Perform the current stage's work",
	}, func(ctx context.Context, input *projectPath) (*projectBody, error) {
		if _, err := loadTenantProject(ctx, orch, errs, input.ProjectID); err != nil {
			return nil, err
		}
		p, err := orch.Advance(ctx, input.ProjectID)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-script",
		Method:      http.MethodPost,
		Path:        "/creative/projects/{project_id}/approve-script",
		Summary:     "Approve the script for storyboarding",
	}, func(ctx context.Context, input *projectPath) (*projectBody, error) {
		if _, err := loadTenantProject(ctx, orch, errs, input.ProjectID); err != nil {
			return nil, err
		}
		p, err := orch.ApproveScript(ctx, input.ProjectID)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-preview",
		Method:      http.MethodPost,
		Path:        "/creative/projects/{project_id}/approve-preview",
		Summary:     "Approve the preview and complete the project",
	}, func(ctx context.Context, input *projectPath) (*projectBody, error) {
		if _, err := loadTenantProject(ctx, orch, errs, input.ProjectID); err != nil {
			return nil, err
		}
		p, err := orch.ApprovePreview(ctx, input.ProjectID)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pause-project",
		Method:      http.MethodPost,
		Path:        "/creative/projects/{project_id}/pause",
		Summary:     "Pause a project",
	}, func(ctx context.Context, input *struct {
		projectPath
		Body PauseProjectRequest `json:"body"`
	}) (*projectBody, error) {
		if _, err := loadTenantProject(ctx, orch, errs, input.ProjectID); err != nil {
			return nil, err
		}
		reason := input.Body.Reason
		if reason == "" {
			reason = "manual"
		}
		p, err := orch.Pause(ctx, input.ProjectID, reason)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resume-project",
		Method:      http.MethodPost,
		Path:        "/creative/projects/{project_id}/resume",
		Summary:     "Resume a paused project",
	}, func(ctx context.Context, input *projectPath) (*projectBody, error) {
		if _, err := loadTenantProject(ctx, orch, errs, input.ProjectID); err != nil {
			return nil, err
		}
		p, err := orch.Resume(ctx, input.ProjectID)
		if err != nil {
			return nil, errs.handle(err)
		}
		return &projectBody{Body: p}, nil
	})
}

// loadTenantProject fetches the project and hides other tenants' entities
// behind not-found.
func loadTenantProject(ctx context.Context, orch *creative.Orchestrator, errs errorMapper, id string) (*creative.Project, huma.StatusError) {
	tenant, authErr := tenantFromContext(ctx)
	if authErr != nil {
		return nil, authErr
	}
	p, err := orch.Get(ctx, id)
	if err != nil {
		return nil, errs.handle(err)
	}
	if p.TenantID != tenant {
		return nil, newAPIError(http.StatusNotFound, "not_found", "project not found", nil)
	}
	return p, nil
}
