package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flaskbasic/basicapp/internal/dispatch"
	"github.com/flaskbasic/basicapp/internal/handler/dto"
	"github.com/flaskbasic/basicapp/internal/service"
)

// ListDependents handles GET /api/v1/dependents.
func (h *Handler) ListDependents(c *dispatch.Call) (any, error) {
	var filter service.DependentFilter
	if name := c.Params.String("name_2"); name != "" {
		filter.Name = &name
	}
	if age, ok := c.Params.Int("age_2"); ok {
		filter.Age = &age
	}
	if key, ok := c.Params.Int("user_key"); ok {
		filter.UserKey = &key
	}

	deps, err := h.dependents.ListDependents(c.Context(), filter)
	if err != nil {
		return nil, serviceError(err)
	}

	return h.dependentList(c, deps), nil
}

// GetDependent handles GET /api/v1/dependents/{pid}.
func (h *Handler) GetDependent(c *dispatch.Call) (any, error) {
	pid, err := c.PathID("pid")
	if err != nil {
		return nil, err
	}

	dep, err := h.dependents.GetDependent(c.Context(), pid)
	if err != nil {
		return nil, serviceError(err)
	}

	if c.Params.Bool("verbose") {
		return h.dependents.Serialize(dep), nil
	}
	return dto.ToDependentResponse(dep), nil
}

// CreateDependent handles POST /api/v1/dependents. The referenced user
// must exist.
func (h *Handler) CreateDependent(c *dispatch.Call) (any, error) {
	var req dto.CreateDependentRequest
	if err := c.Decode(&req); err != nil {
		return nil, err
	}
	if req.UserKey == nil {
		return nil, &dispatch.ValidationError{Field: "user_key", Message: "is required"}
	}

	dep, err := h.dependents.CreateDependent(c.Context(), service.CreateDependentInput{
		Name:    req.Name,
		Age:     req.Age,
		UserKey: *req.UserKey,
		ItemID:  req.ItemID,
	})
	if err != nil {
		return nil, serviceError(err)
	}

	h.logger.Info("dependent_created",
		slog.Int64("pid", dep.PID),
		slog.Int64("user_key", *req.UserKey),
	)

	return &dispatch.Response{
		Status: http.StatusCreated,
		Header: http.Header{"Location": []string{fmt.Sprintf("%s/%d", c.Request.URL.Path, dep.PID)}},
		Body:   dto.ToDependentResponse(dep),
	}, nil
}

// DeleteDependent handles DELETE /api/v1/dependents/{pid}.
func (h *Handler) DeleteDependent(c *dispatch.Call) (any, error) {
	pid, err := c.PathID("pid")
	if err != nil {
		return nil, err
	}

	deleted, err := h.dependents.DeleteDependent(c.Context(), pid)
	if err != nil {
		return nil, serviceError(err)
	}

	return dto.DeleteResponse{Deleted: deleted}, nil
}
