package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flaskbasic/basicapp/internal/dispatch"
	"github.com/flaskbasic/basicapp/internal/handler/dto"
	"github.com/flaskbasic/basicapp/internal/model"
	"github.com/flaskbasic/basicapp/internal/service"
)

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(c *dispatch.Call) (any, error) {
	var filter service.UserFilter
	if name := c.Params.String("name"); name != "" {
		filter.Name = &name
	}
	if age, ok := c.Params.Int("age"); ok {
		filter.Age = &age
	}

	users, err := h.users.ListUsers(c.Context(), filter)
	if err != nil {
		return nil, serviceError(err)
	}

	if c.Params.Bool("verbose") {
		return dto.NewList(users, h.users.Serialize), nil
	}
	return dto.NewList(users, dto.ToUserResponse), nil
}

// GetUser handles GET /api/v1/users/{pid}.
func (h *Handler) GetUser(c *dispatch.Call) (any, error) {
	pid, err := c.PathID("pid")
	if err != nil {
		return nil, err
	}

	user, err := h.users.GetUser(c.Context(), pid)
	if err != nil {
		return nil, serviceError(err)
	}

	if c.Params.Bool("verbose") {
		return h.users.Serialize(user), nil
	}
	return dto.ToUserResponse(user), nil
}

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(c *dispatch.Call) (any, error) {
	var req dto.CreateUserRequest
	if err := c.Decode(&req); err != nil {
		return nil, err
	}

	user, err := h.users.CreateUser(c.Context(), service.CreateUserInput{
		Name: req.Name,
		Age:  req.Age,
	})
	if err != nil {
		return nil, serviceError(err)
	}

	h.logger.Info("user_created", slog.Int64("pid", user.PID))

	return &dispatch.Response{
		Status: http.StatusCreated,
		Header: http.Header{"Location": []string{fmt.Sprintf("%s/%d", c.Request.URL.Path, user.PID)}},
		Body:   dto.ToUserResponse(user),
	}, nil
}

// UpdateUser handles PATCH /api/v1/users/{pid}. The body is a map of
// column name to new value.
func (h *Handler) UpdateUser(c *dispatch.Call) (any, error) {
	pid, err := c.PathID("pid")
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := c.Decode(&fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &dispatch.ValidationError{Message: "no fields to update"}
	}

	user, err := h.users.UpdateUser(c.Context(), pid, fields)
	if err != nil {
		return nil, serviceError(err)
	}

	return dto.ToUserResponse(user), nil
}

// DeleteUser handles DELETE /api/v1/users/{pid}.
func (h *Handler) DeleteUser(c *dispatch.Call) (any, error) {
	pid, err := c.PathID("pid")
	if err != nil {
		return nil, err
	}

	deleted, err := h.users.DeleteUser(c.Context(), pid)
	if err != nil {
		return nil, serviceError(err)
	}

	h.logger.Info("user_deleted", slog.Int64("pid", pid))

	return dto.DeleteResponse{Deleted: deleted}, nil
}

// ListUserDependents handles GET /api/v1/users/{pid}/dependents.
func (h *Handler) ListUserDependents(c *dispatch.Call) (any, error) {
	pid, err := c.PathID("pid")
	if err != nil {
		return nil, err
	}

	deps, err := h.dependents.ListForUser(c.Context(), pid)
	if err != nil {
		return nil, serviceError(err)
	}

	return h.dependentList(c, deps), nil
}

func (h *Handler) dependentList(c *dispatch.Call, deps []*model.Dependent) any {
	if c.Params.Bool("verbose") {
		return dto.NewList(deps, h.dependents.Serialize)
	}
	return dto.NewList(deps, dto.ToDependentResponse)
}
