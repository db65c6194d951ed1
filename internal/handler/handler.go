// Package handler provides HTTP request handlers.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/flaskbasic/basicapp/internal/dispatch"
	"github.com/flaskbasic/basicapp/internal/entity"
	"github.com/flaskbasic/basicapp/internal/handler/dto"
	"github.com/flaskbasic/basicapp/internal/service"
)

// Greeting is the body of GET /home.
const Greeting = "WELCOME TO FLASK APP & API"

// Handler wraps application dependencies for HTTP handlers.
type Handler struct {
	users      *service.UserService
	dependents *service.DependentService
	logger     *slog.Logger
}

// New creates a new Handler instance.
func New(users *service.UserService, dependents *service.DependentService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:      users,
		dependents: dependents,
		logger:     logger,
	}
}

// Rules returns the dispatch table of the API.
func (h *Handler) Rules() []dispatch.Rule {
	verbose := map[string]dispatch.ParamType{"verbose": dispatch.ParamBool}

	return []dispatch.Rule{
		{Name: "home", Paths: []string{"/home"}, Handler: h.Home},

		{
			Name:  "list_users",
			Paths: []string{"/users"},
			Params: map[string]dispatch.ParamType{
				"name":    dispatch.ParamString,
				"age":     dispatch.ParamInt,
				"verbose": dispatch.ParamBool,
			},
			Handler: h.ListUsers,
		},
		{Name: "get_user", Paths: []string{"/users/{pid}"}, Params: verbose, Handler: h.GetUser},
		{Name: "create_user", Paths: []string{"/users"}, Methods: []string{http.MethodPost}, Validate: requireJSON, Handler: h.CreateUser},
		{Name: "update_user", Paths: []string{"/users/{pid}"}, Methods: []string{http.MethodPatch}, Validate: requireJSON, Handler: h.UpdateUser},
		{Name: "delete_user", Paths: []string{"/users/{pid}"}, Methods: []string{http.MethodDelete}, Handler: h.DeleteUser},
		{Name: "list_user_dependents", Paths: []string{"/users/{pid}/dependents"}, Params: verbose, Handler: h.ListUserDependents},

		{
			Name:  "list_dependents",
			Paths: []string{"/dependents"},
			Params: map[string]dispatch.ParamType{
				"name_2":   dispatch.ParamString,
				"age_2":    dispatch.ParamInt,
				"user_key": dispatch.ParamInt,
				"verbose":  dispatch.ParamBool,
			},
			Handler: h.ListDependents,
		},
		{Name: "get_dependent", Paths: []string{"/dependents/{pid}"}, Params: verbose, Handler: h.GetDependent},
		{
			Name:     "create_dependent",
			Paths:    []string{"/dependents"},
			Methods:  []string{http.MethodPost},
			Validate: requireJSON,
			Handler:  h.CreateDependent,
		},
		{Name: "delete_dependent", Paths: []string{"/dependents/{pid}"}, Methods: []string{http.MethodDelete}, Handler: h.DeleteDependent},
	}
}

// Home returns the greeting.
// GET /api/v1/home
func (h *Handler) Home(*dispatch.Call) (any, error) {
	return Greeting, nil
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
		Error: "resource not found",
		Code:  "NOT_FOUND",
	})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{
		Error: "method not allowed",
		Code:  "METHOD_NOT_ALLOWED",
	})
}

// requireJSON rejects bodies not declared as JSON.
func requireJSON(c *dispatch.Call) error {
	ct := c.Request.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return &dispatch.ValidationError{Field: "Content-Type", Message: "must be application/json"}
	}
	return nil
}

// serviceError maps service and store errors onto dispatch errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidName):
		return &dispatch.ValidationError{Field: "name", Message: err.Error()}
	case errors.Is(err, service.ErrInvalidAge):
		return &dispatch.ValidationError{Field: "age", Message: err.Error()}
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrDependentNotFound):
		return dispatch.NewHTTPError(http.StatusNotFound, "%s", err)
	case errors.Is(err, entity.ErrUnknownField),
		errors.Is(err, entity.ErrImmutableField),
		errors.Is(err, entity.ErrInvalidValue):
		return &dispatch.ValidationError{Message: err.Error()}
	case entity.IsUniqueViolation(err):
		return dispatch.NewHTTPError(http.StatusConflict, "%s", err)
	default:
		return err
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}
