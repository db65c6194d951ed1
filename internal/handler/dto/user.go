// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/flaskbasic/basicapp/internal/model"
)

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// CreateDependentRequest represents the request body for creating a dependent.
type CreateDependentRequest struct {
	Name    string `json:"name_2"`
	Age     int    `json:"age_2"`
	UserKey *int64 `json:"user_key"`
	ItemID  *int64 `json:"item_id,omitempty"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	PID       int64     `json:"pid"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// DependentResponse represents a dependent in API responses.
type DependentResponse struct {
	PID       int64     `json:"pid"`
	Name      string    `json:"name_2"`
	Age       int       `json:"age_2"`
	UserKey   *int64    `json:"user_key"`
	ItemID    *int64    `json:"item_id"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// ListResponse wraps a list of items.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// DeleteResponse reports whether a row was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ErrorResponse represents an API error outside the dispatch layer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		PID:       u.PID,
		Name:      u.Name,
		Age:       u.Age,
		CreatedOn: u.CreatedOn,
		UpdatedOn: u.UpdatedOn,
	}
}

// ToDependentResponse converts a Dependent model to DependentResponse DTO.
func ToDependentResponse(d *model.Dependent) *DependentResponse {
	return &DependentResponse{
		PID:       d.PID,
		Name:      d.Name2,
		Age:       d.Age2,
		UserKey:   d.UserKey,
		ItemID:    d.ItemID,
		CreatedOn: d.CreatedOn,
		UpdatedOn: d.UpdatedOn,
	}
}

// NewList converts items with fn.
func NewList[M, T any](items []*M, fn func(*M) T) *ListResponse[T] {
	data := make([]T, len(items))
	for i, item := range items {
		data[i] = fn(item)
	}
	return &ListResponse[T]{Data: data, Count: len(data)}
}
