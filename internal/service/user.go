package service

import (
	"context"
	"fmt"

	"github.com/flaskbasic/basicapp/internal/entity"
	"github.com/flaskbasic/basicapp/internal/metrics"
	"github.com/flaskbasic/basicapp/internal/model"
)

// UserStore is the persistence the user service needs.
// *model.UserStore satisfies it.
type UserStore interface {
	Save(ctx context.Context, u *model.User) (*model.User, error)
	Update(ctx context.Context, u *model.User, fields map[string]any) error
	Delete(ctx context.Context, u *model.User) (bool, error)
	FindByID(ctx context.Context, pid int64, mode entity.Lookup) (*model.User, error)
	ListByAttributes(ctx context.Context, filter entity.Filter) ([]*model.User, error)
	ByName(ctx context.Context, name string, mode entity.Lookup) (*model.User, error)
	ToSerializable(u *model.User) entity.Serializable
}

// UserService handles user business logic.
type UserService struct {
	users   UserStore
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{users: users, metrics: recorder}
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Name string
	Age  int
}

// CreateUser validates and saves a new user.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if err := validateAge(int64(input.Age)); err != nil {
		return nil, err
	}

	user, err := s.users.Save(ctx, &model.User{Name: input.Name, Age: input.Age})
	s.metrics.IncEntityWrite(model.UserKind, "create", outcome(err))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user by PID.
func (s *UserService) GetUser(ctx context.Context, pid int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, pid, entity.CheckOnly)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByName looks a user up by name. With entity.CheckOnly a missing
// user yields nil, nil; otherwise an entity.NotFoundError.
func (s *UserService) FindByName(ctx context.Context, name string, mode entity.Lookup) (*model.User, error) {
	return s.users.ByName(ctx, name, mode)
}

// UserFilter selects users by equality. Nil fields are ignored.
type UserFilter struct {
	Name *string
	Age  *int64
}

// ListUsers returns the users matching filter.
func (s *UserService) ListUsers(ctx context.Context, filter UserFilter) ([]*model.User, error) {
	return s.users.ListByAttributes(ctx, entity.Filter{
		model.UserColumnName: filter.Name,
		model.UserColumnAge:  filter.Age,
	})
}

// UpdateUser applies fields to the user with the given PID.
func (s *UserService) UpdateUser(ctx context.Context, pid int64, fields map[string]any) (*model.User, error) {
	if err := validateFields(fields, model.UserColumnName, model.UserColumnAge); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, pid)
	if err != nil {
		return nil, err
	}

	err = s.users.Update(ctx, user, fields)
	s.metrics.IncEntityWrite(model.UserKind, "update", outcome(err))
	if err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser removes the user with the given PID. Dependents are removed
// by the database.
func (s *UserService) DeleteUser(ctx context.Context, pid int64) (bool, error) {
	user, err := s.GetUser(ctx, pid)
	if err != nil {
		return false, err
	}

	deleted, err := s.users.Delete(ctx, user)
	s.metrics.IncEntityWrite(model.UserKind, "delete", outcome(err))
	if err != nil {
		return false, err
	}

	return deleted, nil
}

// Serialize returns the {ent_type, attributes} form of u.
func (s *UserService) Serialize(u *model.User) entity.Serializable {
	return s.users.ToSerializable(u)
}
