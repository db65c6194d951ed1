package service

import (
	"context"
	"fmt"

	"github.com/flaskbasic/basicapp/internal/entity"
	"github.com/flaskbasic/basicapp/internal/metrics"
	"github.com/flaskbasic/basicapp/internal/model"
)

// DependentStore is the persistence the dependent service needs.
// *model.DependentStore satisfies it.
type DependentStore interface {
	Save(ctx context.Context, d *model.Dependent) (*model.Dependent, error)
	Delete(ctx context.Context, d *model.Dependent) (bool, error)
	FindByID(ctx context.Context, pid int64, mode entity.Lookup) (*model.Dependent, error)
	ListByAttributes(ctx context.Context, filter entity.Filter) ([]*model.Dependent, error)
	ByUserKey(ctx context.Context, userKey int64) ([]*model.Dependent, error)
	CheckAndCreate(ctx context.Context, sample *model.Dependent) (*model.Dependent, bool, error)
	ToSerializable(d *model.Dependent) entity.Serializable
}

// DependentService handles dependent business logic.
type DependentService struct {
	dependents DependentStore
	users      UserStore
	metrics    metrics.Recorder
}

// NewDependentService creates a new DependentService.
func NewDependentService(dependents DependentStore, users UserStore, recorder metrics.Recorder) *DependentService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &DependentService{dependents: dependents, users: users, metrics: recorder}
}

// CreateDependentInput defines input for creating a dependent.
type CreateDependentInput struct {
	Name    string
	Age     int
	UserKey int64
	ItemID  *int64
}

// CreateDependent saves a dependent of an existing user. A missing user
// is reported as an entity.NotFoundError.
func (s *DependentService) CreateDependent(ctx context.Context, input CreateDependentInput) (*model.Dependent, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if err := validateAge(int64(input.Age)); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, input.UserKey, entity.MustExist); err != nil {
		return nil, err
	}

	userKey := input.UserKey
	dep, err := s.dependents.Save(ctx, &model.Dependent{
		Name2:   input.Name,
		Age2:    input.Age,
		UserKey: &userKey,
		ItemID:  input.ItemID,
	})
	s.metrics.IncEntityWrite(model.DependentKind, "create", outcome(err))
	if err != nil {
		return nil, fmt.Errorf("failed to create dependent: %w", err)
	}

	return dep, nil
}

// Seed creates each sample unless a dependent with the same name and age
// exists. It returns the number of rows inserted.
func (s *DependentService) Seed(ctx context.Context, samples []*model.Dependent) (int, error) {
	created := 0
	for _, sample := range samples {
		_, ok, err := s.dependents.CheckAndCreate(ctx, sample)
		if err != nil {
			s.metrics.IncEntityWrite(model.DependentKind, "create", outcome(err))
			return created, fmt.Errorf("failed to seed dependent %s: %w", sample.Name2, err)
		}
		if ok {
			created++
			s.metrics.IncEntityWrite(model.DependentKind, "create", outcome(nil))
		}
	}
	return created, nil
}

// GetDependent retrieves a dependent by PID.
func (s *DependentService) GetDependent(ctx context.Context, pid int64) (*model.Dependent, error) {
	dep, err := s.dependents.FindByID(ctx, pid, entity.CheckOnly)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, ErrDependentNotFound
	}
	return dep, nil
}

// DependentFilter selects dependents by equality. Nil fields are ignored.
type DependentFilter struct {
	Name    *string
	Age     *int64
	UserKey *int64
}

// ListDependents returns the dependents matching filter.
func (s *DependentService) ListDependents(ctx context.Context, filter DependentFilter) ([]*model.Dependent, error) {
	return s.dependents.ListByAttributes(ctx, entity.Filter{
		model.DependentColumnName:    filter.Name,
		model.DependentColumnAge:     filter.Age,
		model.DependentColumnUserKey: filter.UserKey,
	})
}

// ListForUser returns the dependents of an existing user.
func (s *DependentService) ListForUser(ctx context.Context, userKey int64) ([]*model.Dependent, error) {
	user, err := s.users.FindByID(ctx, userKey, entity.CheckOnly)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.dependents.ByUserKey(ctx, userKey)
}

// DeleteDependent removes the dependent with the given PID.
func (s *DependentService) DeleteDependent(ctx context.Context, pid int64) (bool, error) {
	dep, err := s.GetDependent(ctx, pid)
	if err != nil {
		return false, err
	}

	deleted, err := s.dependents.Delete(ctx, dep)
	s.metrics.IncEntityWrite(model.DependentKind, "delete", outcome(err))
	if err != nil {
		return false, err
	}

	return deleted, nil
}

// Serialize returns the {ent_type, attributes} form of d.
func (s *DependentService) Serialize(d *model.Dependent) entity.Serializable {
	return s.dependents.ToSerializable(d)
}
