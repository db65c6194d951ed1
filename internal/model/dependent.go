package model

import (
	"context"
	"log/slog"

	"github.com/flaskbasic/basicapp/internal/entity"
)

// Dependent is a row of the dependents table. UserKey references
// users.pid; ItemID is an optional external reference.
type Dependent struct {
	entity.Meta
	Name2   string `json:"name_2"`
	Age2    int    `json:"age_2"`
	UserKey *int64 `json:"user_key"`
	ItemID  *int64 `json:"item_id"`
}

// Dependent columns.
const (
	DependentKind          = "Dependent"
	DependentTable         = "dependents"
	DependentColumnName    = "name_2"
	DependentColumnAge     = "age_2"
	DependentColumnUserKey = "user_key"
	DependentColumnItemID  = "item_id"
)

// DependentDescriptor describes the dependents table.
var DependentDescriptor = &entity.Descriptor[Dependent]{
	Kind:  DependentKind,
	Table: DependentTable,
	Meta:  func(d *Dependent) *entity.Meta { return &d.Meta },
	Fields: []entity.Field[Dependent]{
		entity.StringField(DependentColumnName, func(d *Dependent) *string { return &d.Name2 }),
		entity.IntField(DependentColumnAge, func(d *Dependent) *int { return &d.Age2 }),
		entity.NullInt64Field(DependentColumnUserKey, func(d *Dependent) **int64 { return &d.UserKey }),
		entity.NullInt64Field(DependentColumnItemID, func(d *Dependent) **int64 { return &d.ItemID }),
	},
}

// DependentStore persists dependents.
type DependentStore struct {
	*entity.Store[Dependent]
}

// NewDependentStore creates a DependentStore.
func NewDependentStore(db entity.DB, logger *slog.Logger) *DependentStore {
	return &DependentStore{Store: entity.NewStore(db, DependentDescriptor, logger)}
}

// ByUserKey lists the dependents of a user.
func (s *DependentStore) ByUserKey(ctx context.Context, userKey int64) ([]*Dependent, error) {
	return s.ListByAttributes(ctx, entity.Filter{DependentColumnUserKey: userKey})
}

// ByNameAndAge returns the dependent with the given name and age.
func (s *DependentStore) ByNameAndAge(ctx context.Context, name string, age int, mode entity.Lookup) (*Dependent, error) {
	return s.FindByAttributes(ctx, entity.Filter{
		DependentColumnName: name,
		DependentColumnAge:  age,
	}, mode)
}

// CheckAndCreate saves sample unless a dependent with the same name and
// age already exists, in which case the existing row is returned.
// created reports whether a new row was inserted.
func (s *DependentStore) CheckAndCreate(ctx context.Context, sample *Dependent) (d *Dependent, created bool, err error) {
	existing, err := s.ByNameAndAge(ctx, sample.Name2, sample.Age2, entity.CheckOnly)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	saved, err := s.Save(ctx, sample)
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}
