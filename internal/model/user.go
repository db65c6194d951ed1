// Package model defines domain entities for the application.
package model

import (
	"context"
	"log/slog"

	"github.com/flaskbasic/basicapp/internal/entity"
)

// User is a row of the users table.
type User struct {
	entity.Meta
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// User columns.
const (
	UserKind       = "User"
	UserTable      = "users"
	UserColumnName = "name"
	UserColumnAge  = "age"
)

// UserDescriptor describes the users table.
var UserDescriptor = &entity.Descriptor[User]{
	Kind:  UserKind,
	Table: UserTable,
	Meta:  func(u *User) *entity.Meta { return &u.Meta },
	Fields: []entity.Field[User]{
		entity.StringField(UserColumnName, func(u *User) *string { return &u.Name }),
		entity.IntField(UserColumnAge, func(u *User) *int { return &u.Age }),
	},
}

// UserStore persists users.
type UserStore struct {
	*entity.Store[User]
}

// NewUserStore creates a UserStore.
func NewUserStore(db entity.DB, logger *slog.Logger) *UserStore {
	return &UserStore{Store: entity.NewStore(db, UserDescriptor, logger)}
}

// ByName returns the user with the given name.
func (s *UserStore) ByName(ctx context.Context, name string, mode entity.Lookup) (*User, error) {
	return s.FindByAttribute(ctx, UserColumnName, name, mode)
}
