// Package repository declares the storage interfaces the services depend on.
//
// Services only ever see these interfaces; the concrete adapters live in
// repository/sqlite and repository/bolt and are picked in server.New.
package repository

import (
	"context"

	"github.com/sakif/recipe-organizer/internal/model"
)

// Store is a generic document collection.
//
// Error contract shared by every adapter:
//   - FindByID and FindByField return apperror.ErrNotFound when nothing matches
//   - Create returns apperror.ErrConflict when a unique field clashes
//   - DeleteByID returns nil when the id does not exist
//
// FindAll returns documents in the store's native order (insertion order for
// both adapters) and never returns a nil slice.
type Store[T any] interface {
	Create(ctx context.Context, doc *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	Save(ctx context.Context, doc *T) error
	DeleteByID(ctx context.Context, id string) error
	FindByField(ctx context.Context, field, value string) (*T, error)
	ExistsByField(ctx context.Context, field, value string) (bool, error)
}

// UserRepository is the credential store. Users are looked up by "email".
type UserRepository = Store[model.User]

// RecipeRepository is the record store for recipes.
type RecipeRepository = Store[model.Recipe]

// Collection names used by every adapter.
const (
	UsersCollection   = "users"
	RecipesCollection = "recipes"
)

// EmailField is the unique natural key of the users collection.
const EmailField = "email"
