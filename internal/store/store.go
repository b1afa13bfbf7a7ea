// Package store defines the persistence contract for users and todos.
package store

import (
	"context"
	"errors"
	"fmt"

	"TODOLIST_BACK-END/internal/models"
)

// Store errors. Callers branch on them with errors.Is.
var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation indicates a uniqueness, foreign key, emptiness or length rule was broken.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", ErrConstraintViolation)

	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = fmt.Errorf("%w: email already exists", ErrConstraintViolation)

	// ErrStoreFailure wraps any unexpected persistence error.
	ErrStoreFailure = errors.New("store failure")
)

// Failure wraps err as an ErrStoreFailure for the named operation.
// The driver error stays reachable through errors.Is/As.
func Failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

// TodoPatch lists the todo fields an update changes. Fields left unset keep their stored value.
type TodoPatch struct {
	// Name replaces the name when non-nil.
	Name *string

	// SetComment replaces the comment with Comment, which may be nil to clear it.
	SetComment bool
	Comment    *string
}

// Store is the data-access interface used by the handlers.
// All methods must be safe for concurrent use and every write is atomic.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Close releases any resources held by the store.
	Close()

	// CreateUser inserts u and fills in its ID and CreatedAt.
	CreateUser(ctx context.Context, u *models.User) error

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// DeleteUser removes the user together with every todo it owns.
	DeleteUser(ctx context.Context, id int64) error

	// CreateTodo inserts t and fills in its ID and Timestamp.
	CreateTodo(ctx context.Context, t *models.Todo) error

	GetTodo(ctx context.Context, id int64) (*models.Todo, error)

	// ListTodosByUser returns the user's todos ordered by id. Never nil.
	ListTodosByUser(ctx context.Context, userID int64) ([]models.Todo, error)

	// UpdateTodo applies patch to the todo in a single atomic write and returns the stored row.
	// Fields absent from the patch are never written, so concurrent patches of different fields both land.
	UpdateTodo(ctx context.Context, id int64, patch TodoPatch) (*models.Todo, error)

	DeleteTodo(ctx context.Context, id int64) error
}
