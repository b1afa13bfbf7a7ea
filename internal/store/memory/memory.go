// Package memory provides an in-process store.Store for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"TODOLIST_BACK-END/internal/models"
	"TODOLIST_BACK-END/internal/store"
)

// Store keeps users and todos in maps guarded by a single mutex.
// Id counters only move forward, so ids are never reused.
type Store struct {
	mu sync.RWMutex

	users      map[int64]*models.User
	todos      map[int64]*models.Todo
	byUsername map[string]int64
	byEmail    map[string]int64

	lastUserID int64
	lastTodoID int64

	now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:      make(map[int64]*models.User),
		todos:      make(map[int64]*models.Todo),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() {}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := checkUser(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[u.Username]; ok {
		return store.ErrDuplicateUsername
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return store.ErrDuplicateEmail
	}

	s.lastUserID++
	u.ID = s.lastUserID
	u.CreatedAt = s.now()

	cp := *u
	s.users[u.ID] = &cp
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	for tid, t := range s.todos {
		if t.UserID == id {
			delete(s.todos, tid)
		}
	}
	delete(s.byUsername, u.Username)
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	return nil
}

func (s *Store) CreateTodo(ctx context.Context, t *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkText("name", t.Name, maxTodoName); err != nil {
		return err
	}
	if _, ok := s.users[t.UserID]; !ok {
		return fmt.Errorf("%w: todo owner %d does not exist", store.ErrConstraintViolation, t.UserID)
	}

	s.lastTodoID++
	t.ID = s.lastTodoID
	t.Timestamp = s.now()

	s.todos[t.ID] = cloneTodo(t)
	return nil
}

func (s *Store) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTodo(t), nil
}

func (s *Store) ListTodosByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := make([]models.Todo, 0)
	for _, t := range s.todos {
		if t.UserID == userID {
			todos = append(todos, *cloneTodo(t))
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id int64, patch store.TodoPatch) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.todos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		if err := checkText("name", *patch.Name, maxTodoName); err != nil {
			return nil, err
		}
		cur.Name = *patch.Name
	}
	if patch.SetComment {
		cur.Comment = cloneString(patch.Comment)
	}
	return cloneTodo(cur), nil
}

func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}

func cloneTodo(t *models.Todo) *models.Todo {
	cp := *t
	cp.Comment = cloneString(t.Comment)
	return &cp
}

// Column limits mirrored from the postgres schema
const (
	maxUsername     = 80
	maxEmail        = 120
	maxPasswordHash = 256
	maxTodoName     = 100
)

func checkUser(u *models.User) error {
	if err := checkText("username", u.Username, maxUsername); err != nil {
		return err
	}
	if err := checkText("email", u.Email, maxEmail); err != nil {
		return err
	}
	return checkText("password_hash", u.PasswordHash, maxPasswordHash)
}

// checkText rejects empty values and values longer than limit characters
func checkText(field, v string, limit int) error {
	if v == "" {
		return fmt.Errorf("%w: %s must not be empty", store.ErrConstraintViolation, field)
	}
	if n := utf8.RuneCountInString(v); n > limit {
		return fmt.Errorf("%w: %s is %d characters, limit %d", store.ErrConstraintViolation, field, n, limit)
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
