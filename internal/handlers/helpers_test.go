package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"TODOLIST_BACK-END/internal/config"
	"TODOLIST_BACK-END/internal/dto"
	"TODOLIST_BACK-END/internal/handlers"
	"TODOLIST_BACK-END/internal/middleware"
	"TODOLIST_BACK-END/internal/models"
	"TODOLIST_BACK-END/internal/password"
	"TODOLIST_BACK-END/internal/store"
	"TODOLIST_BACK-END/internal/store/memory"
)

var errBoom = errors.New("boom")

// failingStore fails every call it overrides with a store failure
type failingStore struct {
	store.Store
	failCreateTodo bool
	failListTodos  bool
	failGetTodo    bool
	failUpdateTodo bool
	failDeleteTodo bool
	failCreateUser bool
}

func (s *failingStore) CreateUser(ctx context.Context, u *models.User) error {
	if s.failCreateUser {
		return store.Failure("create user", errBoom)
	}
	return s.Store.CreateUser(ctx, u)
}

func (s *failingStore) CreateTodo(ctx context.Context, t *models.Todo) error {
	if s.failCreateTodo {
		return store.Failure("create todo", errBoom)
	}
	return s.Store.CreateTodo(ctx, t)
}

func (s *failingStore) ListTodosByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	if s.failListTodos {
		return nil, store.Failure("list todos", errBoom)
	}
	return s.Store.ListTodosByUser(ctx, userID)
}

func (s *failingStore) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	if s.failGetTodo {
		return nil, store.Failure("get todo", errBoom)
	}
	return s.Store.GetTodo(ctx, id)
}

func (s *failingStore) UpdateTodo(ctx context.Context, id int64, patch store.TodoPatch) (*models.Todo, error) {
	if s.failUpdateTodo {
		return nil, store.Failure("update todo", errBoom)
	}
	return s.Store.UpdateTodo(ctx, id, patch)
}

func (s *failingStore) DeleteTodo(ctx context.Context, id int64) error {
	if s.failDeleteTodo {
		return store.Failure("delete todo", errBoom)
	}
	return s.Store.DeleteTodo(ctx, id)
}

// pausingStore holds the first GetTodo after arming until release is closed
type pausingStore struct {
	store.Store
	armed   bool
	paused  atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func newPausingStore(s store.Store) *pausingStore {
	return &pausingStore{Store: s, reached: make(chan struct{}), release: make(chan struct{})}
}

func (s *pausingStore) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	t, err := s.Store.GetTodo(ctx, id)
	if s.armed && s.paused.CompareAndSwap(false, true) {
		close(s.reached)
		<-s.release
	}
	return t, err
}

type testEnv struct {
	store  store.Store
	tokens *middleware.TokenService
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.New())
}

func newTestEnvWithStore(t *testing.T, s store.Store) *testEnv {
	t.Helper()

	tokens := middleware.NewTokenService(&config.JWTConfig{
		Secret:         "handlers-test-secret-handlers-test",
		AccessTokenTTL: 24 * time.Hour,
	})
	auth := handlers.NewAuthHandler(s, password.NewBcryptHasher(bcrypt.MinCost), tokens)
	todos := handlers.NewTodosHandler(s)

	r := chi.NewRouter()
	r.Post("/api/auth/register", auth.Register)
	r.Post("/api/auth/login", auth.Login)
	r.Route("/api/todos", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens))
		r.Get("/", todos.ListTodos)
		r.Post("/", todos.CreateTodo)
		r.Put("/{id}", todos.UpdateTodo)
		r.Delete("/{id}", todos.DeleteTodo)
	})

	return &testEnv{store: s, tokens: tokens, router: r}
}

// bodyReader sends strings as-is and JSON-encodes anything else
func bodyReader(t *testing.T, body any) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	return &buf
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bodyReader(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// register creates a user through the API and returns it with its token
func (e *testEnv) register(t *testing.T, username string) (dto.UserResponse, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp dto.AuthResponse
	decode(t, rec, &resp)
	return resp.User, resp.AccessToken
}

func (e *testEnv) createTodo(t *testing.T, token, name string) dto.TodoResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/todos", token, map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create todo: status %d body %s", rec.Code, rec.Body.String())
	}
	var todo dto.TodoResponse
	decode(t, rec, &todo)
	return todo
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, errMsg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var body dto.ErrorResponse
	decode(t, rec, &body)
	if body.Error != errMsg {
		t.Errorf("error = %q, want %q", body.Error, errMsg)
	}
}
