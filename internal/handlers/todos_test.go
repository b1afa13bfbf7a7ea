package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"TODOLIST_BACK-END/internal/dto"
	"TODOLIST_BACK-END/internal/store/memory"
)

func TestListTodos_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/todos", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestListTodos_OnlyOwn(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.register(t, "alice")
	_, bobToken := env.register(t, "bob")

	env.createTodo(t, aliceToken, "alice 1")
	env.createTodo(t, bobToken, "bob 1")
	env.createTodo(t, aliceToken, "alice 2")

	rec := env.do(t, http.MethodGet, "/api/todos", aliceToken, nil)
	var todos []dto.TodoResponse
	decode(t, rec, &todos)

	if len(todos) != 2 {
		t.Fatalf("got %d todos, want 2", len(todos))
	}
	for _, todo := range todos {
		if todo.UserID != alice.ID {
			t.Errorf("todo %d belongs to %d, want %d", todo.ID, todo.UserID, alice.ID)
		}
	}
}

func TestListTodos_StoreFailure(t *testing.T) {
	env := newTestEnvWithStore(t, &failingStore{Store: memory.New(), failListTodos: true})
	_, token := env.register(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/todos", token, nil)
	expectError(t, rec, http.StatusInternalServerError, "Failed to fetch todos")
}

func TestCreateTodo(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.register(t, "alice")

	before := time.Now().UTC().Add(-time.Second)
	rec := env.do(t, http.MethodPost, "/api/todos", token, map[string]any{
		"name":    "buy milk",
		"comment": "2 litres",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var todo dto.TodoResponse
	decode(t, rec, &todo)
	if todo.ID == 0 || todo.Name != "buy milk" || todo.UserID != alice.ID {
		t.Errorf("unexpected todo: %+v", todo)
	}
	if todo.Comment == nil || *todo.Comment != "2 litres" {
		t.Errorf("comment = %v, want 2 litres", todo.Comment)
	}
	ts, err := time.Parse(time.RFC3339Nano, todo.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q is not RFC3339: %v", todo.Timestamp, err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v is earlier than request start %v", ts, before)
	}
}

func TestCreateTodo_CommentDefaultsToNull(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/todos", token, map[string]string{"name": "walk"})
	if !strings.Contains(rec.Body.String(), `"comment":null`) {
		t.Errorf("body = %s, want comment null", rec.Body.String())
	}
}

func TestCreateTodo_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{"missing name", map[string]string{"comment": "x"}, http.StatusBadRequest, "Name is required"},
		{"empty name", map[string]string{"name": ""}, http.StatusBadRequest, "Name is required"},
		{"empty object", "{}", http.StatusBadRequest, "No data provided"},
		{"invalid json", "[", http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, token := env.register(t, "alice")

			rec := env.do(t, http.MethodPost, "/api/todos", token, tt.body)
			expectError(t, rec, tt.wantStatus, tt.wantError)
		})
	}
}

func TestCreateTodo_StoreFailure(t *testing.T) {
	env := newTestEnvWithStore(t, &failingStore{Store: memory.New(), failCreateTodo: true})
	_, token := env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/todos", token, map[string]string{"name": "x"})
	expectError(t, rec, http.StatusInternalServerError, "Failed to create todo")
}

func TestTodos_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodPut, "/api/todos/1"},
		{http.MethodDelete, "/api/todos/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, "", nil)
			expectError(t, rec, http.StatusUnauthorized, "No token provided")
		})
	}

	rec := env.do(t, http.MethodGet, "/api/todos", "not-a-jwt", nil)
	expectError(t, rec, http.StatusUnauthorized, "Invalid token")
}

func TestUpdateTodo_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/todos", token, map[string]any{"name": "buy milk", "comment": "2 litres"})
	var created dto.TodoResponse
	decode(t, rec, &created)
	path := "/api/todos/" + itoa(created.ID)

	// Only name changes
	rec = env.do(t, http.MethodPut, path, token, map[string]any{"name": "buy oat milk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var updated dto.TodoResponse
	decode(t, rec, &updated)
	if updated.Name != "buy oat milk" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.Comment == nil || *updated.Comment != "2 litres" {
		t.Errorf("comment changed to %v", updated.Comment)
	}
	if updated.Timestamp != created.Timestamp || updated.UserID != created.UserID || updated.ID != created.ID {
		t.Errorf("immutable fields changed: %+v vs %+v", updated, created)
	}

	// Explicit null clears the comment
	rec = env.do(t, http.MethodPut, path, token, map[string]any{"comment": nil})
	decode(t, rec, &updated)
	if updated.Comment != nil {
		t.Errorf("comment = %q, want null", *updated.Comment)
	}
	if updated.Name != "buy oat milk" {
		t.Errorf("name changed to %q", updated.Name)
	}

	stored, err := env.store.GetTodo(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if stored.Name != "buy oat milk" || stored.Comment != nil {
		t.Errorf("stored todo not updated: %+v", stored)
	}
}

func TestUpdateTodo_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantError string
	}{
		{"empty name", map[string]string{"name": ""}, "Name cannot be empty"},
		{"null name", map[string]any{"name": nil}, "Name cannot be empty"},
		{"empty object", "{}", "No data provided"},
		{"empty body", "", "No data provided"},
		{"name wrong type", `{"name": 5}`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, token := env.register(t, "alice")
			todo := env.createTodo(t, token, "buy milk")

			req := httptest.NewRequest(http.MethodPut, "/api/todos/"+itoa(todo.ID), bodyReader(t, tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			expectError(t, rec, http.StatusBadRequest, tt.wantError)

			stored, err := env.store.GetTodo(context.Background(), todo.ID)
			if err != nil {
				t.Fatalf("GetTodo: %v", err)
			}
			if stored.Name != "buy milk" {
				t.Errorf("rejected update changed name to %q", stored.Name)
			}
		})
	}
}

func TestUpdateTodo_RequiresJSON(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")
	todo := env.createTodo(t, token, "buy milk")

	req := httptest.NewRequest(http.MethodPut, "/api/todos/"+itoa(todo.ID), strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	expectError(t, rec, http.StatusBadRequest, "Content-Type must be application/json")
}

func TestUpdateTodo_Ownership(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register(t, "alice")
	_, bobToken := env.register(t, "bob")
	todo := env.createTodo(t, aliceToken, "alice's")

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantError  string
	}{
		{"not owner", "/api/todos/" + itoa(todo.ID), bobToken, http.StatusForbidden, "Unauthorized access"},
		{"missing todo", "/api/todos/999", bobToken, http.StatusNotFound, "Not found"},
		{"missing todo for owner", "/api/todos/999", aliceToken, http.StatusNotFound, "Not found"},
		{"non-numeric id", "/api/todos/abc", aliceToken, http.StatusNotFound, "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, tt.path, tt.token, map[string]string{"name": "hijacked"})
			expectError(t, rec, tt.wantStatus, tt.wantError)
		})
	}

	stored, err := env.store.GetTodo(context.Background(), todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if stored.Name != "alice's" {
		t.Errorf("non-owner update changed name to %q", stored.Name)
	}
}

func TestUpdateTodo_StoreFailure(t *testing.T) {
	fs := &failingStore{Store: memory.New()}
	env := newTestEnvWithStore(t, fs)
	_, token := env.register(t, "alice")
	todo := env.createTodo(t, token, "buy milk")
	path := "/api/todos/" + itoa(todo.ID)

	fs.failUpdateTodo = true
	rec := env.do(t, http.MethodPut, path, token, map[string]string{"name": "x"})
	expectError(t, rec, http.StatusInternalServerError, "Failed to update todo")

	fs.failGetTodo = true
	rec = env.do(t, http.MethodPut, path, token, map[string]string{"name": "x"})
	expectError(t, rec, http.StatusInternalServerError, "Failed to fetch todo")
}

func TestDeleteTodo(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")
	todo := env.createTodo(t, token, "buy milk")
	path := "/api/todos/" + itoa(todo.ID)

	rec := env.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 (body %s)", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("204 response has body %q", rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, path, token, nil)
	expectError(t, rec, http.StatusNotFound, "Not found")

	rec = env.do(t, http.MethodPut, path, token, map[string]string{"name": "x"})
	expectError(t, rec, http.StatusNotFound, "Not found")
}

func TestDeleteTodo_Ownership(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register(t, "alice")
	_, bobToken := env.register(t, "bob")
	todo := env.createTodo(t, aliceToken, "alice's")

	rec := env.do(t, http.MethodDelete, "/api/todos/"+itoa(todo.ID), bobToken, nil)
	expectError(t, rec, http.StatusForbidden, "Unauthorized access")

	rec = env.do(t, http.MethodDelete, "/api/todos/4242", bobToken, nil)
	expectError(t, rec, http.StatusNotFound, "Not found")

	if _, err := env.store.GetTodo(context.Background(), todo.ID); err != nil {
		t.Errorf("todo should survive a forbidden delete: %v", err)
	}
}

func TestDeleteTodo_StoreFailure(t *testing.T) {
	fs := &failingStore{Store: memory.New()}
	env := newTestEnvWithStore(t, fs)
	_, token := env.register(t, "alice")
	todo := env.createTodo(t, token, "buy milk")

	fs.failDeleteTodo = true
	rec := env.do(t, http.MethodDelete, "/api/todos/"+itoa(todo.ID), token, nil)
	expectError(t, rec, http.StatusInternalServerError, "Failed to delete todo")
}

func TestUpdateTodo_ConcurrentPatchesKeepBothFields(t *testing.T) {
	ps := newPausingStore(memory.New())
	env := newTestEnvWithStore(t, ps)
	_, token := env.register(t, "alice")
	todo := env.createTodo(t, token, "old name")
	path := "/api/todos/" + itoa(todo.ID)

	// The name update stalls after loading the todo while the comment update completes
	ps.armed = true
	renamed := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		renamed <- env.do(t, http.MethodPut, path, token, map[string]string{"name": "new name"})
	}()
	<-ps.reached

	rec := env.do(t, http.MethodPut, path, token, map[string]string{"comment": "set by second request"})
	if rec.Code != http.StatusOK {
		t.Fatalf("comment update: status %d body %s", rec.Code, rec.Body.String())
	}
	close(ps.release)

	if rec := <-renamed; rec.Code != http.StatusOK {
		t.Fatalf("name update: status %d body %s", rec.Code, rec.Body.String())
	}

	stored, err := env.store.GetTodo(context.Background(), todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if stored.Name != "new name" {
		t.Errorf("name = %q, want new name", stored.Name)
	}
	if stored.Comment == nil || *stored.Comment != "set by second request" {
		t.Errorf("comment = %v, the comment update was lost", stored.Comment)
	}
}

func TestTodos_NameTooLong(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	long := strings.Repeat("n", 101)
	rec := env.do(t, http.MethodPost, "/api/todos", token, map[string]string{"name": long})
	expectError(t, rec, http.StatusBadRequest, "Constraint violation")

	todo := env.createTodo(t, token, "short")
	rec = env.do(t, http.MethodPut, "/api/todos/"+itoa(todo.ID), token, map[string]string{"name": long})
	expectError(t, rec, http.StatusBadRequest, "Constraint violation")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
