// Package storetest holds a conformance suite every store.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"TODOLIST_BACK-END/internal/models"
	"TODOLIST_BACK-END/internal/store"
)

// Factory returns an empty, migrated store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateUserAssignsIdentity", testCreateUserAssignsIdentity},
		{"UserLookups", testUserLookups},
		{"DuplicateUsername", testDuplicateUsername},
		{"DuplicateEmail", testDuplicateEmail},
		{"ConcurrentDuplicateUsername", testConcurrentDuplicateUsername},
		{"ListTodosEmpty", testListTodosEmpty},
		{"TodoLifecycle", testTodoLifecycle},
		{"TodoRequiresOwner", testTodoRequiresOwner},
		{"TodoIDsNotReused", testTodoIDsNotReused},
		{"TodosScopedToOwner", testTodosScopedToOwner},
		{"DeleteUserCascades", testDeleteUserCascades},
		{"MissingRows", testMissingRows},
		{"PatchKeepsUnsetFields", testPatchKeepsUnsetFields},
		{"ConcurrentPatchesOfDifferentFields", testConcurrentPatchesOfDifferentFields},
		{"ColumnLimits", testColumnLimits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func mustCreateUser(t *testing.T, s store.Store, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return u
}

func mustCreateTodo(t *testing.T, s store.Store, userID int64, name string) *models.Todo {
	t.Helper()
	todo := &models.Todo{Name: name, UserID: userID}
	if err := s.CreateTodo(context.Background(), todo); err != nil {
		t.Fatalf("CreateTodo(%q): %v", name, err)
	}
	return todo
}

func testCreateUserAssignsIdentity(t *testing.T, s store.Store) {
	a := mustCreateUser(t, s, "alice")
	b := mustCreateUser(t, s, "bob")

	if a.ID == 0 || b.ID == 0 {
		t.Fatalf("expected ids to be assigned, got %d and %d", a.ID, b.ID)
	}
	if b.ID <= a.ID {
		t.Errorf("ids should be monotonic, got %d then %d", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func testUserLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	byID, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}

	for _, got := range []*models.User{byName, byEmail, byID} {
		if got.ID != u.ID || got.Username != "alice" || got.PasswordHash != "hash" {
			t.Errorf("lookup returned %+v, want user %d", got, u.ID)
		}
	}
}

func testDuplicateUsername(t *testing.T, s store.Store) {
	mustCreateUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &models.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if !errors.Is(err, store.ErrConstraintViolation) {
		t.Errorf("ErrDuplicateUsername should be a constraint violation")
	}
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	mustCreateUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &models.User{
		Username:     "alice2",
		Email:        "alice@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func testConcurrentDuplicateUsername(t *testing.T, s store.Store) {
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.CreateUser(context.Background(), &models.User{
				Username:     "racer",
				Email:        fmt.Sprintf("racer%d@example.com", i),
				PasswordHash: "hash",
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrConstraintViolation):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one insert to succeed, got %d", succeeded)
	}
}

func testListTodosEmpty(t *testing.T, s store.Store) {
	u := mustCreateUser(t, s, "alice")

	todos, err := s.ListTodosByUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListTodosByUser: %v", err)
	}
	if todos == nil || len(todos) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", todos)
	}
}

func testTodoLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")

	comment := "2 litres"
	todo := &models.Todo{Name: "buy milk", Comment: &comment, UserID: u.ID}
	if err := s.CreateTodo(ctx, todo); err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if todo.ID == 0 || todo.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned, got %+v", todo)
	}

	got, err := s.GetTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Name != "buy milk" || got.Comment == nil || *got.Comment != "2 litres" || got.UserID != u.ID {
		t.Errorf("GetTodo returned %+v", got)
	}

	newName := "buy oat milk"
	update, err := s.UpdateTodo(ctx, todo.ID, store.TodoPatch{Name: &newName, SetComment: true})
	if err != nil {
		t.Fatalf("UpdateTodo: %v", err)
	}
	if update.UserID != u.ID || update.Name != newName || update.Comment != nil {
		t.Errorf("UpdateTodo returned %+v", update)
	}

	got, err = s.GetTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo after update: %v", err)
	}
	if got.Name != "buy oat milk" || got.Comment != nil {
		t.Errorf("update not applied: %+v", got)
	}
	if !got.Timestamp.Equal(todo.Timestamp) {
		t.Errorf("timestamp changed on update: %v -> %v", todo.Timestamp, got.Timestamp)
	}

	if err := s.DeleteTodo(ctx, todo.ID); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	if _, err := s.GetTodo(ctx, todo.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func testTodoRequiresOwner(t *testing.T, s store.Store) {
	err := s.CreateTodo(context.Background(), &models.Todo{Name: "orphan", UserID: 4242})
	if !errors.Is(err, store.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func testTodoIDsNotReused(t *testing.T, s store.Store) {
	u := mustCreateUser(t, s, "alice")

	first := mustCreateTodo(t, s, u.ID, "first")
	if err := s.DeleteTodo(context.Background(), first.ID); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	second := mustCreateTodo(t, s, u.ID, "second")

	if second.ID <= first.ID {
		t.Errorf("id %d reused or went backwards after %d", second.ID, first.ID)
	}
}

func testTodosScopedToOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	a1 := mustCreateTodo(t, s, alice.ID, "a1")
	mustCreateTodo(t, s, bob.ID, "b1")
	a2 := mustCreateTodo(t, s, alice.ID, "a2")

	todos, err := s.ListTodosByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListTodosByUser: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(todos))
	}
	if todos[0].ID != a1.ID || todos[1].ID != a2.ID {
		t.Errorf("expected todos ordered by id [%d %d], got [%d %d]", a1.ID, a2.ID, todos[0].ID, todos[1].ID)
	}
}

func testDeleteUserCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	a1 := mustCreateTodo(t, s, alice.ID, "a1")
	a2 := mustCreateTodo(t, s, alice.ID, "a2")
	b1 := mustCreateTodo(t, s, bob.ID, "b1")

	if err := s.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	for _, id := range []int64{a1.ID, a2.ID} {
		if _, err := s.GetTodo(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("todo %d should be gone, got %v", id, err)
		}
	}
	if _, err := s.GetUserByID(ctx, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("user should be gone, got %v", err)
	}
	if _, err := s.GetTodo(ctx, b1.ID); err != nil {
		t.Errorf("other users' todos must survive, got %v", err)
	}
}

func testMissingRows(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUserByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUserByUsername: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUserByEmail: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteUser(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteUser: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetTodo(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTodo: expected ErrNotFound, got %v", err)
	}
	name := "x"
	if _, err := s.UpdateTodo(ctx, 999, store.TodoPatch{Name: &name}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateTodo: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTodo(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteTodo: expected ErrNotFound, got %v", err)
	}
}

func testPatchKeepsUnsetFields(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")

	comment := "2 litres"
	todo := &models.Todo{Name: "buy milk", Comment: &comment, UserID: u.ID}
	if err := s.CreateTodo(ctx, todo); err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}

	// Comment only
	newComment := "1 litre"
	got, err := s.UpdateTodo(ctx, todo.ID, store.TodoPatch{SetComment: true, Comment: &newComment})
	if err != nil {
		t.Fatalf("UpdateTodo: %v", err)
	}
	if got.Name != "buy milk" || got.Comment == nil || *got.Comment != "1 litre" {
		t.Errorf("comment patch returned %+v", got)
	}

	// Empty patch changes nothing
	got, err = s.UpdateTodo(ctx, todo.ID, store.TodoPatch{})
	if err != nil {
		t.Fatalf("UpdateTodo: %v", err)
	}
	if got.Name != "buy milk" || got.Comment == nil || *got.Comment != "1 litre" {
		t.Errorf("empty patch returned %+v", got)
	}
}

func testConcurrentPatchesOfDifferentFields(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	todo := mustCreateTodo(t, s, u.ID, "start")

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		name := fmt.Sprintf("name %d", i)
		comment := fmt.Sprintf("comment %d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.UpdateTodo(ctx, todo.ID, store.TodoPatch{Name: &name}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.UpdateTodo(ctx, todo.ID, store.TodoPatch{SetComment: true, Comment: &comment}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("UpdateTodo: %v", err)
	}

	got, err := s.GetTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Name == "start" {
		t.Error("every name patch was lost")
	}
	if got.Comment == nil {
		t.Error("every comment patch was lost")
	}
}

func testColumnLimits(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")

	userTests := []struct {
		name string
		user models.User
	}{
		{"empty username", models.User{Username: "", Email: "e1@example.com", PasswordHash: "hash"}},
		{"long username", models.User{Username: strings.Repeat("u", 81), Email: "e2@example.com", PasswordHash: "hash"}},
		{"long email", models.User{Username: "bob", Email: strings.Repeat("e", 109) + "@example.com", PasswordHash: "hash"}},
		{"empty email", models.User{Username: "carol", Email: "", PasswordHash: "hash"}},
	}
	for _, tt := range userTests {
		user := tt.user
		if err := s.CreateUser(ctx, &user); !errors.Is(err, store.ErrConstraintViolation) {
			t.Errorf("%s: expected ErrConstraintViolation, got %v", tt.name, err)
		}
	}

	// Limits count characters, not bytes
	if err := s.CreateUser(ctx, &models.User{
		Username: strings.Repeat("é", 80), Email: "accent@example.com", PasswordHash: "hash",
	}); err != nil {
		t.Errorf("80 character username: %v", err)
	}

	todoTests := []struct {
		name string
		todo string
	}{
		{"empty name", ""},
		{"long name", strings.Repeat("n", 101)},
	}
	for _, tt := range todoTests {
		if err := s.CreateTodo(ctx, &models.Todo{Name: tt.todo, UserID: u.ID}); !errors.Is(err, store.ErrConstraintViolation) {
			t.Errorf("create with %s: expected ErrConstraintViolation, got %v", tt.name, err)
		}
	}

	todo := mustCreateTodo(t, s, u.ID, strings.Repeat("ü", 100))
	for _, tt := range todoTests {
		name := tt.todo
		if _, err := s.UpdateTodo(ctx, todo.ID, store.TodoPatch{Name: &name}); !errors.Is(err, store.ErrConstraintViolation) {
			t.Errorf("update with %s: expected ErrConstraintViolation, got %v", tt.name, err)
		}
	}

	got, err := s.GetTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Name != strings.Repeat("ü", 100) {
		t.Errorf("rejected update changed name to %q", got.Name)
	}
}
