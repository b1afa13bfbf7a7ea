package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"TODOLIST_BACK-END/internal/dto"
	"TODOLIST_BACK-END/internal/models"
	"TODOLIST_BACK-END/internal/store"
	"TODOLIST_BACK-END/internal/utils"
)

// TodosHandler manages todo endpoints. Every route runs behind AuthMiddleware.
type TodosHandler struct {
	store store.Store
}

// NewTodosHandler creates a new TodosHandler
func NewTodosHandler(s store.Store) *TodosHandler {
	return &TodosHandler{store: s}
}

// ListTodos handles GET /api/todos
// @Summary List the caller's todos
// @Tags todos
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.TodoResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/todos [get]
func (h *TodosHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	todos, err := h.store.ListTodosByUser(r.Context(), userID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to fetch todos", err.Error())
		return
	}

	items := make([]dto.TodoResponse, 0, len(todos))
	for i := range todos {
		items = append(items, toTodoResponse(&todos[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, items)
}

// CreateTodo handles POST /api/todos
// @Summary Create a todo
// @Tags todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTodoRequest true "Todo payload"
// @Success 201 {object} dto.TodoResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/todos [post]
func (h *TodosHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.CreateTodoRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return // Error already handled by DecodeJSONRequest
	}
	if req.Name == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Name is required", "")
		return
	}

	todo := &models.Todo{
		Name:    req.Name,
		Comment: req.Comment,
		UserID:  userID,
	}
	if err := h.store.CreateTodo(r.Context(), todo); err != nil {
		writeStoreError(w, "Failed to create todo", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, toTodoResponse(todo))
}

// UpdateTodo handles PUT /api/todos/{id}
// @Summary Update a todo
// @Description Only the fields present in the body change. comment may be null.
// @Tags todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Todo ID"
// @Param payload body dto.UpdateTodoRequest true "Update payload"
// @Success 200 {object} dto.TodoResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/todos/{id} [put]
func (h *TodosHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	if !utils.RequireJSON(w, r) {
		return
	}

	todo, ok := h.loadOwnedTodo(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTodoRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return // Error already handled by DecodeJSONRequest
	}

	var patch store.TodoPatch
	if req.Name.Set {
		if req.Name.Value == nil || *req.Name.Value == "" {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Name cannot be empty", "")
			return
		}
		patch.Name = req.Name.Value
	}
	if req.Comment.Set {
		patch.SetComment = true
		patch.Comment = req.Comment.Value
	}

	// Only the fields present in the body are written
	updated, err := h.store.UpdateTodo(r.Context(), todo.ID, patch)
	if err != nil {
		writeStoreError(w, "Failed to update todo", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toTodoResponse(updated))
}

// DeleteTodo handles DELETE /api/todos/{id}
// @Summary Delete a todo
// @Tags todos
// @Security BearerAuth
// @Param id path int true "Todo ID"
// @Success 204 "No Content"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/todos/{id} [delete]
func (h *TodosHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.loadOwnedTodo(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteTodo(r.Context(), todo.ID); err != nil {
		writeStoreError(w, "Failed to delete todo", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadOwnedTodo resolves {id} and checks existence before ownership, so a missing
// todo is always 404 and someone else's todo is 403.
func (h *TodosHandler) loadOwnedTodo(w http.ResponseWriter, r *http.Request) (*models.Todo, bool) {
	requesterID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return nil, false
	}

	todoID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not found", "Todo not found")
		return nil, false
	}

	todo, err := h.store.GetTodo(r.Context(), todoID)
	if errors.Is(err, store.ErrNotFound) {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not found", "Todo not found")
		return nil, false
	}
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to fetch todo", err.Error())
		return nil, false
	}

	if todo.UserID != requesterID {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Unauthorized access", "")
		return nil, false
	}
	return todo, true
}

// writeStoreError maps typed store errors onto HTTP statuses
func writeStoreError(w http.ResponseWriter, failure string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not found", "Todo not found")
	case errors.Is(err, store.ErrConstraintViolation):
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Constraint violation", err.Error())
	default:
		utils.WriteErrorResponse(w, http.StatusInternalServerError, failure, err.Error())
	}
}

func toTodoResponse(t *models.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:        t.ID,
		Name:      t.Name,
		Comment:   t.Comment,
		Timestamp: utils.FormatTimestamp(t.Timestamp),
		UserID:    t.UserID,
	}
}
