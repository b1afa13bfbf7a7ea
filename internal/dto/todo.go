package dto

import (
	"bytes"
	"encoding/json"
)

// CreateTodoRequest represents the payload to create a todo
type CreateTodoRequest struct {
	Name    string  `json:"name" example:"buy milk"`
	Comment *string `json:"comment" example:"2 litres"`
}

// UpdateTodoRequest carries the fields to change. Absent fields are left untouched.
type UpdateTodoRequest struct {
	Name    OptionalString `json:"name" swaggertype:"string"`
	Comment OptionalString `json:"comment" swaggertype:"string"`
}

// TodoResponse represents a todo object in responses
type TodoResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Comment   *string `json:"comment"`
	Timestamp string  `json:"timestamp"`
	UserID    int64   `json:"user_id"`
}

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the key is present, including for null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
