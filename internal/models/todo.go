package models

import "time"

// Todo represents a single list item owned by one user
type Todo struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Comment   *string   `json:"comment" db:"comment"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	UserID    int64     `json:"user_id" db:"user_id"`
}
