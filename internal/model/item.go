package model

import "time"

// Todo is one row of the hosted `todos` table.
type Todo struct {
	ID          int64     `json:"id"`
	Task        string    `json:"task"`
	IsCompleted bool      `json:"is_completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnedBy reports whether rows belong to userID. An empty userID owns nothing.
func OwnedBy(userID string) func(Todo) bool {
	return func(t Todo) bool {
		return userID != "" && t.UserID == userID
	}
}

// FilterOwned keeps the rows owned by userID, preserving order.
func FilterOwned(items []Todo, userID string) []Todo {
	owned := OwnedBy(userID)
	out := make([]Todo, 0, len(items))
	for _, it := range items {
		if owned(it) {
			out = append(out, it)
		}
	}
	return out
}

// Stats counts completed and pending rows.
func Stats(items []Todo) (done, pending int) {
	for _, it := range items {
		if it.IsCompleted {
			done++
		} else {
			pending++
		}
	}
	return
}
