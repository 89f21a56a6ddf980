package models

import "time"

// Todo is an item on an employee's personal to-do list. It is private to
// its owner and takes no part in the approval workflow.
type Todo struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"userId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TodoPatch is the body of PATCH /api/todos/:id; nil means unchanged.
type TodoPatch struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether p changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}
