package task

import (
	"errors"
)

// ErrNotFound is returned when no task has the requested ID.
var ErrNotFound = errors.New("task not found")

// Task represents a unit of to-do work.
type Task struct {
	ID          uint32 `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// NewTask is the input envelope for creating a task.
type NewTask struct {
	Description string `json:"description"`
}

// UpdateTask is the input envelope for modifying a task. Nil fields leave
// the stored value unchanged.
type UpdateTask struct {
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Store is the contract for task state. Implementations hand out copies,
// never references into their own state.
type Store interface {
	Create(description string) Task
	List() []Task
	Get(id uint32) (Task, error)
	Update(id uint32, u UpdateTask) (Task, error)
	Delete(id uint32) (Task, error)
	Count() int
}

// apply overwrites the fields present in u.
func (u UpdateTask) apply(t *Task) {
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
}
