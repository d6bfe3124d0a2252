package task

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// MemStore is an in-memory task store. A single mutex guards both the task
// map and the ID counter.
type MemStore struct {
	mu     sync.Mutex
	tasks  map[uint32]Task
	nextID uint32
}

// NewMemStore creates an empty MemStore. The first issued ID is 1.
func NewMemStore() *MemStore {
	return &MemStore{
		tasks:  make(map[uint32]Task),
		nextID: 1,
	}
}

// Create inserts a new incomplete task and returns a copy of it.
func (s *MemStore) Create(description string) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Task{
		ID:          s.nextID,
		Description: description,
	}
	s.nextID++
	s.tasks[t.ID] = t
	return t
}

// List returns a snapshot of all tasks ordered by ID.
func (s *MemStore) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b Task) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return tasks
}

// Get returns a copy of a single task.
func (s *MemStore) Get(id uint32) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// Update applies the provided fields and returns the updated task.
func (s *MemStore) Update(id uint32, u UpdateTask) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("update task %d: %w", id, ErrNotFound)
	}
	u.apply(&t)
	s.tasks[id] = t
	return t, nil
}

// Delete removes a task and returns it.
func (s *MemStore) Delete(id uint32) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	delete(s.tasks, id)
	return t, nil
}

// Count returns the number of tasks currently stored.
func (s *MemStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
