package eventgraph

import (
	"sync"
	"time"

	"taskd/pkg/task"
)

// Recorder wraps a task.Store and publishes an event on the bus after every
// successful mutation. Each mutation and its publish happen under one lock,
// so events reach the bus in the order the store applied them. Reads pass
// straight through.
type Recorder struct {
	task.Store
	bus *Bus
	now func() time.Time

	mu sync.Mutex
}

// NewRecorder creates a Recorder publishing to bus.
func NewRecorder(store task.Store, bus *Bus) *Recorder {
	return &Recorder{Store: store, bus: bus, now: time.Now}
}

// Create delegates to the store, then publishes task.created.
func (r *Recorder) Create(description string) task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.Store.Create(description)
	r.bus.Publish(newEvent(TypeTaskCreated, t, r.now()))
	return t
}

// Update delegates to the store, then publishes task.updated on success.
func (r *Recorder) Update(id uint32, u task.UpdateTask) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.Store.Update(id, u)
	if err != nil {
		return t, err
	}
	r.bus.Publish(newEvent(TypeTaskUpdated, t, r.now()))
	return t, nil
}

// Delete delegates to the store, then publishes task.deleted on success.
func (r *Recorder) Delete(id uint32) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.Store.Delete(id)
	if err != nil {
		return t, err
	}
	r.bus.Publish(newEvent(TypeTaskDeleted, t, r.now()))
	return t, nil
}
