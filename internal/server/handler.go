package server

import (
	"errors"
	"log/slog"
	"strings"

	"taskd/pkg/task"
)

// Handler routes one parsed request to the task store.
type Handler struct {
	tasks task.Store
	log   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(tasks task.Store, logger *slog.Logger) *Handler {
	return &Handler{tasks: tasks, log: logger}
}

// Handle dispatches on method and path. It never fails: every outcome,
// including malformed input, maps to a response.
func (h *Handler) Handle(req Request) Response {
	switch {
	case req.Method == "GET" && req.Path == "/tasks":
		return writeJSON(200, h.tasks.List())
	case req.Method == "POST" && req.Path == "/tasks":
		return h.handleTaskCreate(req)
	case req.Method == "PUT" && strings.HasPrefix(req.Path, taskPathPrefix):
		return h.handleTaskUpdate(req)
	case req.Method == "DELETE" && strings.HasPrefix(req.Path, taskPathPrefix):
		return h.handleTaskDelete(req)
	default:
		return writeError(404, "Not Found")
	}
}

func (h *Handler) handleTaskCreate(req Request) Response {
	body, err := ExtractJSONBody(req.Raw)
	if err != nil {
		return writeError(400, "Invalid JSON format")
	}
	nt, err := task.DecodeNewTask([]byte(body))
	if err != nil {
		h.log.Debug("rejected create body", "error", err)
		return writeError(400, "Invalid JSON")
	}
	return writeJSON(201, h.tasks.Create(nt.Description))
}

func (h *Handler) handleTaskUpdate(req Request) Response {
	id, err := ParseTaskID(req.Path)
	if err != nil {
		return writeError(400, "Invalid task ID")
	}
	body, err := ExtractJSONBody(req.Raw)
	switch {
	case errors.Is(err, ErrMissingOpenBrace):
		return writeError(400, "Invalid body format (missing opening bracket)")
	case errors.Is(err, ErrMissingCloseBrace):
		return writeError(400, "Invalid body format (missing closing bracket)")
	}
	u, err := task.DecodeUpdateTask([]byte(body))
	if err != nil {
		h.log.Debug("rejected update body", "id", id, "error", err)
		return writeError(400, "Invalid JSON body")
	}
	t, err := h.tasks.Update(id, u)
	if err != nil {
		return writeError(404, "Task not found")
	}
	return writeJSON(200, t)
}

func (h *Handler) handleTaskDelete(req Request) Response {
	id, err := ParseTaskID(req.Path)
	if err != nil {
		return writeError(400, "Invalid task ID")
	}
	t, err := h.tasks.Delete(id)
	if err != nil {
		return writeError(404, "Task not found")
	}
	return writeJSON(200, t)
}
