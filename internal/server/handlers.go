package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"policytask/internal/logger"
	"policytask/internal/prompt"
	"policytask/internal/task"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TaskStore is the part of task.Store the API serves
type TaskStore interface {
	TasksDir() string
	Create(ctx context.Context, id string, category prompt.Category, params map[string]any) (string, error)
	List(ctx context.Context) ([]task.Entry, error)
	ListPending(ctx context.Context) ([]string, error)
	Read(taskPath string) (*task.Document, error)
	ResultPathFor(taskPath string) string
	HasResult(taskPath string) bool
	Next(ctx context.Context) (*task.PrioritizedTask, error)
	Cleanup(ctx context.Context, maxAgeDays int) (int, error)
}

// Handlers contains the HTTP handlers for the task API
type Handlers struct {
	store      TaskStore
	startTime  time.Time
	maxAgeDays int
	newID      func() string

	afterCreate func(ctx context.Context, id string, category prompt.Category, path string) error
}

// NewHandlers creates a new handlers instance
func NewHandlers(store TaskStore, startTime time.Time, maxAgeDays int) *Handlers {
	return &Handlers{
		store:      store,
		startTime:  startTime,
		maxAgeDays: maxAgeDays,
		newID:      uuid.NewString,
	}
}

// GetHealth handles GET /health
func (h *Handlers) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// GetTasks handles GET /tasks with an optional state filter
func (h *Handlers) GetTasks(c echo.Context) error {
	ctx := c.Request().Context()

	state := task.State(c.QueryParam("state"))
	if state != "" && state != task.StatePending && state != task.StateResolved {
		return echo.NewHTTPError(http.StatusBadRequest, "state must be pending or resolved")
	}

	entries, err := h.store.List(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list tasks", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list tasks")
	}

	tasks := make([]task.Entry, 0, len(entries))
	for _, e := range entries {
		if state == "" || e.State == state {
			tasks = append(tasks, e)
		}
	}

	return c.JSON(http.StatusOK, TasksResponse{
		Tasks:     tasks,
		Total:     len(tasks),
		Timestamp: time.Now(),
	})
}

// GetPending handles GET /tasks/pending
func (h *Handlers) GetPending(c echo.Context) error {
	ctx := c.Request().Context()

	pending, err := h.store.ListPending(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list pending tasks", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list pending tasks")
	}
	if pending == nil {
		pending = []string{}
	}

	return c.JSON(http.StatusOK, PendingResponse{
		Pending:   pending,
		Total:     len(pending),
		Timestamp: time.Now(),
	})
}

// GetNext handles GET /tasks/next
func (h *Handlers) GetNext(c echo.Context) error {
	ctx := c.Request().Context()

	next, err := h.store.Next(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to prioritize tasks", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to prioritize tasks")
	}
	if next == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, next)
}

// GetTask handles GET /tasks/:name
func (h *Handlers) GetTask(c echo.Context) error {
	name := c.Param("name")
	if name != filepath.Base(name) || !task.IsTaskFile(name) {
		return echo.NewHTTPError(http.StatusBadRequest, "name must be a task file name")
	}

	taskPath := filepath.Join(h.store.TasksDir(), name)
	doc, err := h.store.Read(taskPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		logger.FromContext(c.Request().Context()).Error("Failed to read task",
			zap.String("path", taskPath), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read task")
	}

	state := task.StatePending
	if h.store.HasResult(taskPath) {
		state = task.StateResolved
	}

	return c.JSON(http.StatusOK, TaskResponse{
		Task:       doc,
		Kind:       doc.Kind().String(),
		State:      state,
		ResultPath: h.store.ResultPathFor(taskPath),
		Timestamp:  time.Now(),
	})
}

// CreateTask handles POST /tasks
func (h *Handlers) CreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	category := prompt.Normalize(req.Category)
	if category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category is required")
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = h.newID()
	}

	path, err := h.store.Create(c.Request().Context(), id, category, req.Parameters)
	if err != nil {
		logger.FromContext(c.Request().Context()).Error("Failed to create task",
			zap.String("id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create task")
	}

	if h.afterCreate != nil {
		if err := h.afterCreate(c.Request().Context(), id, category, path); err != nil {
			logger.FromContext(c.Request().Context()).Error("Created hooks failed",
				zap.String("path", path), zap.Error(err))
		}
	}

	return c.JSON(http.StatusCreated, CreateTaskResponse{
		ID:         id,
		Category:   category.String(),
		Skill:      category.Skill(),
		Path:       path,
		ResultPath: h.store.ResultPathFor(path),
	})
}

// Cleanup handles POST /cleanup
func (h *Handlers) Cleanup(c echo.Context) error {
	var req CleanupRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	days := h.maxAgeDays
	if req.MaxAgeDays != nil {
		days = *req.MaxAgeDays
	}

	deleted, err := h.store.Cleanup(c.Request().Context(), days)
	if errors.Is(err, task.ErrInvalidMaxAge) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp := CleanupResponse{Deleted: deleted, MaxAgeDays: days}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
