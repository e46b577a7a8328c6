package server

import (
	"time"

	"policytask/internal/task"
)

// HealthResponse represents server health status
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// TasksResponse represents a list of task files
type TasksResponse struct {
	Tasks     []task.Entry `json:"tasks"`
	Total     int          `json:"total"`
	Timestamp time.Time    `json:"timestamp"`
}

// PendingResponse lists task files without a result
type PendingResponse struct {
	Pending   []string  `json:"pending"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskResponse represents one parsed task file
type TaskResponse struct {
	Task       *task.Document `json:"task"`
	Kind       string         `json:"kind"`
	State      task.State     `json:"state"`
	ResultPath string         `json:"result_path"`
	Timestamp  time.Time      `json:"timestamp"`
}

// CreateTaskRequest is the body of POST /tasks
type CreateTaskRequest struct {
	ID         string         `json:"id"`
	Category   string         `json:"category"`
	Parameters map[string]any `json:"parameters"`
}

// CreateTaskResponse describes a created task file
type CreateTaskResponse struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Skill      string `json:"skill"`
	Path       string `json:"path"`
	ResultPath string `json:"result_path"`
}

// CleanupRequest is the body of POST /cleanup; a missing age uses the server default
type CleanupRequest struct {
	MaxAgeDays *int `json:"max_age_days"`
}

// CleanupResponse reports a cleanup sweep
type CleanupResponse struct {
	Deleted    int      `json:"deleted"`
	MaxAgeDays int      `json:"max_age_days"`
	Errors     []string `json:"errors,omitempty"`
}
