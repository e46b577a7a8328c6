// Package task manages task files for an external agent.
//
// A task file is created once in the tasks directory and never modified. The
// agent answers it by writing <task-stem>_result.md into the results
// directory; pairing is by filename only. Files in both directories are removed
// by an age-based sweep. There are no locks: concurrent processes may collide
// on names and scans reflect whatever is on disk at the time.
package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"policytask/internal/config"
	"policytask/internal/logger"
	"policytask/internal/prompt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrInvalidMaxAge is returned by Cleanup for a negative age
var ErrInvalidMaxAge = errors.New("max age must not be negative")

// State is the lifecycle position of a task file
type State string

const (
	StatePending  State = "pending"
	StateResolved State = "resolved"
)

// Entry describes one task file found on disk
type Entry struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	ResultPath string    `json:"result_path"`
	State      State     `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store creates task files and tracks their results
type Store struct {
	tasksDir   string
	resultsDir string
	builder    *prompt.Builder
	now        func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for filenames and the cleanup cutoff
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store over the configured directories, creating the
// tasks and results directories when missing
func NewStore(paths config.Paths, builder *prompt.Builder, opts ...Option) (*Store, error) {
	if builder == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}

	s := &Store{
		tasksDir:   filepath.Clean(paths.TasksDir),
		resultsDir: filepath.Clean(paths.ResultsDir),
		builder:    builder,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{s.tasksDir, s.resultsDir} {
		if err := ensureDirectory(dir, config.DirPerm); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// TasksDir returns the directory holding task files
func (s *Store) TasksDir() string {
	return s.tasksDir
}

// ResultsDir returns the directory holding result files
func (s *Store) ResultsDir() string {
	return s.resultsDir
}

// Create writes a task file and returns its path. An existing file with the
// same name is overwritten.
func (s *Store) Create(ctx context.Context, id string, category prompt.Category, params map[string]any) (string, error) {
	lgr := logger.FromContext(ctx)

	taskPath := filepath.Join(s.tasksDir, FileName(s.now(), id))
	skill := category.Skill()

	instructions, err := s.builder.Render(id, category, params)
	if err != nil {
		return "", err
	}

	content, err := renderDocument(id, string(category), skill, params, instructions)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(taskPath, content, config.FilePerm); err != nil {
		return "", fmt.Errorf("failed to write task file: %w", err)
	}

	lgr.Info("Task file created",
		zap.String("path", taskPath),
		zap.String("task_type", string(category)),
		zap.String("skill", skill),
		zap.Bool("known_category", category.Known()))

	return taskPath, nil
}

// ResultPathFor derives where the agent writes the result of taskPath
func (s *Store) ResultPathFor(taskPath string) string {
	return filepath.Join(s.resultsDir, ResultName(taskPath))
}

// TaskPathFor maps a result file back to its task file
func (s *Store) TaskPathFor(resultPath string) (string, bool) {
	name, ok := TaskNameForResult(resultPath)
	if !ok {
		return "", false
	}
	return filepath.Join(s.tasksDir, name), true
}

// HasResult reports whether the result file of taskPath exists right now
func (s *Store) HasResult(taskPath string) bool {
	return fileExists(s.ResultPathFor(taskPath))
}

// Read parses a task file
func (s *Store) Read(taskPath string) (*Document, error) {
	return ReadDocument(taskPath)
}

// List returns every task file with its current state
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	entries, err := readDirIfExists(s.tasksDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks directory: %w", err)
	}

	var result []Entry
	for _, entry := range entries {
		if entry.IsDir() || !IsTaskFile(entry.Name()) {
			continue
		}

		taskPath := filepath.Join(s.tasksDir, entry.Name())
		e := Entry{
			Path:       taskPath,
			Name:       entry.Name(),
			ResultPath: s.ResultPathFor(taskPath),
			State:      StatePending,
		}
		if created, _, ok := ParseFileName(entry.Name()); ok {
			e.CreatedAt = created
		}
		if fileExists(e.ResultPath) {
			e.State = StateResolved
		}
		result = append(result, e)
	}

	logger.FromContext(ctx).Debug("Scanned tasks directory",
		zap.String("dir", s.tasksDir),
		zap.Int("tasks", len(result)))

	return result, nil
}

// ListPending returns the task files that have no result yet
func (s *Store) ListPending(ctx context.Context) ([]string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, e := range entries {
		if e.State == StatePending {
			pending = append(pending, e.Path)
		}
	}
	return pending, nil
}

// Cleanup deletes every .md file in the tasks and results directories whose
// modification time is maxAgeDays or more in the past. The two directories are
// swept independently. Failures do not stop the sweep; they are returned
// together with the number of files actually removed.
func (s *Store) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays < 0 {
		return 0, ErrInvalidMaxAge
	}

	cutoff := s.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	var errs error
	deleted := 0
	for _, dir := range []string{s.tasksDir, s.resultsDir} {
		n, err := s.sweep(ctx, dir, cutoff)
		deleted += n
		errs = multierr.Append(errs, err)
	}

	logger.FromContext(ctx).Info("Cleanup finished",
		zap.Int("deleted", deleted),
		zap.Int("max_age_days", maxAgeDays),
		zap.Int("errors", len(multierr.Errors(errs))))

	return deleted, errs
}

func (s *Store) sweep(ctx context.Context, dir string, cutoff time.Time) (int, error) {
	lgr := logger.FromContext(ctx)

	entries, err := readDirIfExists(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var errs error
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !documentPattern.Match(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("failed to stat %s: %w", path, err))
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		removed, err := removeIfExists(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to delete %s: %w", path, err))
			continue
		}
		if removed {
			deleted++
			lgr.Info("File deleted", zap.String("path", path))
		}
	}

	return deleted, errs
}
