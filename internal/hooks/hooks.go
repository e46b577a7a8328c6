// Package hooks runs the commands configured for task lifecycle events.
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"policytask/internal/config"
	"policytask/internal/logger"

	"go.uber.org/zap"
)

// Event names a task lifecycle event
type Event string

const (
	EventCreated  Event = "on_created"
	EventResolved Event = "on_resolved"
	EventCleanup  Event = "on_cleanup"
)

// Environment variables describing the event to hook commands
const (
	EnvTaskPath     = "POLICYTASK_TASK_PATH"
	EnvTaskID       = "POLICYTASK_TASK_ID"
	EnvTaskCategory = "POLICYTASK_TASK_CATEGORY"
	EnvResultPath   = "POLICYTASK_RESULT_PATH"
	EnvDeleted      = "POLICYTASK_DELETED"
)

// Execute runs the hooks configured for event in order. vars is added to the
// environment of every command.
func Execute(ctx context.Context, hookConfig *config.Hooks, event Event, vars map[string]string) error {
	hooks := ForEvent(hookConfig, event)
	if len(hooks) == 0 {
		return nil
	}

	lgr := logger.FromContext(ctx)
	lgr.Debug("Executing hooks",
		zap.String("event", string(event)),
		zap.Int("hook_count", len(hooks)))

	for i, hook := range hooks {
		if err := execute(ctx, event, i+1, hook, vars); err != nil {
			continueOn := hook.ContinueOn
			if continueOn == "" {
				continueOn = config.ContinueOnError
			}

			if continueOn == config.ContinueOnSuccess {
				return fmt.Errorf("%s hook %d failed: %w", event, i+1, err)
			}
			lgr.Warn("Continuing after hook failure",
				zap.String("event", string(event)),
				zap.Int("hook_index", i+1),
				zap.String("continue_on", continueOn))
		}
	}

	return nil
}

func execute(ctx context.Context, event Event, index int, hook config.HookCommand, vars map[string]string) error {
	lgr := logger.FromContext(ctx)

	description := hook.Description
	if description == "" {
		description = fmt.Sprintf("Hook %d", index)
	}

	timeout := time.Duration(config.DefaultHookTimeout) * time.Second
	if hook.Timeout > 0 {
		timeout = time.Duration(hook.Timeout) * time.Second
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, hook.Command, hook.Args...)
	cmd.Dir = hook.WorkingDir
	cmd.Env = append(os.Environ(), environ(vars)...)
	cmd.Env = append(cmd.Env, environ(hook.Env)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		lgr.Error("Hook command failed",
			zap.String("event", string(event)),
			zap.String("description", description),
			zap.String("command", hook.Command),
			zap.String("output", strings.TrimSpace(string(output))),
			zap.Error(err))
		return fmt.Errorf("hook command failed: %w\nOutput: %s", err, string(output))
	}

	lgr.Info("Hook executed",
		zap.String("event", string(event)),
		zap.String("description", description),
		zap.String("output", strings.TrimSpace(string(output))))

	return nil
}

// ForEvent returns the hooks configured for event
func ForEvent(hookConfig *config.Hooks, event Event) []config.HookCommand {
	if hookConfig == nil {
		return nil
	}

	switch event {
	case EventCreated:
		return hookConfig.OnCreated
	case EventResolved:
		return hookConfig.OnResolved
	case EventCleanup:
		return hookConfig.OnCleanup
	default:
		return nil
	}
}

// environ renders vars as KEY=value pairs in key order
func environ(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+vars[key])
	}
	return env
}
