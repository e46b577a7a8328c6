package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"policytask/internal/logger"
	"policytask/internal/prompt"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// PrioritizedTask is a pending task with its calculated priority score
type PrioritizedTask struct {
	Entry
	Category string `json:"category"`
	Priority int    `json:"priority,omitempty"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
}

// baseScores orders categories when nothing else distinguishes two tasks.
// Unmapped categories fall back to 100.
var baseScores = map[prompt.Category]int{
	prompt.CategoryCandidateSearch:  1000,
	prompt.CategoryPolicyVerify:     800,
	prompt.CategoryProgressTracking: 600,
	prompt.CategoryPolicySearch:     400,
}

// Prioritize scores every pending task, highest score first. Ties keep the
// older task first.
func (s *Store) Prioritize(ctx context.Context) ([]PrioritizedTask, error) {
	lgr := logger.FromContext(ctx)

	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var items []PrioritizedTask
	for _, e := range entries {
		if e.State != StatePending {
			continue
		}

		doc, err := s.Read(e.Path)
		if err != nil {
			lgr.Warn("Skipping unreadable task file", zap.String("path", e.Path), zap.Error(err))
			continue
		}

		item := PrioritizedTask{
			Entry:    e,
			Category: doc.Category,
			Priority: cast.ToInt(doc.Parameters["priority"]),
		}
		item.Score, item.Reason = calculatePriority(item, doc.Kind(), now)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	return items, nil
}

// Next returns the pending task to work on first, nil when nothing is pending
func (s *Store) Next(ctx context.Context) (*PrioritizedTask, error) {
	items, err := s.Prioritize(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	logger.FromContext(ctx).Debug("Selected next task",
		zap.String("task", items[0].Name),
		zap.Int("score", items[0].Score),
		zap.String("reason", items[0].Reason))

	return &items[0], nil
}

// calculatePriority scores a task by category, scheduler priority and age
func calculatePriority(item PrioritizedTask, kind prompt.Category, now time.Time) (int, string) {
	score, ok := baseScores[kind]
	if !ok {
		score = 100
	}
	var reasons []string

	// scheduler priorities run 1 (highest) to 3
	switch item.Priority {
	case 1:
		score += 300
		reasons = append(reasons, "priority 1")
	case 2:
		score += 200
		reasons = append(reasons, "priority 2")
	case 3:
		score += 100
		reasons = append(reasons, "priority 3")
	}

	if !item.CreatedAt.IsZero() {
		ageDays := int(now.Sub(item.CreatedAt).Hours() / 24)
		switch {
		case ageDays >= 3:
			score += 200
			reasons = append(reasons, "old (3+ days)")
		case ageDays >= 1:
			score += 100
			reasons = append(reasons, "aging (1+ day)")
		}
	}

	reason := strings.Join(reasons, ", ")
	if reason == "" {
		reason = fmt.Sprintf("base priority (%s)", kind)
	}
	return score, reason
}
