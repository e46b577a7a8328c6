// Package schedule creates candidate-search tasks on a weekly region rotation.
package schedule

import (
	"context"
	"fmt"
	"time"

	"policytask/internal/logger"
	"policytask/internal/prompt"
	"policytask/internal/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects which regions a run covers
type Mode string

const (
	ModeWeekly Mode = "weekly"
	ModeAll    Mode = "all"
	ModeManual Mode = "manual"
)

const (
	DefaultSearchDays   = 30
	DefaultElectionYear = prompt.DefaultElectionYear
)

// ParseMode parses a mode name, empty meaning weekly
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeWeekly:
		return ModeWeekly, nil
	case ModeAll, ModeManual:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid schedule mode: %s", s)
	}
}

// TaskStore is the part of the task store the planner needs
type TaskStore interface {
	Create(ctx context.Context, id string, category prompt.Category, params map[string]any) (string, error)
	List(ctx context.Context) ([]task.Entry, error)
	Read(taskPath string) (*task.Document, error)
}

// Request describes one scheduling run
type Request struct {
	Mode         Mode
	Regions      []string
	Category     prompt.Category
	ElectionYear int
	SearchDays   int
}

// Planned is a task created by a run
type Planned struct {
	Region   string `json:"region"`
	ID       string `json:"id"`
	Path     string `json:"path"`
	Priority int    `json:"priority"`
}

// Skipped is a region a run did not create a task for
type Skipped struct {
	Region string `json:"region"`
	Reason string `json:"reason"`
}

// Report summarises a run
type Report struct {
	Created     []Planned `json:"created"`
	Skipped     []Skipped `json:"skipped"`
	SearchAfter string    `json:"search_after_date"`
}

// Planner turns a Request into task files
type Planner struct {
	store TaskStore
	now   func() time.Time
	newID func() string
}

// Option configures a Planner
type Option func(*Planner)

// WithClock overrides the clock deciding the weekday and the search window
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// WithIDGenerator overrides how task identities are generated
func WithIDGenerator(newID func() string) Option {
	return func(p *Planner) {
		p.newID = newID
	}
}

// NewPlanner creates a planner writing through store
func NewPlanner(store TaskStore, opts ...Option) *Planner {
	p := &Planner{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run creates one task per selected region, skipping regions that already
// have a task of the same category created today
func (p *Planner) Run(ctx context.Context, req Request) (*Report, error) {
	lgr := logger.FromContext(ctx)

	req = withDefaults(req)
	now := p.now().UTC()

	regions, err := p.regions(req, now)
	if err != nil {
		return nil, err
	}

	searchAfter := now.AddDate(0, 0, -req.SearchDays).Format("2006-01-02")
	report := &Report{
		Created:     []Planned{},
		Skipped:     []Skipped{},
		SearchAfter: searchAfter,
	}

	if len(regions) == 0 {
		lgr.Info("No regions scheduled today", zap.String("weekday", now.Weekday().String()))
		return report, nil
	}

	existing, err := p.scheduledToday(ctx, req.Category, now)
	if err != nil {
		return nil, err
	}

	for _, region := range regions {
		if existing[region] {
			report.Skipped = append(report.Skipped, Skipped{Region: region, Reason: "already scheduled today"})
			continue
		}

		id := p.newID()
		priority := Priority(region)
		path, err := p.store.Create(ctx, id, req.Category, map[string]any{
			"election_year":     req.ElectionYear,
			"region":            region,
			"search_after_date": searchAfter,
			"search_date_limit": req.SearchDays,
			"priority":          priority,
		})
		if err != nil {
			lgr.Error("Failed to create scheduled task", zap.String("region", region), zap.Error(err))
			report.Skipped = append(report.Skipped, Skipped{Region: region, Reason: err.Error()})
			continue
		}

		existing[region] = true
		report.Created = append(report.Created, Planned{Region: region, ID: id, Path: path, Priority: priority})
	}

	lgr.Info("Schedule run completed",
		zap.String("mode", string(req.Mode)),
		zap.String("category", string(req.Category)),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", len(report.Skipped)))

	return report, nil
}

func withDefaults(req Request) Request {
	if req.Mode == "" {
		req.Mode = ModeWeekly
	}
	if req.Category == "" {
		req.Category = prompt.CategoryCandidateSearch
	}
	if req.ElectionYear == 0 {
		req.ElectionYear = DefaultElectionYear
	}
	if req.SearchDays <= 0 {
		req.SearchDays = DefaultSearchDays
	}
	return req
}

func (p *Planner) regions(req Request, now time.Time) ([]string, error) {
	switch req.Mode {
	case ModeWeekly:
		return RegionsFor(now.Weekday()), nil
	case ModeAll:
		return AllRegions(), nil
	case ModeManual:
		if len(req.Regions) == 0 {
			return nil, fmt.Errorf("manual mode requires at least one region")
		}
		return req.Regions, nil
	default:
		return nil, fmt.Errorf("invalid schedule mode: %s", req.Mode)
	}
}

// scheduledToday collects the regions that already have a task of category
// created on the same UTC day as now
func (p *Planner) scheduledToday(ctx context.Context, category prompt.Category, now time.Time) (map[string]bool, error) {
	lgr := logger.FromContext(ctx)

	entries, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing tasks: %w", err)
	}

	today := now.Format("2006-01-02")
	found := make(map[string]bool)
	for _, entry := range entries {
		if entry.CreatedAt.UTC().Format("2006-01-02") != today {
			continue
		}

		doc, err := p.store.Read(entry.Path)
		if err != nil {
			lgr.Warn("Skipping unreadable task file", zap.String("path", entry.Path), zap.Error(err))
			continue
		}
		if doc.Category != string(category) {
			continue
		}
		if region, ok := doc.Parameters["region"].(string); ok {
			found[region] = true
		}
	}
	return found, nil
}
