// Package workflow drives campaign jobs through the ordered stage pipeline.
// The manager owns job execution: submissions return immediately, one
// goroutine per job advances it scrape -> research -> generate, and every
// state change goes through the store so pollers always see the latest
// snapshot.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"herald/internal/campaign"
	"herald/internal/campaign/store"
	"herald/internal/config"
	"herald/internal/logging"
	"herald/internal/notifications"
	"herald/internal/stage"
)

// StageSet bundles the concrete pipeline handlers in execution order.
type StageSet struct {
	Scrape   stage.Handler
	Research stage.Handler
	Generate stage.Handler
}

func (s StageSet) ordered() []stage.Handler {
	return []stage.Handler{s.Scrape, s.Research, s.Generate}
}

// progressBand maps a stage's internal [0,1] fraction onto the job-wide
// progress range it owns. Bands keep the published percentage moving
// smoothly through long stages instead of jumping at stage boundaries.
type progressBand struct {
	lo, hi float64
}

var stageBands = map[campaign.Stage]progressBand{
	campaign.StageScrape:   {0.05, 0.25},
	campaign.StageResearch: {0.25, 0.60},
	campaign.StageGenerate: {0.60, 0.95},
}

// Manager coordinates background job execution.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	stages   StageSet
	logger   *slog.Logger
	notifier notifications.Service

	// slots caps how many jobs run concurrently; a submission beyond the
	// cap stays queued until a slot frees up.
	slots chan struct{}

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, st *store.Store, stages StageSet, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    st,
		stages:   stages,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifications.NewService(cfg),
		slots:    make(chan struct{}, cfg.Workflow.MaxActiveJobs),
	}
}

// Start enables background processing. Submissions before Start are
// rejected.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	for _, handler := range m.stages.ordered() {
		if handler == nil {
			return errors.New("workflow stages not configured")
		}
	}
	m.runCtx, m.cancel = context.WithCancel(ctx)
	m.running = true
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// observe cancellation.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Health reports the readiness of every configured stage.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	handlers := m.stages.ordered()
	health := make([]stage.Health, 0, len(handlers))
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		health = append(health, handler.HealthCheck(ctx))
	}
	return health
}
