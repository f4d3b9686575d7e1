package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Check probes one dependency; a nil error means reachable.
type Check func(ctx context.Context) error

type Monitor struct {
	checks map[string]Check

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   make(map[string]Check),
		interval: interval,
		timeout:  3 * time.Second,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Register adds a named probe. It must be called before Start.
func (m *Monitor) Register(name string, check Check) {
	if check == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Start runs a first probe round and schedules the following ones.
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc("@every "+m.interval.String(), func() {
		m.Refresh(context.Background())
	}); err != nil {
		return err
	}
	m.Refresh(context.Background())
	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running probe round to finish.
func (m *Monitor) Stop(ctx context.Context) {
	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	services := make(map[string]bool, len(m.status.Services))
	for name, ok := range m.status.Services {
		services[name] = ok
	}
	return Status{Services: services, LastCheck: m.status.LastCheck}
}

// Refresh probes every registered dependency once.
func (m *Monitor) Refresh(ctx context.Context) {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	checks := m.checks
	m.mu.RUnlock()
	sort.Strings(names)

	services := make(map[string]bool, len(names))
	for _, name := range names {
		services[name] = m.probe(ctx, name, checks[name])
	}

	m.mu.Lock()
	m.status = Status{Services: services, LastCheck: time.Now()}
	m.mu.Unlock()
}

func (m *Monitor) probe(ctx context.Context, name string, check Check) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := check(probeCtx); err != nil {
		m.logger.Warn("dependency check failed", zap.String("service", name), zap.Error(err))
		return false
	}
	return true
}
