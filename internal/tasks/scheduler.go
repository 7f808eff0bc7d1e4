package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"devlog/internal/metrics"

	"github.com/robfig/cron/v3"
)

const checkTimeout = 5 * time.Second

// Pinger is satisfied by the database gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of the last database check.
type Status struct {
	Connected bool
	CheckedAt time.Time
	Error     string
}

// HealthMonitor pings the database on a cron schedule and keeps the last result
// for the sidebar badge.
type HealthMonitor struct {
	cron   *cron.Cron
	db     Pinger
	spec   string
	logger *slog.Logger

	mu     sync.RWMutex
	status Status
}

func NewHealthMonitor(db Pinger, spec string, logger *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		cron:   cron.New(),
		db:     db,
		spec:   spec,
		logger: logger,
	}
}

// Start runs one check right away and then schedules the rest.
func (m *HealthMonitor) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc(m.spec, recoveryWrapper(m.logger, func() { m.Check(ctx) })); err != nil {
		return fmt.Errorf("schedule health check %q: %w", m.spec, err)
	}
	m.Check(ctx)
	m.cron.Start()
	m.logger.Info("database health check scheduled", "schedule", m.spec)
	return nil
}

// Stop waits for a running check to finish.
func (m *HealthMonitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *HealthMonitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	st := Status{Connected: true, CheckedAt: time.Now().UTC()}
	if err := m.db.Ping(ctx); err != nil {
		st.Connected = false
		st.Error = err.Error()
	}

	m.mu.Lock()
	changed := m.status.CheckedAt.IsZero() || m.status.Connected != st.Connected
	m.status = st
	m.mu.Unlock()

	metrics.SetDatabaseUp(st.Connected)
	if changed {
		if st.Connected {
			m.logger.Info("database reachable")
		} else {
			m.logger.Error("database unreachable", "error", st.Error)
		}
	}
	return st
}

func (m *HealthMonitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func recoveryWrapper(logger *slog.Logger, job func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("scheduled job panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		job()
	}
}
