package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Monitor owns the recurring monitoring schedule. At most one recurring
// loop runs at a time; Start while running is a no-op, Stop lets an
// in-flight cycle finish naturally, and RunOnce triggers an out-of-band
// cycle without disturbing the schedule.
type Monitor struct {
	orchestrator CycleRunner
	interval     time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	lastSummary *Summary

	wg sync.WaitGroup
}

func NewMonitor(orchestrator CycleRunner, interval time.Duration) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		orchestrator: orchestrator,
		interval:     interval,
		rootCtx:      ctx,
		rootCancel:   cancel,
	}
}

// Start launches the recurring loop. Returns false if already running.
func (m *Monitor) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}

	m.running = true
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.loop(m.stopCh)

	slog.Info("Monitor started", "interval", m.interval.String())
	return true
}

// Stop prevents future scheduled cycles. An in-flight cycle is not
// interrupted. Returns false if not running.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}

	m.running = false
	close(m.stopCh)

	slog.Info("Monitor stopped")
	return true
}

// RunOnce triggers a single out-of-band cycle in the background. Valid
// whether or not the recurring loop is running; does not change its state.
func (m *Monitor) RunOnce() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		summary := m.orchestrator.RunCycle(m.rootCtx)
		m.setLastSummary(summary)
	}()
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// LastSummary returns the outcome of the most recent cycle, or nil if no
// cycle has completed yet.
func (m *Monitor) LastSummary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSummary
}

// Shutdown cancels any in-flight work and waits for it to finish. Used on
// process exit, where cooperative stopping is not enough.
func (m *Monitor) Shutdown() {
	m.Stop()
	m.rootCancel()
	m.wg.Wait()
}

func (m *Monitor) loop(stopCh chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		summary := m.orchestrator.RunCycle(m.rootCtx)
		m.setLastSummary(summary)

		if summary.Aborted {
			// Credential failure affects every account; keep the loop down
			// until an operator intervenes.
			slog.Error("Cycle aborted due to credential failure, stopping monitor")
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return
		}

		select {
		case <-stopCh:
			return
		case <-m.rootCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) setLastSummary(summary Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSummary = &summary
}
