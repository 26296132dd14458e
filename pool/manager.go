package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultManageInterval is how often a Managed pool is tuned.
const DefaultManageInterval = 10 * time.Minute

// Tunable is anything with a single-step tuning operation.
type Tunable interface {
	ManagePool(ctx context.Context) error
}

// Manager calls ManagePool on a fixed interval until stopped.
type Manager struct {
	target   Tunable
	interval time.Duration
	log      *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager creates a stopped manager. A non-positive interval uses
// DefaultManageInterval.
func NewManager(target Tunable, interval time.Duration, log *slog.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultManageInterval
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{target: target, interval: interval, log: log, ctx: ctx, cancel: cancel}
}

// Start launches the tuning goroutine. Only the first call has an effect, and
// a manager that was already stopped does not start.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		if m.ctx.Err() != nil {
			return
		}
		m.wg.Add(1)
		go m.loop()
	})
}

// Stop ends the loop and waits for the goroutine to exit. It is safe to call
// more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(m.cancel)
	m.wg.Wait()
}

func (m *Manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			// A stop that races the tick wins.
			if m.ctx.Err() != nil {
				return
			}
			m.cycle()
		}
	}
}

func (m *Manager) cycle() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("pool maintenance panicked", "panic", fmt.Sprint(r))
		}
	}()
	if err := m.target.ManagePool(m.ctx); err != nil {
		m.log.Warn("pool maintenance failed", "error", err)
	}
}
