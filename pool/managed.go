package pool

import (
	"context"
	"sync"
	"time"

	"github.com/satishbabariya/objgraph/internal/debug"
)

// Managed is a Pool together with the Manager that tunes it.
type Managed struct {
	pool    *Pool
	manager *Manager

	closeOnce sync.Once
}

// NewManaged creates a pool and starts tuning it every interval.
func NewManaged(ctx context.Context, factory Factory, params Parameters, interval time.Duration, opts ...Option) (*Managed, error) {
	p, err := New(ctx, factory, params, opts...)
	if err != nil {
		return nil, err
	}
	m := NewManager(p, interval, debug.Component("pool-manager"))
	m.Start()
	return &Managed{pool: p, manager: m}, nil
}

// Get checks out a connection.
func (m *Managed) Get(ctx context.Context) (*Conn, error) {
	return m.pool.Get(ctx)
}

// Close stops the manager and then closes the pool, returning the joined
// connection close failures. Later calls return nil.
func (m *Managed) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.manager.Stop()
		err = m.pool.Close()
	})
	return err
}

func (m *Managed) Pool() *Pool        { return m.pool }
func (m *Managed) PoolSize() int      { return m.pool.PoolSize() }
func (m *Managed) AvailableSize() int { return m.pool.AvailableSize() }
func (m *Managed) Stats() Stats       { return m.pool.Stats() }
