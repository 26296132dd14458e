// Package pool implements a bounded connection pool with validation,
// transparent recovery of dead connections and gradual self-tuning between
// its minimum and maximum size.
package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satishbabariya/objgraph/internal/debug"
)

// Factory opens physical connections.
type Factory interface {
	Connect(ctx context.Context) (PhysicalConn, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (PhysicalConn, error)

func (f FactoryFunc) Connect(ctx context.Context) (PhysicalConn, error) { return f(ctx) }

// ErrorClassifier decides whether an error means the connection is dead.
// Every dialect.Adapter satisfies it.
type ErrorClassifier interface {
	IsConnectionError(err error) bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger. The default is the "pool" debug component.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// WithErrorClassifier sets how dead connections are recognized.
func WithErrorClassifier(c ErrorClassifier) Option {
	return func(p *Pool) { p.classifier = c }
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Open       int
	Idle       int
	CheckedOut int
	Pending    int
	Waits      int64
	Timeouts   int64
	Created    int64
	Evicted    int64
	Recovered  int64
}

// Pool hands out validated connections up to MaxConnections, blocking callers
// for at most MaxQueueWait when every connection is checked out.
type Pool struct {
	factory    Factory
	params     Parameters
	floor      int
	classifier ErrorClassifier
	log        *slog.Logger

	mu         sync.Mutex
	idle       []*Conn
	open       int
	checkedOut int
	// pending counts slots reserved by connects in progress.
	pending int
	closed  bool
	// notify is closed and replaced whenever a connection or a slot frees up.
	notify chan struct{}
	nextID uint64

	waits     atomic.Int64
	timeouts  atomic.Int64
	created   atomic.Int64
	evicted   atomic.Int64
	recovered atomic.Int64
}

// New creates a pool and fills it to MinConnections. A connection failing
// validation during the fill is reported as a *ConfigError.
func New(ctx context.Context, factory Factory, params Parameters, opts ...Option) (*Pool, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		factory: factory,
		params:  params,
		floor:   params.floor(),
		notify:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = debug.Component("pool")
	}

	for i := 0; i < params.MinConnections; i++ {
		c, err := p.connect(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("filling pool: %w", err)
		}
		p.mu.Lock()
		p.open++
		p.idle = append(p.idle, c)
		p.mu.Unlock()

		if !c.Validate(ctx) {
			p.Close()
			return nil, &ConfigError{
				Param: "ValidationQuery",
				Err:   fmt.Errorf("validation of a new connection failed (query %q)", params.ValidationQuery),
			}
		}
	}

	p.log.Debug("pool created", "min", params.MinConnections, "max", params.MaxConnections, "floor", p.floor)
	return p, nil
}

// Get checks out a connection, reusing idle ones first and opening a new one
// while below MaxConnections. Otherwise it waits for a release.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}

		if len(p.idle) > 0 {
			c := p.idle[0]
			p.idle = p.idle[1:]
			p.checkout(c)
			p.mu.Unlock()

			if c.Validate(ctx) {
				return c, nil
			}
			p.discard(c)
			p.mu.Lock()
			continue
		}

		if p.open+p.pending < p.params.MaxConnections {
			p.pending++
			p.mu.Unlock()

			c, err := p.connect(ctx)

			p.mu.Lock()
			p.pending--
			if err != nil {
				p.broadcastLocked()
				p.mu.Unlock()
				return nil, err
			}
			if p.closed {
				p.mu.Unlock()
				p.closeRaw(c)
				return nil, ErrPoolClosed
			}
			p.open++
			p.checkout(c)
			p.mu.Unlock()
			return c, nil
		}

		if timer == nil {
			wait := p.params.queueWait()
			if wait <= 0 {
				p.mu.Unlock()
				p.timeouts.Add(1)
				return nil, &ExhaustedError{MaxConnections: p.params.MaxConnections}
			}
			p.waits.Add(1)
			timer = time.NewTimer(wait)
		}
		notify := p.notify
		p.mu.Unlock()

		select {
		case <-notify:
		case <-timer.C:
			p.timeouts.Add(1)
			waited := time.Since(start)
			p.log.Warn("connection pool exhausted", "waited", waited, "max", p.params.MaxConnections)
			return nil, &ExhaustedError{Waited: waited, MaxConnections: p.params.MaxConnections}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		p.mu.Lock()
	}
}

// checkout must be called with p.mu held.
func (p *Pool) checkout(c *Conn) {
	c.checkedOut = true
	c.lastUsed = time.Now()
	p.checkedOut++
}

// release returns c to the idle queue, or closes it when the pool is closed
// or c was retired. It never waits for other callers.
func (p *Pool) release(c *Conn) {
	c.resetTx()

	p.mu.Lock()
	if !c.checkedOut {
		p.mu.Unlock()
		return
	}
	c.checkedOut = false
	p.checkedOut--

	if closed := p.closed; closed || c.retired.Load() {
		p.open--
		p.broadcastLocked()
		p.mu.Unlock()
		if !closed {
			p.evicted.Add(1)
		}
		p.closeRaw(c)
		return
	}

	c.lastUsed = time.Now()
	p.idle = append(p.idle, c)
	p.broadcastLocked()
	p.mu.Unlock()
}

// discard drops a checked-out connection that failed validation.
func (p *Pool) discard(c *Conn) {
	p.mu.Lock()
	c.checkedOut = false
	p.checkedOut--
	p.open--
	p.broadcastLocked()
	p.mu.Unlock()

	p.evicted.Add(1)
	p.closeRaw(c)
}

// Retire evicts c outside of the normal return path. An idle connection is
// closed at once; a checked-out one is closed when it is returned.
func (p *Pool) Retire(c *Conn) {
	c.retired.Store(true)

	p.mu.Lock()
	i := slices.Index(p.idle, c)
	if i < 0 {
		p.mu.Unlock()
		return
	}
	p.idle = slices.Delete(p.idle, i, i+1)
	p.open--
	p.broadcastLocked()
	p.mu.Unlock()

	p.evicted.Add(1)
	p.log.Debug("connection retired", "conn", c.id)
	p.closeRaw(c)
}

// ManagePool performs a single tuning step: open one connection while below
// MinConnections, or close the oldest idle connection while above the shrink
// floor and nothing is checked out. Anything else is left alone.
func (p *Pool) ManagePool(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}

	switch {
	case p.open+p.pending < p.params.MinConnections:
		p.pending++
		p.mu.Unlock()

		c, err := p.connect(ctx)

		p.mu.Lock()
		p.pending--
		if err != nil {
			p.broadcastLocked()
			p.mu.Unlock()
			return fmt.Errorf("growing pool: %w", err)
		}
		if p.closed {
			p.mu.Unlock()
			p.closeRaw(c)
			return ErrPoolClosed
		}
		p.open++
		p.idle = append(p.idle, c)
		size := p.open
		p.broadcastLocked()
		p.mu.Unlock()
		p.log.Debug("pool grown", "size", size)

	case p.checkedOut == 0 && len(p.idle) > 0 && p.open > p.floor:
		c := p.idle[0]
		p.idle = p.idle[1:]
		p.open--
		size := p.open
		p.mu.Unlock()

		p.evicted.Add(1)
		p.closeRaw(c)
		p.log.Debug("pool shrunk", "size", size, "floor", p.floor)

	default:
		p.mu.Unlock()
	}
	return nil
}

// Close shuts the pool down and closes every idle connection. Checked-out
// connections are closed as they come back. Calling Close again is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	p.broadcastLocked()
	p.mu.Unlock()

	var errs []error
	for _, c := range idle {
		if err := c.raw.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection %d: %w", c.id, err))
		}
	}
	p.log.Debug("pool closed", "closed", len(idle), "errors", len(errs))
	return errors.Join(errs...)
}

// PoolSize is the number of open connections, idle or checked out.
func (p *Pool) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// AvailableSize is the number of idle connections.
func (p *Pool) AvailableSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// CheckedOut is the number of connections currently in use.
func (p *Pool) CheckedOut() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkedOut
}

// CanExpandSize is how many more connections could be opened.
func (p *Pool) CanExpandSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.MaxConnections - p.open - p.pending
}

// Parameters returns the configuration the pool was created with.
func (p *Pool) Parameters() Parameters { return p.params }

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		Open:       p.open,
		Idle:       len(p.idle),
		CheckedOut: p.checkedOut,
		Pending:    p.pending,
	}
	p.mu.Unlock()
	s.Waits = p.waits.Load()
	s.Timeouts = p.timeouts.Load()
	s.Created = p.created.Load()
	s.Evicted = p.evicted.Load()
	s.Recovered = p.recovered.Load()
	return s
}

func (p *Pool) connect(ctx context.Context) (*Conn, error) {
	raw, err := p.factory.Connect(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()
	p.created.Add(1)
	return &Conn{pool: p, id: id, raw: raw, createdAt: now, lastUsed: now}, nil
}

func (p *Pool) closeRaw(c *Conn) {
	if err := c.raw.Close(); err != nil {
		p.log.Debug("closing connection", "conn", c.id, "error", err)
	}
}

// broadcastLocked wakes every waiter. p.mu must be held.
func (p *Pool) broadcastLocked() {
	close(p.notify)
	p.notify = make(chan struct{})
}

func (p *Pool) isConnectionError(err error) bool {
	if p.classifier != nil {
		return p.classifier.IsConnectionError(err)
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}
