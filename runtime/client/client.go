// Package client runs object queries and commits against a managed
// connection pool.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/satishbabariya/objgraph/internal/debug"
	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/pool"
	"github.com/satishbabariya/objgraph/query/cache"
	"github.com/satishbabariya/objgraph/query/ddl"
	"github.com/satishbabariya/objgraph/query/dialect"
)

// Client owns a managed pool, the dialect adapter, the mapping and the query
// cache.
type Client struct {
	pool     *pool.Managed
	adapter  dialect.Adapter
	resolver *meta.EntityResolver
	cache    cache.Cache
	log      *slog.Logger

	middlewares []Middleware
	extensions  []Extension

	flight singleflight.Group
	// rank orders tables by foreign key dependency for commits.
	rank map[string]int

	mu    sync.RWMutex
	types map[reflect.Type]*meta.ObjEntity

	closers []func() error
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the query result cache.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithLogger sets the logger. The default is the "client" debug component.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// WithMiddleware appends statement middlewares.
func WithMiddleware(m ...Middleware) Option {
	return func(cl *Client) { cl.middlewares = append(cl.middlewares, m...) }
}

// WithExtension appends object operation extensions.
func WithExtension(e ...Extension) Option {
	return func(cl *Client) { cl.extensions = append(cl.extensions, e...) }
}

// New creates a client over an existing pool. The client does not close p.
func New(p *pool.Managed, adapter dialect.Adapter, resolver *meta.EntityResolver, opts ...Option) *Client {
	c := &Client{
		pool:     p,
		adapter:  adapter,
		resolver: resolver,
		log:      debug.Component("client"),
		rank:     make(map[string]int),
		types:    make(map[reflect.Type]*meta.ObjEntity),
	}
	for i, t := range ddl.SortTables(resolver.DbEntities()) {
		c.rank[t.Name] = i
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects according to cfg. Without cfg.Adapter the dialect is
// detected from the server.
func Open(ctx context.Context, cfg Config, resolver *meta.EntityResolver, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	var adapter dialect.Adapter
	if cfg.Adapter != "" {
		a, err := dialect.ByName(cfg.Adapter)
		if err != nil {
			return nil, err
		}
		adapter = a
	}
	driver := cfg.Driver
	if driver == "" {
		driver = adapter.DriverName()
	}

	factory, err := pool.DriverFactory(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		if adapter, err = dialect.Detect(ctx, factory.DB()); err != nil {
			_ = factory.Close()
			return nil, err
		}
	}

	params := cfg.Pool
	if params.ValidationQuery == "" {
		params.ValidationQuery = adapter.ValidationQuery()
	}
	managed, err := pool.NewManaged(ctx, factory, params, cfg.ManageInterval,
		pool.WithLogger(debug.Component("pool")),
		pool.WithErrorClassifier(adapter),
	)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}

	var defaults []Option
	if cfg.CacheSize > 0 {
		defaults = append(defaults, WithCache(cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)))
	}
	if cfg.Debug {
		defaults = append(defaults, WithMiddleware(LoggingMiddleware(debug.Component("sql"))))
	}
	c := New(managed, adapter, resolver, append(defaults, opts...)...)
	c.closers = append(c.closers, managed.Close, factory.Close)
	c.log.Info("client opened", "adapter", adapter.Name(), "driver", driver, "pool_max", params.MaxConnections)
	return c, nil
}

// Close releases what Open created. Clients made with New own nothing.
func (c *Client) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Client) Adapter() dialect.Adapter       { return c.adapter }
func (c *Client) Resolver() *meta.EntityResolver { return c.resolver }
func (c *Client) Pool() *pool.Managed            { return c.pool }

// Cache returns the query cache, or nil when caching is off.
func (c *Client) Cache() cache.Cache { return c.cache }

// Use appends a middleware. It must not be called while statements run.
func (c *Client) Use(m Middleware) {
	c.middlewares = append(c.middlewares, m)
}

// Ping checks out a connection and runs the validation query on it.
func (c *Client) Ping(ctx context.Context) error {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	var one any
	return c.executeWithMiddleware(ctx, c.adapter.ValidationQuery(), nil, func() error {
		return conn.QueryRowContext(ctx, c.adapter.ValidationQuery()).Scan(&one)
	})
}

// Exec runs a statement, inside the context's transaction if there is one.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.exec(ctx, conn, query, args)
}

// GenerateSchema runs the DDL for every mapped table.
func (c *Client) GenerateSchema(ctx context.Context, opts ddl.Options) error {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return ddl.New(c.adapter, c.resolver.DbEntities(), opts).Execute(ctx, conn)
}

// acquire returns the connection of the context's transaction, or checks one
// out of the pool. release returns it.
func (c *Client) acquire(ctx context.Context) (*pool.Conn, func(), error) {
	if tx, ok := TxFromContext(ctx); ok && tx.client == c {
		return tx.conn, func() {}, nil
	}
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { _ = conn.Close() }, nil
}

func (c *Client) exec(ctx context.Context, conn *pool.Conn, query string, args []any) (sql.Result, error) {
	var res sql.Result
	err := c.executeWithMiddleware(ctx, query, args, func() error {
		var err error
		res, err = conn.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func (c *Client) query(ctx context.Context, conn *pool.Conn, query string, args []any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := c.executeWithMiddleware(ctx, query, args, func() error {
		var err error
		rows, err = conn.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}

// entityOf resolves the entity of a persistent object: a bound struct type,
// an EntityName method, or the entity recorded in its ObjectID.
func (c *Client) entityOf(obj meta.Persistent) (*meta.ObjEntity, error) {
	c.mu.RLock()
	e := c.types[reflect.TypeOf(obj)]
	c.mu.RUnlock()
	if e != nil {
		return e, nil
	}

	name := obj.ObjectID().Entity
	if n, ok := obj.(interface{ EntityName() string }); ok {
		name = n.EntityName()
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %T", ErrUnmapped, obj)
	}
	return c.resolver.LookupObjEntity(name)
}
