package client

import (
	"context"
	"fmt"
	"io"

	"github.com/satishbabariya/objgraph/query"
	"github.com/satishbabariya/objgraph/query/cache"
	"github.com/satishbabariya/objgraph/query/result"
	"github.com/satishbabariya/objgraph/query/translator"
)

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// Iterate runs q and returns its results as a lazy iterator. The iterator
// holds a pooled connection until it is closed; inside a transaction it uses
// the transaction's connection. Iterate bypasses the cache and extensions.
func (c *Client) Iterate(ctx context.Context, q *query.SelectQuery) (result.Iterator[any], error) {
	stmt, _, err := q.Translate(c.resolver, c.adapter)
	if err != nil {
		return nil, err
	}
	return c.iterate(ctx, stmt)
}

func (c *Client) iterate(ctx context.Context, stmt *translator.Statement) (result.Iterator[any], error) {
	reader, err := result.SelectReader(stmt.Shape, c.adapter)
	if err != nil {
		return nil, err
	}

	conn, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := c.query(ctx, conn, stmt.SQL, stmt.Args)
	if err != nil {
		release()
		return nil, err
	}

	var owned io.Closer
	if !conn.InTx() {
		owned = closerFunc(release)
	}
	var src result.Iterator[result.Row] = result.NewCursorIterator(rows, result.CursorOptions{Connection: owned})
	if len(stmt.DistinctKey) > 0 {
		src = result.NewDistinct(src, result.PrimaryKeyKey(stmt.DistinctKey...))
	}
	if stmt.Offset > 0 || stmt.Limit > 0 {
		src = result.NewLimit(src, stmt.Offset, stmt.Limit)
	}
	return result.Materialize(src, reader), nil
}

// Select runs q and returns every result. Queries with a cache strategy are
// served from the cache outside transactions; concurrent misses for the same
// statement share one database round trip. Cached objects are shared between
// callers and must not be modified.
func (c *Client) Select(ctx context.Context, q *query.SelectQuery) ([]any, error) {
	stmt, entity, err := q.Translate(c.resolver, c.adapter)
	if err != nil {
		return nil, err
	}
	return c.runQuery(ctx, entity.Name, q, func() ([]any, error) {
		_, inTx := TxFromContext(ctx)
		if c.cache == nil || q.CacheStrategy() == query.NoCache || inTx {
			return c.fetch(ctx, stmt)
		}

		key := cache.Key(stmt.SQL, stmt.Args)
		if q.CacheStrategy() == query.SharedCache {
			if v, ok := c.cache.Get(key); ok {
				return append([]any(nil), v.([]any)...), nil
			}
		}
		v, err, shared := c.flight.Do(key, func() (any, error) {
			objs, err := c.fetch(ctx, stmt)
			if err != nil {
				return nil, err
			}
			c.cache.Set(key, objs, 0, q.CacheGroups()...)
			return objs, nil
		})
		if err != nil {
			return nil, err
		}
		if shared {
			c.log.Debug("shared query result", "entity", entity.Name)
		}
		return append([]any(nil), v.([]any)...), nil
	})
}

func (c *Client) fetch(ctx context.Context, stmt *translator.Statement) ([]any, error) {
	it, err := c.iterate(ctx, stmt)
	if err != nil {
		return nil, err
	}
	objs, err := it.AllRows()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return objs, nil
}

// SelectOne returns the single object matching q. It returns ErrNotFound
// when nothing matches and ErrTooManyResults when more than one does.
func (c *Client) SelectOne(ctx context.Context, q *query.SelectQuery) (any, error) {
	it, err := c.Iterate(ctx, q)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	if !it.HasNextRow() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, q.Entity())
	}
	obj, err := it.NextRow()
	if err != nil {
		return nil, err
	}
	if it.HasNextRow() {
		if _, err := it.NextRow(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrTooManyResults, q.Entity())
	}
	return obj, nil
}

// SelectAs runs q through c.Select and asserts every result to T.
func SelectAs[T any](ctx context.Context, c *Client, q *query.SelectQuery) ([]T, error) {
	objs, err := c.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(objs))
	for i, o := range objs {
		t, ok := o.(T)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not %T", ErrResultType, o, t)
		}
		out[i] = t
	}
	return out, nil
}
