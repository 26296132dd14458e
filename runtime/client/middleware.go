package client

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent describes one statement sent to the database.
type QueryEvent struct {
	Query    string
	Args     []any
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware intercepts statements. It must call next to run the statement.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// executeWithMiddleware runs exec through the middleware chain.
func (c *Client) executeWithMiddleware(ctx context.Context, query string, args []any, exec func() error) error {
	if len(c.middlewares) == 0 {
		return exec()
	}

	event := &QueryEvent{
		Query: query,
		Args:  args,
		Start: time.Now(),
	}

	var next func() error
	index := 0

	next = func() error {
		if index >= len(c.middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}

		m := c.middlewares[index]
		index++
		return m(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs each statement at debug level and failures at warn.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil {
			logger.WarnContext(ctx, "statement failed", "sql", event.Query, "args", event.Args, "error", err)
		} else {
			logger.DebugContext(ctx, "statement", "sql", event.Query, "args", event.Args, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware reports the duration of every statement.
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware reports failed statements.
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}
