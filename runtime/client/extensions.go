package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/objgraph/query"
)

// Operation names what an extension hook observes.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ExtensionContext describes one object level operation.
type ExtensionContext struct {
	Context   context.Context
	Entity    string
	Operation Operation
	// Query is set for selects.
	Query *query.SelectQuery
	// Object is set for inserts, updates and deletes. Before hooks may
	// change its properties and the changes are written.
	Object any
	// Result holds the selected objects in AfterQuery.
	Result    []any
	Error     error
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// Hook observes an operation. An error from a before hook aborts the
// operation. An error from an after hook skips the remaining after hooks and
// is returned in place of the operation's own error.
type Hook func(ctx *ExtensionContext) error

// Extension groups the hooks of one concern.
type Extension struct {
	Name string

	BeforeQuery    Hook
	AfterQuery     Hook
	BeforeMutation Hook
	AfterMutation  Hook
}

// runQuery wraps a select in the query hooks. After hooks run in reverse.
func (c *Client) runQuery(ctx context.Context, entity string, q *query.SelectQuery, exec func() ([]any, error)) ([]any, error) {
	if len(c.extensions) == 0 {
		return exec()
	}
	ext := &ExtensionContext{Context: ctx, Entity: entity, Operation: OpSelect, Query: q, StartTime: time.Now()}
	for _, e := range c.extensions {
		if e.BeforeQuery != nil {
			if err := e.BeforeQuery(ext); err != nil {
				return nil, err
			}
		}
	}

	ext.Result, ext.Error = exec()
	ext.EndTime = time.Now()
	ext.Duration = ext.EndTime.Sub(ext.StartTime)

	for i := len(c.extensions) - 1; i >= 0; i-- {
		if h := c.extensions[i].AfterQuery; h != nil {
			if err := h(ext); err != nil {
				return ext.Result, err
			}
		}
	}
	return ext.Result, ext.Error
}

// runMutation wraps a write of one object in the mutation hooks.
func (c *Client) runMutation(ctx context.Context, entity string, op Operation, obj any, exec func() error) error {
	if len(c.extensions) == 0 {
		return exec()
	}
	ext := &ExtensionContext{Context: ctx, Entity: entity, Operation: op, Object: obj, StartTime: time.Now()}
	for _, e := range c.extensions {
		if e.BeforeMutation != nil {
			if err := e.BeforeMutation(ext); err != nil {
				return err
			}
		}
	}

	ext.Error = exec()
	ext.EndTime = time.Now()
	ext.Duration = ext.EndTime.Sub(ext.StartTime)

	for i := len(c.extensions) - 1; i >= 0; i-- {
		if h := c.extensions[i].AfterMutation; h != nil {
			if err := h(ext); err != nil {
				return err
			}
		}
	}
	return ext.Error
}

// LoggingExtension logs every object operation.
func LoggingExtension(logger *slog.Logger) Extension {
	after := func(ctx *ExtensionContext) error {
		if ctx.Error != nil {
			logger.WarnContext(ctx.Context, "operation failed", "entity", ctx.Entity, "op", ctx.Operation, "error", ctx.Error, "duration", ctx.Duration)
			return nil
		}
		logger.DebugContext(ctx.Context, "operation", "entity", ctx.Entity, "op", ctx.Operation, "duration", ctx.Duration)
		return nil
	}
	return Extension{Name: "logging", AfterQuery: after, AfterMutation: after}
}

// TimingExtension reports the duration of every object operation.
func TimingExtension(onTiming func(entity string, op Operation, duration time.Duration)) Extension {
	after := func(ctx *ExtensionContext) error {
		if onTiming != nil {
			onTiming(ctx.Entity, ctx.Operation, ctx.Duration)
		}
		return nil
	}
	return Extension{Name: "timing", AfterQuery: after, AfterMutation: after}
}
