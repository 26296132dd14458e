package pool

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPoolClosed is returned by Get once the pool has been closed.
	ErrPoolClosed = errors.New("connection pool is closed")
	// ErrPoolExhausted matches every *ExhaustedError.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrRecoveryRefused is returned when a connection fails again too soon
	// after its last recovery.
	ErrRecoveryRefused = errors.New("connection recovery refused")
)

// ConfigError reports invalid pool parameters or a validation query that
// fails on a freshly opened connection.
type ConfigError struct {
	Param string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pool configuration: %s: %v", e.Param, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExhaustedError is returned when Get waited the full queue time without a
// connection becoming available.
type ExhaustedError struct {
	Waited         time.Duration
	MaxConnections int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("connection pool exhausted: no connection available after %s (max connections %d)",
		e.Waited.Round(time.Millisecond), e.MaxConnections)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrPoolExhausted }
