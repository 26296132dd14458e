package pool

import (
	"errors"
	"time"
)

// DefaultMaxQueueWait is used when Parameters.MaxQueueWait is zero.
const DefaultMaxQueueWait = 20 * time.Second

// Parameters configure a Pool. The zero MaxQueueWait means DefaultMaxQueueWait;
// use a negative value to fail immediately when the pool is exhausted.
type Parameters struct {
	MinConnections  int           `mapstructure:"min" yaml:"min"`
	MaxConnections  int           `mapstructure:"max" yaml:"max"`
	MaxQueueWait    time.Duration `mapstructure:"max_queue_wait" yaml:"maxQueueWait"`
	ValidationQuery string        `mapstructure:"validation_query" yaml:"validationQuery"`
	// ShrinkFloor is the size idle shrinking stops at. Zero derives
	// min + 1 + (max-min)/2. That equals max - 2 for min 0, max 5 but not in
	// general: min 2, max 5 gives 4. Negative shrinks down to min. The result
	// is clamped to [min, max].
	ShrinkFloor int `mapstructure:"shrink_floor" yaml:"shrinkFloor"`
}

// Validate checks the invariants 0 <= min <= max and max > 0.
func (p Parameters) Validate() error {
	switch {
	case p.MaxConnections <= 0:
		return &ConfigError{Param: "MaxConnections", Err: errors.New("must be positive")}
	case p.MinConnections < 0:
		return &ConfigError{Param: "MinConnections", Err: errors.New("must not be negative")}
	case p.MinConnections > p.MaxConnections:
		return &ConfigError{Param: "MinConnections", Err: errors.New("must not exceed MaxConnections")}
	}
	return nil
}

func (p Parameters) queueWait() time.Duration {
	switch {
	case p.MaxQueueWait == 0:
		return DefaultMaxQueueWait
	case p.MaxQueueWait < 0:
		return 0
	}
	return p.MaxQueueWait
}

func (p Parameters) floor() int {
	var f int
	switch {
	case p.ShrinkFloor > 0:
		f = p.ShrinkFloor
	case p.ShrinkFloor < 0:
		f = p.MinConnections
	default:
		f = p.MinConnections + 1 + (p.MaxConnections-p.MinConnections)/2
	}
	return max(p.MinConnections, min(f, p.MaxConnections))
}
