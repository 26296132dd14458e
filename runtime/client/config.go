package client

import (
	"errors"
	"time"

	"github.com/satishbabariya/objgraph/pool"
)

// Config describes how a Client connects and what it loads.
type Config struct {
	// Adapter names the dialect (postgres, mysql, mariadb, sqlite, sqlserver).
	// Empty means detect it from the server, which requires Driver.
	Adapter string `mapstructure:"adapter" yaml:"adapter"`
	// Driver overrides the adapter's database/sql driver name.
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	// Mapping lists the mapping files loaded by LoadResolver.
	Mapping []string `mapstructure:"mapping" yaml:"mapping"`

	Pool           pool.Parameters `mapstructure:"pool" yaml:"pool"`
	ManageInterval time.Duration   `mapstructure:"manage_interval" yaml:"manageInterval"`

	// CacheSize is the number of cached query results. Zero disables the cache.
	CacheSize int           `mapstructure:"cache_size" yaml:"cacheSize"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cacheTTL"`

	// Debug logs every statement.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// DefaultConfig returns the defaults applied before any config file.
func DefaultConfig() Config {
	return Config{
		Pool: pool.Parameters{
			MinConnections: 1,
			MaxConnections: 10,
			MaxQueueWait:   pool.DefaultMaxQueueWait,
		},
		ManageInterval: pool.DefaultManageInterval,
		CacheSize:      1000,
		CacheTTL:       5 * time.Minute,
	}
}

// Validate checks the settings needed to open a client.
func (c Config) Validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	}
	if c.Adapter == "" && c.Driver == "" {
		errs = append(errs, errors.New("adapter or driver is required"))
	}
	if err := c.Pool.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
