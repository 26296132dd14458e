// Package config loads objgraph settings from config files, .env files,
// the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/satishbabariya/objgraph/runtime/client"
)

// AppFs is the filesystem config, .env and mapping files are read from.
var AppFs = afero.NewOsFs()

const (
	// FileName is the config file name without extension.
	FileName  = ".objgraph"
	EnvPrefix = "OBJGRAPH"
)

// Config is the resolved client configuration.
type Config struct {
	client.Config `mapstructure:",squash"`

	// Requires pins the CLI versions the file was written for, e.g. ">= 0.1".
	Requires string `mapstructure:"requires"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// GlobalDir returns the per-user config directory.
func GlobalDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "objgraph"), nil
}

// Load resolves the configuration. Settings are taken, from highest to
// lowest priority, from changed flags, OBJGRAPH_* variables, the config
// file and the client defaults. DATABASE_URL is used when no dsn is set.
// .env and then .env.local are applied to the environment first; .env never
// replaces variables that are already set.
//
// file names the config file explicitly. Otherwise .objgraph.yaml is looked
// up in the working directory, the home directory and GlobalDir. Relative
// mapping paths are resolved against the config file's directory.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnvFile(".env.local", true); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	if file != "" {
		v.SetConfigFile(file)
		if filepath.Ext(file) == "" {
			v.SetConfigType("yaml")
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		if dir, err := GlobalDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("dsn", EnvPrefix+"_DSN", "DATABASE_URL"); err != nil {
		return nil, err
	}
	setDefaults(v, client.DefaultConfig())
	v.SetDefault("requires", "")

	if flags != nil {
		for _, name := range []string{"adapter", "driver", "dsn", "mapping", "debug"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{Source: v.ConfigFileUsed()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Source != "" {
		base := filepath.Dir(cfg.Source)
		for i, p := range cfg.Mapping {
			if !filepath.IsAbs(p) {
				cfg.Mapping[i] = filepath.Join(base, p)
			}
		}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d client.Config) {
	v.SetDefault("adapter", d.Adapter)
	v.SetDefault("driver", d.Driver)
	v.SetDefault("dsn", d.DSN)
	v.SetDefault("mapping", d.Mapping)
	v.SetDefault("pool.min", d.Pool.MinConnections)
	v.SetDefault("pool.max", d.Pool.MaxConnections)
	v.SetDefault("pool.max_queue_wait", d.Pool.MaxQueueWait)
	v.SetDefault("pool.validation_query", d.Pool.ValidationQuery)
	v.SetDefault("pool.shrink_floor", d.Pool.ShrinkFloor)
	v.SetDefault("manage_interval", d.ManageInterval)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("debug", d.Debug)
}

// loadEnvFile applies a dotenv file to the process environment. Missing
// files are ignored.
func loadEnvFile(name string, override bool) error {
	f, err := AppFs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// Save writes cfg as a config file at path, creating its directory.
func Save(path string, cfg client.Config) error {
	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.Set("adapter", cfg.Adapter)
	if cfg.Driver != "" {
		v.Set("driver", cfg.Driver)
	}
	v.Set("dsn", cfg.DSN)
	v.Set("mapping", cfg.Mapping)
	v.Set("pool.min", cfg.Pool.MinConnections)
	v.Set("pool.max", cfg.Pool.MaxConnections)
	v.Set("pool.max_queue_wait", cfg.Pool.MaxQueueWait.String())
	v.Set("manage_interval", cfg.ManageInterval.String())
	v.Set("cache_size", cfg.CacheSize)
	v.Set("cache_ttl", cfg.CacheTTL.String())
	return v.WriteConfigAs(path)
}
