package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/config"
	"github.com/satishbabariya/objgraph/cli/internal/ui"
	"github.com/satishbabariya/objgraph/cli/internal/version"
	"github.com/satishbabariya/objgraph/internal/debug"
	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/dialect"
	"github.com/satishbabariya/objgraph/runtime/client"
)

var errNoMapping = errors.New("no mapping files configured, pass --mapping or set mapping in .objgraph.yaml")

// NewRootCommand builds the objgraph command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "objgraph",
		Short: "Object graph persistence toolkit",
		Long: `objgraph works with YAML object-relational mappings.

It validates mappings, generates schema DDL, shows the SQL a query
translates to and checks database connectivity through the pool.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .objgraph.yaml in the working or home directory)")
	flags.String("adapter", "", "database adapter: postgres, mysql, mariadb, sqlite, sqlserver")
	flags.String("driver", "", "database/sql driver name, overrides the adapter's")
	flags.String("dsn", "", "data source name")
	flags.StringSliceP("mapping", "m", nil, "mapping file, repeatable")
	flags.Bool("debug", false, "log every statement and pool event")
	flags.String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newValidateCommand(),
		newDDLCommand(),
		newSQLCommand(),
		newPingCommand(),
		newWatchCommand(),
		newInitCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		ui.PrintError("%v", err)
		return 1
	}
	return 0
}

// loadConfig resolves the configuration for cmd and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file, cmd.Flags())
	if err != nil {
		return nil, err
	}

	format, _ := cmd.Flags().GetString("log-format")
	level := "warn"
	if cfg.Debug {
		level = "debug"
	}
	debug.InitWithOptions(debug.Options{Level: level, Format: format, Output: ui.Err})

	if cfg.Requires != "" {
		ok, err := version.Get().Satisfies(cfg.Requires)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s requires objgraph %s, this is %s", cfg.Source, cfg.Requires, version.Version)
		}
	}
	return cfg, nil
}

func loadResolver(cfg *config.Config) (*meta.EntityResolver, error) {
	if len(cfg.Mapping) == 0 {
		return nil, errNoMapping
	}
	return meta.LoadResolver(config.AppFs, cfg.Mapping...)
}

// offlineAdapter returns the configured adapter for commands that render SQL
// without connecting.
func offlineAdapter(cfg *config.Config) (dialect.Adapter, error) {
	if cfg.Adapter == "" {
		return nil, errors.New("an adapter is required, pass --adapter")
	}
	return dialect.ByName(cfg.Adapter)
}

func openClient(cmd *cobra.Command, cfg *config.Config) (*client.Client, error) {
	resolver, err := loadResolver(cfg)
	if errors.Is(err, errNoMapping) {
		resolver, err = meta.NewEntityResolver()
	}
	if err != nil {
		return nil, err
	}
	return client.Open(cmd.Context(), cfg.Config, resolver)
}
