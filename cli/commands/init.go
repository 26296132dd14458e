package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/config"
	"github.com/satishbabariya/objgraph/cli/internal/ui"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a .objgraph.yaml config file",
		Long: `Write a config file holding the current settings: the defaults merged with
--adapter, --dsn, --mapping and any OBJGRAPH_* variables.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
	cmd.Flags().Bool("global", false, "write to the per-user config directory")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if global, _ := cmd.Flags().GetBool("global"); global {
		if dir, err = config.GlobalDir(); err != nil {
			return err
		}
	}
	path := filepath.Join(dir, config.FileName+".yaml")

	force, _ := cmd.Flags().GetBool("force")
	exists, err := afero.Exists(config.AppFs, path)
	if err != nil {
		return err
	}
	if exists && !force {
		return fmt.Errorf("%s already exists, pass --force to overwrite", path)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	out := cfg.Config
	out.Mapping = make([]string, len(cfg.Mapping))
	for i, m := range cfg.Mapping {
		out.Mapping[i] = m
		if abs, err := filepath.Abs(m); err == nil {
			if rel, err := filepath.Rel(absDir, abs); err == nil {
				out.Mapping[i] = rel
			}
		}
	}

	if err := config.Save(path, out); err != nil {
		return err
	}
	ui.PrintSuccess("wrote %s", path)
	if out.DSN == "" {
		ui.PrintWarning("no dsn set, add one or export OBJGRAPH_DSN")
	}
	return nil
}
