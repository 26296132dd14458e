package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/config"
	"github.com/satishbabariya/objgraph/cli/internal/ui"
	"github.com/satishbabariya/objgraph/cli/internal/watch"
	"github.com/satishbabariya/objgraph/query/ddl"
	"github.com/satishbabariya/objgraph/query/dialect"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Revalidate mapping files as they change",
		Long: `Watch the configured mapping files. Every save reloads and validates the
mapping; when an adapter is configured the DDL changes are printed as a diff.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before reloading")
	return cmd
}

// mappingReloader validates the mapping on each change and diffs its DDL.
type mappingReloader struct {
	cfg     *config.Config
	adapter dialect.Adapter
	lastDDL string
}

func (r *mappingReloader) reload() error {
	resolver, err := loadResolver(r.cfg)
	if err != nil {
		ui.PrintError("%v", err)
		return nil
	}
	ui.PrintSuccess("%s: %d entities over %d tables", time.Now().Format(time.TimeOnly),
		len(resolver.ObjEntities()), len(resolver.DbEntities()))

	if r.adapter == nil {
		return nil
	}
	script, err := renderDDL(r.adapter, resolver, ddl.DefaultOptions())
	if err != nil {
		ui.PrintError("%v", err)
		return nil
	}
	if r.lastDDL != "" && script != r.lastDDL {
		ui.PrintSection("DDL changes")
		ui.PrintDiff(r.lastDDL, script)
	}
	r.lastDDL = script
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Mapping) == 0 {
		return errNoMapping
	}

	r := &mappingReloader{cfg: cfg}
	if cfg.Adapter != "" {
		if r.adapter, err = dialect.ByName(cfg.Adapter); err != nil {
			return err
		}
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	w, err := watch.NewWatcher(cfg.Mapping, debounce, r.reload)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ui.PrintInfo("watching %d mapping file(s), press Ctrl+C to stop", len(cfg.Mapping))
	return w.Run(ctx)
}
