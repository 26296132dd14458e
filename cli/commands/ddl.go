package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/ui"
	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/ddl"
	"github.com/satishbabariya/objgraph/query/dialect"
)

func newDDLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Generate schema DDL for the mapped tables",
		Long: `Print the CREATE TABLE and foreign key statements for every mapped table,
in dependency order. With --execute the statements run against the
configured database instead; the adapter is then detected when not set.`,
		Args: cobra.NoArgs,
		RunE: runDDL,
	}
	cmd.Flags().Bool("drop", false, "drop tables first")
	cmd.Flags().Bool("no-create", false, "skip CREATE TABLE statements")
	cmd.Flags().Bool("no-fk", false, "skip foreign key constraints")
	cmd.Flags().Bool("execute", false, "run the statements instead of printing them")
	return cmd
}

func ddlOptions(cmd *cobra.Command) ddl.Options {
	drop, _ := cmd.Flags().GetBool("drop")
	noCreate, _ := cmd.Flags().GetBool("no-create")
	noFK, _ := cmd.Flags().GetBool("no-fk")
	return ddl.Options{DropTables: drop, CreateTables: !noCreate, CreateForeignKeys: !noFK}
}

func runDDL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := ddlOptions(cmd)

	if execute, _ := cmd.Flags().GetBool("execute"); execute {
		c, err := openClient(cmd, cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		if len(c.Resolver().DbEntities()) == 0 {
			return errNoMapping
		}
		if err := c.GenerateSchema(cmd.Context(), opts); err != nil {
			return err
		}
		ui.PrintSuccess("schema generated for %d tables on %s", len(c.Resolver().DbEntities()), c.Adapter().Name())
		return nil
	}

	resolver, err := loadResolver(cfg)
	if err != nil {
		return err
	}
	adapter, err := offlineAdapter(cfg)
	if err != nil {
		return err
	}
	script, err := renderDDL(adapter, resolver, opts)
	if err != nil {
		return err
	}
	fmt.Fprint(ui.Out, script)
	return nil
}

// renderDDL returns the statements as a script, one per line.
func renderDDL(adapter dialect.Adapter, resolver *meta.EntityResolver, opts ddl.Options) (string, error) {
	stmts, err := ddl.New(adapter, resolver.DbEntities(), opts).Statements()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s.SQL)
		b.WriteString(";\n")
	}
	return b.String(), nil
}
