package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/ui"
	"github.com/satishbabariya/objgraph/meta"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate mapping files",
		Long: `Load every configured mapping file, resolve cross references and
print a summary of the object entities.`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	resolver, err := loadResolver(cfg)
	if err != nil {
		return err
	}

	ui.PrintHeader("objgraph", fmt.Sprintf("%d mapping file(s)", len(cfg.Mapping)))
	if err := printEntities(resolver); err != nil {
		return err
	}
	ui.PrintSuccess("mapping is valid: %d entities over %d tables",
		len(resolver.ObjEntities()), len(resolver.DbEntities()))
	return nil
}

func printEntities(resolver *meta.EntityResolver) error {
	var rows [][]string
	for _, e := range resolver.ObjEntities() {
		super := ""
		if s := e.SuperEntity(); s != nil {
			super = s.Name
		}
		table := ""
		if t := e.DbEntity(); t != nil {
			table = t.QualifiedName()
		}
		rows = append(rows, []string{
			e.Name,
			table,
			super,
			strconv.Itoa(len(e.AllAttributes())),
			strconv.Itoa(len(e.AllRelationships())),
		})
	}
	return ui.PrintTable([]string{"Entity", "Table", "Super", "Attributes", "Relationships"}, rows)
}
