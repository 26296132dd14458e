package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/ui"
	"github.com/satishbabariya/objgraph/cli/internal/version"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			constraint, _ := cmd.Flags().GetString("check")
			if constraint == "" {
				fmt.Fprintln(ui.Out, info.FullString())
				return nil
			}
			ok, err := info.Satisfies(constraint)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("version %s does not satisfy %s", info.Version, constraint)
			}
			ui.PrintSuccess("version %s satisfies %s", info.Version, constraint)
			return nil
		},
	}
	cmd.Flags().String("check", "", `exit non-zero unless the version satisfies a constraint such as ">= 0.1"`)
	return cmd
}
