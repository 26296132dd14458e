package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/ui"
)

func newPingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity through the connection pool",
		Args:  cobra.NoArgs,
		RunE:  runPing,
	}
	cmd.Flags().Int("count", 1, "number of validation round trips")
	return cmd
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := openClient(cmd, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		count = 1
	}
	start := time.Now()
	for i := 0; i < count; i++ {
		if err := c.Ping(cmd.Context()); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	adapter := c.Adapter()
	server := "unknown"
	if v := adapter.Version(); v != nil {
		server = v.String()
	}
	ui.PrintSuccess("%s (server %s) answered %d ping(s) in %s", adapter.Name(), server, count, elapsed.Round(time.Microsecond))

	s := c.Pool().Stats()
	return ui.PrintTable(
		[]string{"Open", "Idle", "Checked out", "Pending", "Waits", "Timeouts", "Created", "Evicted", "Recovered"},
		[][]string{{
			strconv.Itoa(s.Open),
			strconv.Itoa(s.Idle),
			strconv.Itoa(s.CheckedOut),
			strconv.Itoa(s.Pending),
			strconv.FormatInt(s.Waits, 10),
			strconv.FormatInt(s.Timeouts, 10),
			strconv.FormatInt(s.Created, 10),
			strconv.FormatInt(s.Evicted, 10),
			strconv.FormatInt(s.Recovered, 10),
		}},
	)
}
