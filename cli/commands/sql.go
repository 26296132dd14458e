package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/objgraph/cli/internal/config"
	"github.com/satishbabariya/objgraph/cli/internal/ui"
	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query"
	"github.com/satishbabariya/objgraph/runtime/client"
)

func newSQLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql <entity>",
		Short: "Show the SQL a query translates to",
		Long: `Translate a select query on an entity into SQL for the configured adapter.

  objgraph sql Painting --where "toArtist.artistName like 'M%'" --order "paintingTitle desc"

With --run the query is executed and the objects are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: runSQL,
	}
	cmd.Flags().StringP("where", "w", "", "qualifier expression")
	cmd.Flags().StringArrayP("order", "o", nil, `ordering "path [asc|desc] [ignore case]", repeatable`)
	cmd.Flags().Int("limit", 0, "maximum number of objects")
	cmd.Flags().Int("offset", 0, "objects to skip")
	cmd.Flags().Bool("distinct", false, "select distinct rows")
	cmd.Flags().StringToStringP("param", "p", nil, "named parameter value, name=value")
	cmd.Flags().Bool("run", false, "execute the query and print the results")
	return cmd
}

func buildQuery(cmd *cobra.Command, entity string) (*query.SelectQuery, error) {
	q := query.NewSelect(entity)
	if where, _ := cmd.Flags().GetString("where"); where != "" {
		q.WhereString(where)
	}
	orders, _ := cmd.Flags().GetStringArray("order")
	for _, text := range orders {
		o, err := query.ParseOrdering(text)
		if err != nil {
			return nil, err
		}
		q.OrderBy(o)
	}
	if n, _ := cmd.Flags().GetInt("limit"); n > 0 {
		q.Limit(n)
	}
	if n, _ := cmd.Flags().GetInt("offset"); n > 0 {
		q.Offset(n)
	}
	if distinct, _ := cmd.Flags().GetBool("distinct"); distinct {
		q.Distinct()
	}
	params, _ := cmd.Flags().GetStringToString("param")
	for name, raw := range params {
		q.Param(name, paramValue(raw))
	}
	return q, nil
}

// paramValue reads integers and decimals as numbers and anything else as a
// string.
func paramValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func runSQL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q, err := buildQuery(cmd, args[0])
	if err != nil {
		return err
	}

	if run, _ := cmd.Flags().GetBool("run"); run {
		return runQuery(cmd, cfg, q)
	}

	resolver, err := loadResolver(cfg)
	if err != nil {
		return err
	}
	adapter, err := offlineAdapter(cfg)
	if err != nil {
		return err
	}
	stmt, _, err := q.Translate(resolver, adapter)
	if err != nil {
		return err
	}

	ui.PrintCodeBlock(stmt.SQL, adapter.Name())
	info := ui.GetColorPrinters()["info"]
	for i, a := range stmt.Args {
		ui.ColorPrint(info, "  %s = %s\n", adapter.Placeholder(i+1), formatValue(a))
	}
	if len(stmt.DistinctKey) > 0 {
		ui.PrintInfo("rows are de-duplicated in memory on %s", strings.Join(stmt.DistinctKey, ", "))
	}
	if stmt.Offset > 0 || stmt.Limit > 0 {
		ui.PrintInfo("offset %d and limit %d are applied in memory", stmt.Offset, stmt.Limit)
	}
	return nil
}

func runQuery(cmd *cobra.Command, cfg *config.Config, q *query.SelectQuery) error {
	c, err := openClient(cmd, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	entity, err := c.Resolver().LookupObjEntity(q.Entity())
	if err != nil {
		return err
	}
	objs, err := c.Select(cmd.Context(), q.Cache(query.NoCache))
	if err != nil {
		return err
	}

	attrs := entity.AllAttributes()
	headers := []string{"ObjectID"}
	for _, a := range attrs {
		headers = append(headers, a.Name)
	}
	rows := make([][]string, 0, len(objs))
	for _, o := range objs {
		p, ok := o.(meta.Persistent)
		if !ok {
			return fmt.Errorf("%w: %T", client.ErrResultType, o)
		}
		row := []string{p.ObjectID().String()}
		for _, a := range attrs {
			v, err := entity.Accessor(a.Name).Get(o)
			if err != nil {
				return err
			}
			row = append(row, formatValue(v))
		}
		rows = append(rows, row)
	}
	if err := ui.PrintTable(headers, rows); err != nil {
		return err
	}
	ui.PrintInfo("%d %s object(s)", len(objs), entity.Name)
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(v)
	case []byte:
		return strconv.Quote(string(v))
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
