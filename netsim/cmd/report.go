package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/tracing"
)

type reportOptions struct {
	db      string
	table   string
	where   string
	orderBy string
	limit   int
}

func newReportCmd() *cobra.Command {
	o := &reportOptions{}

	c := &cobra.Command{
		Use:   "report",
		Short: "Summarize a recorded run.",
		Long: "`report --db FILE` reads a run recorded with `run --record` " +
			"and prints its rounds, executed events and dropped packets. " +
			"With --table it prints the rows of one table instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}

	f := c.Flags()
	f.StringVar(&o.db, "db", "", "Recording to read, with or without the .sqlite3 suffix")
	f.StringVar(&o.table, "table", "", "Print the rows of this table")
	f.StringVar(&o.where, "where", "", "Condition the printed rows must match")
	f.StringVar(&o.orderBy, "order-by", "", "Columns to sort the printed rows by")
	f.IntVar(&o.limit, "limit", 20, "Maximum number of rows to print, 0 for all")
	_ = c.MarkFlagRequired("db")

	return c
}

func (o *reportOptions) run(cmd *cobra.Command) error {
	reader, err := datarecording.OpenRun(o.db)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(tracing.TaskTable, tracing.TaskEntry{})

	if o.table != "" {
		return o.printRows(cmd, reader)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	tables, err := reader.Tables(ctx)
	if err != nil {
		return err
	}

	summary, err := datarecording.Summarize(ctx, reader)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "tables: %s\n", strings.Join(tables, ", "))

	for _, e := range summary.Exec {
		fmt.Fprintf(out, "%s: %s\n", strings.ToLower(e.Property), e.Value)
	}

	fmt.Fprintf(out, "rounds: %d\n", summary.Rounds)
	fmt.Fprintf(out, "events: %d\n", summary.Events)
	printCounts(out, summary.EventsByKind)
	fmt.Fprintf(out, "dropped packets: %d\n", total(summary.DropsByReason))
	printCounts(out, summary.DropsByReason)

	return nil
}

func (o *reportOptions) printRows(cmd *cobra.Command, reader datarecording.RunReader) error {
	ctx := cmd.Context()
	filter := datarecording.Filter{
		Where:   o.where,
		OrderBy: o.orderBy,
		Limit:   o.limit,
	}

	rows, err := reader.Query(ctx, o.table, filter)
	if err != nil {
		return err
	}

	n, err := reader.Count(ctx, o.table, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, row := range rows {
		fmt.Fprintf(out, "%+v\n", row)
	}

	fmt.Fprintf(out, "%d of %d rows\n", len(rows), n)

	return nil
}

func printCounts(out io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %d\n", k, counts[k])
	}
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}

	return n
}
