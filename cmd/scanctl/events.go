package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/repository/postgres"
)

func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Summarize stored scan events",
		Long: `Events counts the operational events the worker stored in Postgres,
grouped by type and severity.

Examples:
  scanctl events --since 24h
  scanctl events --since 168h --json`,
		Args: cobra.NoArgs,
		RunE: runEventsCmd,
	}

	cmd.Flags().DurationP("since", "s", 24*time.Hour, "Look-back window")
	cmd.Flags().BoolP("json", "j", false, "Output JSON instead of a table")

	return cmd
}

type eventCounter interface {
	CountSince(ctx context.Context, since time.Time) ([]postgres.EventCount, error)
}

func runEventsCmd(cmd *cobra.Command, _ []string) error {
	window, _ := cmd.Flags().GetDuration("since")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg := config.Load()
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return printEventCounts(ctx, cmd.OutOrStdout(), postgres.NewEventRepository(db), time.Now().Add(-window), asJSON)
}

type eventCountRow struct {
	Type     string `json:"event_type"`
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

func printEventCounts(ctx context.Context, out io.Writer, repo eventCounter, since time.Time, asJSON bool) error {
	counts, err := repo.CountSince(ctx, since)
	if err != nil {
		return err
	}

	rows := make([]eventCountRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, eventCountRow{Type: c.Type, Severity: string(c.Severity), Count: c.Count})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tSEVERITY\tCOUNT")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", row.Type, row.Severity, row.Count)
	}
	return tw.Flush()
}
