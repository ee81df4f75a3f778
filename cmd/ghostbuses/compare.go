package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ghostbuses "github.com/chihacknight/chn-ghost-buses"
	"github.com/chihacknight/chn-ghost-buses/agg"
	"github.com/chihacknight/chn-ghost-buses/schedule"
)

var compareCmd = &cobra.Command{
	Use:   "compare <start-date> <end-date>",
	Short: "Reconciles scheduled vs observed trips over a date range",
	Long: "Runs the full reconciliation over [start-date, end-date] " +
		"(YYYY-MM-DD) and writes the long table and the route/day-type summary",
	Args: cobra.ExactArgs(2),
	RunE: compare,
}

var (
	frequency   string
	ignoreCache bool
	longOut     string
	summaryOut  string
)

func init() {
	compareCmd.Flags().StringVarP(&frequency, "freq", "f", "D", "Aggregation frequency (D, W, M or Y)")
	compareCmd.Flags().BoolVarP(&ignoreCache, "ignore-cache", "", false, "Recompute even when cached results exist")
	compareCmd.Flags().StringVarP(&longOut, "long-output", "", "combined_long.csv", "Path for the combined long table")
	compareCmd.Flags().StringVarP(&summaryOut, "summary-output", "", "route_daytype_summary.csv", "Path for the summary table")
}

func compare(cmd *cobra.Command, args []string) error {
	start, err := schedule.ParseDate(args[0])
	if err != nil {
		return fmt.Errorf("bad start date '%s': %w", args[0], err)
	}
	end, err := schedule.ParseDate(args[1])
	if err != nil {
		return fmt.Errorf("bad end date '%s': %w", args[1], err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s before start date %s", args[1], args[0])
	}

	freq, err := agg.ParseFrequency(frequency)
	if err != nil {
		return err
	}

	pipeline, err := buildPipeline(ignoreCache)
	if err != nil {
		return err
	}

	long, summary, err := pipeline.Compare(context.Background(), start, end, freq)
	if err != nil {
		return err
	}

	longFile, err := os.Create(longOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", longOut, err)
	}
	defer longFile.Close()
	if err := ghostbuses.WriteLongCSV(longFile, long); err != nil {
		return err
	}

	summaryFile, err := os.Create(summaryOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", summaryOut, err)
	}
	defer summaryFile.Close()
	if err := ghostbuses.WriteSummaryCSV(summaryFile, summary); err != nil {
		return err
	}

	fmt.Printf("wrote %d long rows to %s, %d summary rows to %s\n",
		len(long), longOut, len(summary), summaryOut)

	return nil
}
