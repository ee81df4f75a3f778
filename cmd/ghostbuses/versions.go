package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Prints the schedule version index",
	Args:  cobra.NoArgs,
	RunE:  versions,
}

func versions(cmd *cobra.Command, args []string) error {
	pipeline, err := buildPipeline(false)
	if err != nil {
		return err
	}

	feeds, err := pipeline.Versions(context.Background())
	if err != nil {
		return err
	}

	for _, fi := range feeds {
		fmt.Printf(
			"%s  %s .. %s  (%s)\n",
			fi.Version,
			fi.StartDate.Format("2006-01-02"),
			fi.EndDate.Format("2006-01-02"),
			fi.Source,
		)
	}

	return nil
}
