package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/retail-analytics/internal/calendar"
	"github.com/sells-group/retail-analytics/internal/store"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the store schema snapshot and computed year offset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		schema, err := st.Snapshot(ctx)
		if err != nil {
			return err
		}
		minYear, err := st.MinOrderYear(ctx)
		if err != nil {
			return err
		}
		printSchema(cmd, schema, minYear, cfg.Calendar.BaseYear)
		return nil
	},
}

func printSchema(cmd *cobra.Command, schema store.Schema, minYear, baseYear int) {
	for _, table := range schema.Tables() {
		cmd.Printf("%s\n", table)
		for _, col := range schema[table] {
			cmd.Printf("  %-24s %s\n", col.Name, col.Type)
		}
	}
	offset := calendar.ComputeOffset(minYear, baseYear)
	cmd.Println(fmt.Sprintf("earliest order year: %d, assumed base year: %d, offset: %+d years", minYear, baseYear, offset))
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
