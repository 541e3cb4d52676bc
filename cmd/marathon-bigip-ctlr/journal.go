package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/journal"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/reconciler"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the reconciliation journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent reconciliation passes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JournalPath == "" {
			return fmt.Errorf("journal-path is not configured")
		}

		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := store.List(limit)
		if err != nil {
			return err
		}

		for _, record := range records {
			line := fmt.Sprintf("%s  %-8s %-10s %s",
				record.Time.Format(time.RFC3339), record.Result, record.Source,
				changeSummary(record.Stats))
			if record.Error != "" {
				line += "  error: " + record.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	journalCmd.AddCommand(journalListCmd)

	journalListCmd.Flags().Int("limit", 20, "Most recent passes to show")
}

func changeSummary(stats reconciler.Stats) string {
	changes := stats.IApps.Total() + stats.Monitors.Total() + stats.Pools.Total() +
		stats.Virtuals.Total() + stats.Members.Total()
	return fmt.Sprintf("%d changes, %d nodes removed", changes, stats.NodesDeleted)
}
