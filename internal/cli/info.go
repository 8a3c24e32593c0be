package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/journal"
	"github.com/vigil-project/vigil/pkg/color"
	"github.com/vigil-project/vigil/pkg/config"
)

var infoCmd = &cobra.Command{
	Use:   "info [directory]",
	Short: "Show monitor state for a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireState(args)
		if err != nil {
			return err
		}

		cfg, err := config.Load(st.Dir())
		if err != nil {
			return err
		}

		index, err := baseline.Load(st.BaselinePath())
		if err != nil {
			return err
		}

		journalRecords, journalErr := journal.NewFileAppender(st.JournalPath()).Verify()

		info := map[string]any{
			"root":             st.Root,
			"monitor_id":       st.MonitorID,
			"format_version":   st.FormatVersion,
			"baseline_entries": index.Len(),
			"journal_records":  journalRecords,
			"journal_intact":   journalErr == nil,
			"extensions":       cfg.Monitor.Extensions,
			"throttle_window":  cfg.ThrottleWindow().String(),
			"audit_window":     cfg.AuditWindow().String(),
		}

		if jsonOutput {
			return outputJSON(info)
		}

		fmt.Printf("Monitor: %s\n", color.Path(st.Root))
		fmt.Printf("  Monitor ID: %s\n", st.MonitorID)
		fmt.Printf("  Format version: %d\n", st.FormatVersion)
		fmt.Printf("  Baseline entries: %d\n", index.Len())
		if journalErr != nil {
			fmt.Printf("  Journal: %s\n", color.Error(journalErr.Error()))
		} else {
			fmt.Printf("  Journal records: %d\n", journalRecords)
		}
		fmt.Printf("  Extensions: %v\n", cfg.Monitor.Extensions)
		fmt.Printf("  Throttle window: %s\n", cfg.ThrottleWindow())
		fmt.Printf("  Audit window: %s\n", cfg.AuditWindow())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
