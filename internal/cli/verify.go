package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/integrity"
	"github.com/vigil-project/vigil/internal/journal"
	"github.com/vigil-project/vigil/pkg/color"
)

// drift is one file whose on-disk content no longer matches the baseline.
type drift struct {
	Path   string `json:"path"`
	Status string `json:"status"` // modified, missing
}

var verifyCmd = &cobra.Command{
	Use:   "verify [directory]",
	Short: "Re-hash the tree against the baseline and verify the journal",
	Long: `Re-hash every baseline entry and report files whose content drifted
while the monitor was not running. Also verifies the journal hash chain.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireState(args)
		if err != nil {
			return err
		}

		index, err := baseline.Load(st.BaselinePath())
		if err != nil {
			return err
		}

		var drifts []drift
		entries := index.Entries()
		paths := make([]string, 0, len(entries))
		for rel := range entries {
			paths = append(paths, rel)
		}
		sort.Strings(paths)

		for _, rel := range paths {
			hash, err := integrity.HashFile(filepath.Join(st.Root, rel))
			switch {
			case err != nil:
				drifts = append(drifts, drift{Path: rel, Status: "missing"})
			case hash != entries[rel]:
				drifts = append(drifts, drift{Path: rel, Status: "modified"})
			}
		}

		journalRecords, journalErr := journal.NewFileAppender(st.JournalPath()).Verify()

		if jsonOutput {
			out := map[string]any{
				"checked":         len(paths),
				"drifted":         drifts,
				"journal_records": journalRecords,
				"journal_intact":  journalErr == nil,
			}
			if err := outputJSON(out); err != nil {
				return err
			}
		} else {
			for _, d := range drifts {
				fmt.Printf("%s %s\n", color.Warning(d.Status), color.Path(d.Path))
			}
			if journalErr != nil {
				fmt.Println(color.Errorf("journal: %v", journalErr))
			}
			if len(drifts) == 0 && journalErr == nil {
				fmt.Println(color.Success(fmt.Sprintf("OK: %d files match the baseline, %d journal records intact", len(paths), journalRecords)))
			}
		}

		if len(drifts) > 0 || journalErr != nil {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
