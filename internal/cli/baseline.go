package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/classify"
	"github.com/vigil-project/vigil/internal/state"
	"github.com/vigil-project/vigil/pkg/color"
	"github.com/vigil-project/vigil/pkg/config"
	"github.com/vigil-project/vigil/pkg/progress"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage the content-hash baseline",
}

var baselineBuildCmd = &cobra.Command{
	Use:   "build [directory]",
	Short: "Scan the tree and (re)build the baseline",
	Long: `Scan the directory tree, hash every monitored file, and write a
fresh baseline. An existing baseline is replaced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(args)
		if err != nil {
			return err
		}
		st, err := state.Init(root)
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
		classifier := classify.New(root, state.DirName, cfg.Monitor.Extensions, index)

		term := progress.NewTerminal("scan", 0, !jsonOutput && color.Enabled())
		n, err := baseline.Build(root, index, classifier.Track, term.Callback())
		if err != nil {
			return err
		}
		term.Done("")

		if jsonOutput {
			return outputJSON(map[string]any{"root": root, "entries": n})
		}
		fmt.Printf("Baseline written: %d entries in %s\n", n, color.Path(st.BaselinePath()))
		return nil
	},
}

var baselineCompactCmd = &cobra.Command{
	Use:   "compact [directory]",
	Short: "Rewrite the baseline without superseded lines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireState(args)
		if err != nil {
			return err
		}

		before, err := baseline.CountDuplicates(st.BaselinePath())
		if err != nil {
			return err
		}
		index, err := baseline.Load(st.BaselinePath())
		if err != nil {
			return err
		}
		if err := index.Compact(); err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]any{"entries": index.Len(), "removed": before})
		}
		fmt.Printf("Compacted: %d entries, %d superseded lines removed\n", index.Len(), before)
		return nil
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list [directory]",
	Short: "List baseline entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireState(args)
		if err != nil {
			return err
		}
		index, err := baseline.Load(st.BaselinePath())
		if err != nil {
			return err
		}

		entries := index.Entries()
		paths := make([]string, 0, len(entries))
		for rel := range entries {
			paths = append(paths, rel)
		}
		sort.Strings(paths)

		if jsonOutput {
			return outputJSON(entries)
		}
		for _, rel := range paths {
			fmt.Printf("%s  %s\n", color.Hash(string(entries[rel])), color.Path(rel))
		}
		return nil
	},
}

func init() {
	baselineCmd.AddCommand(baselineBuildCmd)
	baselineCmd.AddCommand(baselineCompactCmd)
	baselineCmd.AddCommand(baselineListCmd)
	rootCmd.AddCommand(baselineCmd)
}
