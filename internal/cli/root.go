package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigil-project/vigil/pkg/color"
)

var (
	jsonOutput bool
	noColor    bool

	rootCmd = &cobra.Command{
		Use:   "vigil [directory]",
		Short: "vigil - file integrity monitor with change attribution",
		Long: `vigil watches a directory tree for file changes, verifies them
against a SHA-256 baseline, and attributes each change to a user and
process by correlating with the kernel audit trail. Run without a
subcommand it starts monitoring the given directory (default: current
directory) until interrupted.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runMonitor,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cobra.OnInitialize(func() {
		color.Init(noColor)
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.Errorf("vigil: %v", err))
		os.Exit(1)
	}
}

// outputJSON prints v as indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
