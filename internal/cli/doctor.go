package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigil-project/vigil/internal/doctor"
	"github.com/vigil-project/vigil/pkg/color"
)

var doctorStrict bool

var doctorCmd = &cobra.Command{
	Use:   "doctor [directory]",
	Short: "Check host and state directory health",
	Long: `Check whether this host can run a full-fidelity monitor.

Verifies privileges, audit tooling, notification tooling, and the
health of the target's state directory. Use --strict to also verify
the journal hash chain end to end.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(args)
		if err != nil {
			return err
		}

		result, err := doctor.NewDoctor(root).Check(doctorStrict)
		if err != nil {
			return err
		}

		if jsonOutput {
			if err := outputJSON(result); err != nil {
				return err
			}
		} else if len(result.Findings) == 0 {
			fmt.Println(color.Success("Host is ready for monitoring."))
		} else {
			fmt.Printf("Findings (%d):\n", len(result.Findings))
			for _, f := range result.Findings {
				fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Category, f.Description)
			}
		}

		if !result.Healthy {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "include journal chain verification")
	rootCmd.AddCommand(doctorCmd)
}
