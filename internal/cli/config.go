package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vigil-project/vigil/internal/state"
	"github.com/vigil-project/vigil/pkg/color"
	"github.com/vigil-project/vigil/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize monitor configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show [directory]",
	Short: "Print the effective configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(args)
		if err != nil {
			return err
		}
		cfg, err := config.Load(filepath.Join(root, state.DirName))
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cfg)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default config.yaml into the state directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(args)
		if err != nil {
			return err
		}
		st, err := state.Init(root)
		if err != nil {
			return err
		}
		if err := config.Save(st.Dir(), config.Default()); err != nil {
			return err
		}
		path := filepath.Join(st.Dir(), state.ConfigFile)
		if jsonOutput {
			return outputJSON(map[string]string{"path": path})
		}
		fmt.Printf("Wrote default configuration to %s\n", color.Path(path))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
