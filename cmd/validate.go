package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/triage/internal/config"
)

// validateCmd loads and validates the rules configuration, then prints the
// effective snapshot with all defaults applied.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the rules configuration file",
	Long: `Validate the rules configuration file and print the effective settings.

The printed snapshot includes every default, so it shows exactly what the
bot would run with. A configuration that fails validation exits non-zero
with the first problem found.

Example:
  triage validate --config triage.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}

		store, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(store.Snapshot())
		if err != nil {
			return fmt.Errorf("failed to render configuration: %v", err)
		}

		fmt.Fprintf(os.Stdout, "%s", out)
		fmt.Fprintln(os.Stderr, "configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
