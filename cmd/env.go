package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the effective configuration after defaults, file, and env overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := renderEnv(cfg)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

// renderEnv renders the effective configuration as YAML with credentials
// redacted, headed by the detect config hash recorded on runs.
func renderEnv(c *config.Config) (string, error) {
	redacted := *c
	if redacted.Store.DatabaseURL != "" {
		redacted.Store.DatabaseURL = "<redacted>"
	}

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return "", eris.Wrap(err, "marshal effective config")
	}
	return fmt.Sprintf("# detect config hash: %s\n%s", c.Detect.Hash(), data), nil
}

func init() {
	rootCmd.AddCommand(envCmd)
}
