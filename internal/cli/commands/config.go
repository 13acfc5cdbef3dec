package commands

import (
	"fmt"

	"github.com/leapstack-labs/labbrowse/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file, LABBROWSE_*
environment variables and flags, as YAML. The output is a valid labbrowse.yaml.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			if f := config.GetConfigFileUsed(); f != "" {
				r.Println(r.Styles().Muted.Render("# config file: " + f))
			}
			out, err := yaml.Marshal(cmdCtx.Cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			r.Printf("%s", out)
			return nil
		},
	}
}
