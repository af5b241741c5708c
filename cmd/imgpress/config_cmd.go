package main

import (
	"fmt"

	"github.com/leeforge/imgpress/utils"
	"github.com/spf13/cobra"
)

func newConfigCmd(env *cliEnv, root *rootOptions) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging config files, defaults and
IMGPRESS_* environment variables. Secrets are omitted.

Examples:
  imgpress config
  imgpress config --export config/config.local.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, c, err := env.loadConfig(root)
			if err != nil {
				return err
			}
			if export != "" {
				if err := c.Export(export); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", export)
				return nil
			}
			for _, f := range c.Files() {
				fmt.Fprintf(cmd.ErrOrStderr(), "loaded %s\n", f)
			}
			return utils.PrintJson(stdout(cmd), app)
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write the merged config to this file instead of printing it")
	return cmd
}
