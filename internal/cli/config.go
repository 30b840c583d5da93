package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/Spigot/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	var path string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Prints the configuration a server would run with: defaults, then
--config, then SPIGOT_* environment variables.`,
		Example: `  spigot config show
  SPIGOT_LIMITER_RATE=50 spigot config show --config spigot.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	show.Flags().StringVar(&path, "config", "", "YAML or JSON config file")

	validate := &cobra.Command{
		Use:     "validate <file>",
		Short:   "Check a config file for errors",
		Args:    cobra.ExactArgs(1),
		Example: `  spigot config validate spigot.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}
