package main

import (
	"github.com/spf13/cobra"

	"github.com/joncooperworks/passacre/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and convert site configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "import <yaml> <sqlite>",
			Short: "Convert a YAML configuration into a SQLite database",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.ImportYAMLToSQLite(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				a.log.Info().Str("from", args[0]).Str("to", args[1]).Msg("configuration imported")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the loaded configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				out, err := cfg.EncodeYAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
	)
	return cmd
}
