package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joncooperworks/passacre/executor"
)

func newEntropyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entropy",
		Short: "Show the entropy of every configured site's schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			entropies, err := executor.SiteEntropies(cmd.Context(), cfg, a.settings.PluginDir)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SITE\tBITS\tSCHEMA")
			for _, e := range entropies {
				fmt.Fprintf(w, "%s\t%d\t%s\n", e.Key, e.Bits, e.SchemaSource)
			}
			return w.Flush()
		},
	}
}
