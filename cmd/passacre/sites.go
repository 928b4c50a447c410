package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joncooperworks/passacre/executor"
	"github.com/joncooperworks/passacre/sitelist"
)

func newSitesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage the encrypted list of sites",
		Long: `Manage the list of sites passwords were generated for.

The list is encrypted with a key derived from the master password, so
it reveals nothing without it.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recorded sites",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.openSiteList(cmd)
				if err != nil {
					return err
				}
				for _, site := range list.Sites() {
					fmt.Fprintln(cmd.OutOrStdout(), site)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <site>...",
			Short: "Record sites",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.openSiteList(cmd)
				if err != nil {
					return err
				}
				for _, site := range args {
					if err := list.Add(site); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "remove <site>...",
			Aliases: []string{"rm"},
			Short:   "Forget sites",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.openSiteList(cmd)
				if err != nil {
					return err
				}
				for _, site := range args {
					if err := list.Remove(site); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) openSiteList(cmd *cobra.Command) (*sitelist.List, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	password, err := a.masterPassword(cmd, false)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("path", a.settings.SiteList).Msg("opening site list")
	return executor.OpenSiteList(cfg, password, a.settings.SiteList)
}
