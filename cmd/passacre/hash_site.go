package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joncooperworks/passacre/errs"
)

func newHashSiteCmd(a *app) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "hash-site <site>",
		Short: "Print the hashed name a site is stored under",
		Long: `Print the hashed name of a site.

Storing a site's configuration under its hashed name keeps the
configuration from revealing which sites are in use.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.SiteHashingEnabled() {
				return errs.New(errs.User, "hash-site", "site hashing is disabled in the configuration")
			}
			var password string
			if confirm {
				password, err = a.prompt(cmd, true)
			} else {
				password, err = a.masterPassword(cmd, false)
			}
			if err != nil {
				return err
			}
			hashed, err := cfg.HashSite(password, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&confirm, "confirm", "c", false, "prompt for the master password twice")
	return cmd
}
