package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joncooperworks/passacre/crypto/keystore"
	"github.com/joncooperworks/passacre/errs"
)

func newAgentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Cache the master password in the OS keyring",
		Long: `Cache the master password in the OS keyring.

While the agent is unlocked, commands use the cached password instead
of prompting.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "unlock",
			Short: "Cache the master password",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ks, err := a.requireKeystore()
				if err != nil {
					return err
				}
				password, err := a.prompt(cmd, true)
				if err != nil {
					return err
				}
				if err := keystore.Unlock(ks, password); err != nil {
					return err
				}
				a.log.Info().Msg("agent unlocked")
				return nil
			},
		},
		&cobra.Command{
			Use:   "lock",
			Short: "Forget the cached master password",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ks, err := a.requireKeystore()
				if err != nil {
					return err
				}
				if err := keystore.Lock(ks); err != nil {
					return err
				}
				a.log.Info().Msg("agent locked")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the agent is unlocked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ks, err := a.requireKeystore()
				if err != nil {
					return err
				}
				_, ok, err := keystore.MasterPassword(ks)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(cmd.OutOrStdout(), "unlocked")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "locked")
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) requireKeystore() (keystore.Keystore, error) {
	if !a.capabilities().Keyring {
		return nil, errs.New(errs.User, "agent", "no keyring is available on this system")
	}
	ks, err := a.keystore()
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return ks, nil
}
