package main

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/executor"
)

type generateOptions struct {
	username  string
	noNewline bool
	confirm   bool
	copy      bool
	timeout   time.Duration
	save      bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:     "generate <site>",
		Aliases: []string{"gen"},
		Short:   "Generate the password for a site",
		Long: `Generate the password for a site.

The master password is read from the agent if it is unlocked, otherwise
it is prompted for. Use --copy to put the password on the clipboard
instead of printing it; the clipboard is cleared after --timeout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "username to derive with, overriding the configuration")
	cmd.Flags().BoolVarP(&opts.noNewline, "no-newline", "n", false, "don't print a trailing newline")
	cmd.Flags().BoolVarP(&opts.confirm, "confirm", "c", false, "prompt for the master password twice")
	cmd.Flags().BoolVarP(&opts.copy, "copy", "C", false, "copy the password to the clipboard")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "clear the clipboard after this long (default from settings)")
	cmd.Flags().BoolVarP(&opts.save, "save", "s", false, "record the site in the encrypted site list")
	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, site string, opts generateOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if opts.copy && !a.capabilities().Clipboard {
		return errs.New(errs.User, "generate", "no clipboard is available")
	}

	var password string
	if opts.confirm {
		password, err = a.prompt(cmd, true)
	} else {
		password, err = a.masterPassword(cmd, false)
	}
	if err != nil {
		return err
	}

	req := &executor.DeriveRequest{
		Config:    cfg,
		Site:      site,
		Password:  password,
		Username:  opts.username,
		PluginDir: a.settings.PluginDir,
	}
	if opts.save {
		req.SiteListPath = a.settings.SiteList
	}
	res, err := executor.ExecuteDerivation(cmd.Context(), req)
	if err != nil {
		return err
	}
	a.log.Info().
		Str("site", site).
		Str("entry", res.Site.Key).
		Str("schema", res.SchemaSource).
		Int("entropy_bits", res.EntropyBits).
		Msg("password generated")

	if !opts.copy {
		if opts.noNewline {
			fmt.Fprint(cmd.OutOrStdout(), res.Password)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), res.Password)
		}
		return nil
	}

	timeout := opts.timeout
	if timeout == 0 {
		timeout = a.settings.ClipboardTimeout
	}
	if err := clipboard.WriteAll(res.Password); err != nil {
		return fmt.Errorf("failed to copy password: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Password copied to the clipboard; clearing in %s.\n", timeout)
	return clearClipboard(cmd.Context(), res.Password, timeout)
}

// clearClipboard waits for timeout, or cancellation, then empties the
// clipboard if it still holds password.
func clearClipboard(ctx context.Context, password string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	current, err := clipboard.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read clipboard: %w", err)
	}
	if current != password {
		return nil
	}
	if err := clipboard.WriteAll(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	return nil
}
