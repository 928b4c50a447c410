package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joncooperworks/passacre/crypto/keystore"
	"github.com/joncooperworks/passacre/errs"
)

// cachedPassword returns the master password held by the agent, if the
// keystore is available and unlocked.
func (a *app) cachedPassword() (string, bool) {
	if !a.capabilities().Keyring {
		return "", false
	}
	ks, err := a.keystore()
	if err != nil {
		a.log.Debug().Err(err).Msg("keystore unavailable")
		return "", false
	}
	pw, ok, err := keystore.MasterPassword(ks)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to read cached password")
		return "", false
	}
	return pw, ok
}

// masterPassword returns the cached master password or prompts for one.
func (a *app) masterPassword(cmd *cobra.Command, confirm bool) (string, error) {
	if pw, ok := a.cachedPassword(); ok {
		a.log.Debug().Msg("using cached master password")
		return pw, nil
	}
	return a.prompt(cmd, confirm)
}

// prompt reads the master password without echo from a terminal, or one
// line from a non-terminal stdin.
func (a *app) prompt(cmd *cobra.Command, confirm bool) (string, error) {
	pw, err := a.readPassword(cmd, "Password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errs.New(errs.User, "prompt", "password cannot be empty")
	}
	if confirm {
		again, err := a.readPassword(cmd, "Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", errs.New(errs.User, "prompt", "passwords don't match")
		}
	}
	return pw, nil
}

func (a *app) readPassword(cmd *cobra.Command, label string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", errs.New(errs.User, "prompt", "no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
