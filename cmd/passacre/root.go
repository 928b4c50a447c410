package main

import (
	"bufio"
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joncooperworks/passacre/config"
	"github.com/joncooperworks/passacre/crypto/keystore"
)

// app is the state shared by every command of one invocation.
type app struct {
	settingsDir string
	v           *viper.Viper
	settings    config.Settings
	log         zerolog.Logger

	capsOnce sync.Once
	caps     Capabilities

	ksOnce sync.Once
	ks     keystore.Keystore
	ksErr  error

	stdin *bufio.Reader
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(&app{}).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "passacre",
		Short: "Derive site passwords from a master password",
		Long: `passacre derives a password for each site from one master password.

Nothing is stored: the same master password, site name and site
configuration always give the same password.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.settingsDir, "settings-dir", config.SettingsDir(), "directory holding settings.yaml")
	flags.StringP("config", "f", "", "site configuration file (YAML or SQLite)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("keystore", "", "keystore backend")
	_ = flags.MarkHidden("keystore")

	root.AddCommand(
		newGenerateCmd(a),
		newHashSiteCmd(a),
		newEntropyCmd(a),
		newAgentCmd(a),
		newSitesCmd(a),
		newConfigCmd(a),
		newCompletionCmd(),
	)
	return root
}

var flagSettings = map[string]string{
	"config":    "config",
	"log-level": "log_level",
	"keystore":  "keystore",
}

// load reads settings, applying flags over the environment over the
// settings file, and configures logging.
func (a *app) load(cmd *cobra.Command) error {
	a.v = config.NewViper(a.settingsDir)
	for flag, key := range flagSettings {
		if err := a.v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	settings, err := config.LoadSettings(a.v)
	if err != nil {
		return err
	}
	a.settings = settings
	a.log = newLogger(cmd.ErrOrStderr(), settings.LogLevel, settings.LogPretty)
	a.log.Debug().Str("settings_dir", a.settingsDir).Msg("settings loaded")
	return nil
}

// capabilities probes optional features once per invocation.
func (a *app) capabilities() Capabilities {
	a.capsOnce.Do(func() {
		a.caps = probeCapabilities(a.settings)
		a.log.Debug().
			Bool("clipboard", a.caps.Clipboard).
			Bool("keyring", a.caps.Keyring).
			Msg("capabilities probed")
	})
	return a.caps
}

// keystore opens the configured keystore once per invocation.
func (a *app) keystore() (keystore.Keystore, error) {
	a.ksOnce.Do(func() {
		platform := a.settings.Keystore
		if platform == "" {
			platform = runtime.GOOS
		}
		a.ks, a.ksErr = keystore.NewKeystoreFor(platform, keystore.Config{ServiceName: a.settings.KeyringService})
	})
	return a.ks, a.ksErr
}

// loadConfig loads the site configuration named by settings, or the first
// of the default locations.
func (a *app) loadConfig() (*config.Config, error) {
	path := a.settings.Config
	if path == "" {
		found, err := config.Find(config.DefaultPaths)
		if err != nil {
			return nil, err
		}
		path = found
	}
	a.log.Debug().Str("path", path).Msg("loading site configuration")
	return config.Load(path)
}
