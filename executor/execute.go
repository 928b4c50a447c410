// Package executor provides password derivation for callers such as the CLI.
// It coordinates the config, plugin, keystore and sitelist packages to
// resolve a site and derive its password.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/joncooperworks/passacre/config"
	"github.com/joncooperworks/passacre/crypto/keystore"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/generator"
	"github.com/joncooperworks/passacre/multibase"
	"github.com/joncooperworks/passacre/plugin"
	"github.com/joncooperworks/passacre/schema"
	"github.com/joncooperworks/passacre/sitelist"
)

// ErrNoPassword is returned when no master password was supplied and none is
// cached.
var ErrNoPassword = errs.New(errs.User, "executor.Execute", "no master password supplied and the agent is locked")

// DeriveRequest contains everything needed to derive one site password.
type DeriveRequest struct {
	// Config is the loaded site configuration.
	Config *config.Config
	// Site is the site name as the user typed it.
	Site string
	// Password is the master password. When empty the password cached in
	// Keystore is used.
	Password string
	// Username overrides the configured username when non-empty.
	Username string
	// Keystore optionally holds a cached master password.
	Keystore keystore.Keystore
	// Plugin supplies the schema instead of the configuration. When nil and
	// the site names a schema-plugin, the plugin is loaded from PluginDir.
	Plugin    plugin.Plugin
	PluginDir string
	// SiteListPath, when set, records Site in the encrypted site list.
	SiteListPath string
}

// DeriveResult contains the derived password and how it was produced.
type DeriveResult struct {
	// Password is the derived site password.
	Password string
	// Site is the resolved configuration the password was derived with.
	Site config.Site
	// EntropyBits is the entropy of the schema used.
	EntropyBits int
	// SchemaSource is "config" or the name of the plugin that supplied the
	// schema.
	SchemaSource string
}

// ExecuteDerivation resolves the site configuration and derives its password.
//
// This function does not perform any logging - it is a pure library function
// that returns structured data. Logging should be handled by the caller (e.g., CLI).
func ExecuteDerivation(ctx context.Context, req *DeriveRequest) (*DeriveResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if req.Site == "" {
		return nil, errs.New(errs.User, "executor.Execute", "site cannot be empty")
	}

	password, err := masterPassword(req.Password, req.Keystore)
	if err != nil {
		return nil, err
	}

	site, err := req.Config.Lookup(password, req.Site)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site %s: %w", req.Site, err)
	}
	username := site.Username
	if req.Username != "" {
		username = req.Username
	}

	mb, source, err := ResolveMultiBase(ctx, req.Config, site, req.Plugin, req.PluginDir)
	if err != nil {
		return nil, err
	}

	derived, err := generator.Derive(username, password, site.Name, mb, site.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to derive password: %w", err)
	}

	if req.SiteListPath != "" {
		list, err := OpenSiteList(req.Config, password, req.SiteListPath)
		if err != nil {
			return nil, err
		}
		if err := list.Add(req.Site); err != nil {
			return nil, fmt.Errorf("failed to save site: %w", err)
		}
	}

	return &DeriveResult{
		Password:     derived,
		Site:         site,
		EntropyBits:  mb.EntropyBits(),
		SchemaSource: source,
	}, nil
}

// ResolveMultiBase compiles the schema for site. A non-nil p, or the site's
// schema-plugin loaded from pluginDir, takes precedence over the configured
// schema. The returned source names where the schema came from.
func ResolveMultiBase(ctx context.Context, cfg *config.Config, site config.Site, p plugin.Plugin, pluginDir string) (*multibase.MultiBase, string, error) {
	if cfg == nil {
		return nil, "", errors.New("config cannot be nil")
	}
	if p == nil && site.SchemaPlugin != "" {
		if pluginDir == "" {
			return nil, "", errs.New(errs.User, "executor.ResolveMultiBase", "site %s needs plugin %s but no plugin directory is set", site.Name, site.SchemaPlugin)
		}
		path, err := plugin.Find(pluginDir, site.SchemaPlugin)
		if err != nil {
			return nil, "", err
		}
		loaded, err := plugin.LoadFile(ctx, path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load plugin %s: %w", site.SchemaPlugin, err)
		}
		defer loaded.Close()
		p = loaded
	}

	if p == nil {
		mb, err := cfg.MultiBase(site)
		if err != nil {
			return nil, "", err
		}
		return mb, "config", nil
	}

	raw, err := p.Schema(ctx, site.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get schema from plugin %s: %w", p.Name(), err)
	}
	s, err := schema.ParseJSON(raw)
	if err != nil {
		return nil, "", err
	}
	mb, err := cfg.MultiBaseFor(s)
	if err != nil {
		return nil, "", err
	}
	return mb, p.Name(), nil
}

// Entropy is the entropy of one configured site's schema.
type Entropy struct {
	Key          string
	Bits         int
	SchemaSource string
}

// SiteEntropies measures every configured site, keyed by the name it is
// stored under. Hashed entries are reported under their hashed name.
func SiteEntropies(ctx context.Context, cfg *config.Config, pluginDir string) ([]Entropy, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	var out []Entropy
	for _, key := range cfg.SiteNames() {
		site, err := cfg.Site(key)
		if err != nil {
			return nil, err
		}
		mb, source, err := ResolveMultiBase(ctx, cfg, site, nil, pluginDir)
		if err != nil {
			return nil, fmt.Errorf("failed to measure site %s: %w", key, err)
		}
		out = append(out, Entropy{Key: key, Bits: mb.EntropyBits(), SchemaSource: source})
	}
	return out, nil
}

// OpenSiteList opens the encrypted site list at path with the key derived
// from password using the pencrypt site configuration.
func OpenSiteList(cfg *config.Config, password, path string) (*sitelist.List, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	site, err := cfg.Lookup(password, sitelist.KeySite)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site list key options: %w", err)
	}
	key, err := sitelist.DeriveKey(password, site.Options())
	if err != nil {
		return nil, err
	}
	return sitelist.Open(path, key)
}

func masterPassword(password string, ks keystore.Keystore) (string, error) {
	if password != "" {
		return password, nil
	}
	if ks == nil {
		return "", ErrNoPassword
	}
	cached, ok, err := keystore.MasterPassword(ks)
	if err != nil {
		return "", fmt.Errorf("failed to read cached password: %w", err)
	}
	if !ok {
		return "", ErrNoPassword
	}
	return cached, nil
}
