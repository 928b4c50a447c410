// Package config loads per-site derivation settings.
//
// A configuration holds a "default" site whose values every other site
// inherits, an optional word list path, and site hashing settings. Sites
// may be stored under their hashed name so that the configuration does not
// reveal which sites are in use; Lookup tries the exact name, then the
// hashed name, then falls back to the default.
package config

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/generator"
	"github.com/joncooperworks/passacre/multibase"
	"github.com/joncooperworks/passacre/schema"
	"github.com/joncooperworks/passacre/wordlist"
)

// DefaultSite is the name of the site every other site inherits from.
const DefaultSite = "default"

// DefaultMethod is the algorithm used when the default site names none.
const DefaultMethod = "keccak"

// SiteConfig is the stored configuration of one site. Unset fields inherit
// from the default site.
type SiteConfig struct {
	Method       string                  `yaml:"method,omitempty" json:"method,omitempty"`
	Iterations   *uint64                 `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	Increment    *uint64                 `yaml:"increment,omitempty" json:"increment,omitempty"`
	Username     string                  `yaml:"username,omitempty" json:"username,omitempty"`
	Schema       any                     `yaml:"schema,omitempty" json:"schema,omitempty"`
	Scrypt       *generator.ScryptParams `yaml:"scrypt,omitempty" json:"scrypt,omitempty"`
	SchemaPlugin string                  `yaml:"schema-plugin,omitempty" json:"schema-plugin,omitempty"`
}

// SiteHashing configures how site names are hashed for lookup. Method and
// Iterations fall back to the default site.
type SiteHashing struct {
	Enabled    *bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Method     string  `yaml:"method,omitempty" json:"method,omitempty"`
	Iterations *uint64 `yaml:"iterations,omitempty" json:"iterations,omitempty"`
}

// document is the serialized form shared by the YAML and SQLite stores.
type document struct {
	WordsFile   string                `yaml:"words-file,omitempty" json:"words-file,omitempty"`
	SiteHashing *SiteHashing          `yaml:"site-hashing,omitempty" json:"site-hashing,omitempty"`
	Sites       map[string]SiteConfig `yaml:"sites" json:"sites"`
}

// Config is a loaded configuration.
type Config struct {
	WordsFile   string
	SiteHashing SiteHashing
	Sites       map[string]SiteConfig

	// baseDir resolves a relative WordsFile.
	baseDir string

	wordsMu sync.Mutex
	words   []string
}

// Site is a fully resolved site configuration.
type Site struct {
	// Name is the site name fed to the derivation, never the hashed name.
	Name string
	// Key is the entry the site was found under.
	Key          string
	Algorithm    crypto.Algorithm
	Iterations   uint64
	Increment    uint64
	Username     string
	Schema       any
	Scrypt       *generator.ScryptParams
	SchemaPlugin string
}

// Options returns the derivation options for the site.
func (s Site) Options() generator.Options {
	return generator.Options{
		Algorithm:  s.Algorithm,
		Iterations: s.Iterations,
		Increment:  s.Increment,
		Scrypt:     s.Scrypt,
	}
}

func newConfig(doc document, baseDir string) (*Config, error) {
	if doc.Sites == nil {
		doc.Sites = map[string]SiteConfig{}
	}
	def := doc.Sites[DefaultSite]
	if def.Method == "" {
		def.Method = DefaultMethod
	}
	if def.Iterations == nil {
		n := uint64(generator.DefaultIterations)
		def.Iterations = &n
	}
	doc.Sites[DefaultSite] = def

	c := &Config{
		WordsFile: doc.WordsFile,
		Sites:     doc.Sites,
		baseDir:   baseDir,
	}
	if doc.SiteHashing != nil {
		c.SiteHashing = *doc.SiteHashing
	}
	if _, err := crypto.ParseAlgorithm(def.Method); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) document() document {
	doc := document{WordsFile: c.WordsFile, Sites: c.Sites}
	if c.SiteHashing != (SiteHashing{}) {
		sh := c.SiteHashing
		doc.SiteHashing = &sh
	}
	return doc
}

// SiteHashingEnabled reports whether hashed lookup is on. It defaults to
// true.
func (c *Config) SiteHashingEnabled() bool {
	return c.SiteHashing.Enabled == nil || *c.SiteHashing.Enabled
}

// HashingOptions returns the options used to hash site names.
func (c *Config) HashingOptions() (generator.Options, error) {
	def := c.Sites[DefaultSite]
	method := def.Method
	if c.SiteHashing.Method != "" {
		method = c.SiteHashing.Method
	}
	alg, err := crypto.ParseAlgorithm(method)
	if err != nil {
		return generator.Options{}, err
	}
	iterations := *def.Iterations
	if c.SiteHashing.Iterations != nil {
		iterations = *c.SiteHashing.Iterations
	}
	return generator.Options{Algorithm: alg, Iterations: iterations}, nil
}

// SiteNames returns the configured site names, including hashed names and
// the default, sorted.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for name := range c.Sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Site resolves the entry stored under key, merged over the default.
func (c *Config) Site(key string) (Site, error) {
	sc, ok := c.Sites[key]
	if !ok {
		return Site{}, errs.New(errs.User, "config.Site", "no site %q", key)
	}
	return c.resolve(key, key, sc)
}

func (c *Config) resolve(name, key string, sc SiteConfig) (Site, error) {
	def := c.Sites[DefaultSite]
	merged := def
	if sc.Method != "" {
		merged.Method = sc.Method
	}
	if sc.Iterations != nil {
		merged.Iterations = sc.Iterations
	}
	if sc.Increment != nil {
		merged.Increment = sc.Increment
	}
	if sc.Username != "" {
		merged.Username = sc.Username
	}
	if sc.Schema != nil {
		merged.Schema = sc.Schema
	}
	if sc.Scrypt != nil {
		merged.Scrypt = sc.Scrypt
	}
	if sc.SchemaPlugin != "" {
		merged.SchemaPlugin = sc.SchemaPlugin
	}

	alg, err := crypto.ParseAlgorithm(merged.Method)
	if err != nil {
		return Site{}, errs.Wrap(errs.User, "config.Site", err)
	}
	site := Site{
		Name:         name,
		Key:          key,
		Algorithm:    alg,
		Iterations:   *merged.Iterations,
		Username:     merged.Username,
		Schema:       merged.Schema,
		Scrypt:       merged.Scrypt,
		SchemaPlugin: merged.SchemaPlugin,
	}
	if merged.Increment != nil {
		site.Increment = *merged.Increment
	}
	if site.Schema == nil && site.SchemaPlugin == "" {
		return Site{}, errs.New(errs.User, "config.Site", "site %q has no schema", key)
	}
	return site, nil
}

// Lookup finds the configuration for site: the exact entry, then the entry
// under the site's hashed name, then the default. Hashing needs the master
// password.
func (c *Config) Lookup(password, site string) (Site, error) {
	if sc, ok := c.Sites[site]; ok && site != DefaultSite {
		return c.resolve(site, site, sc)
	}
	if c.SiteHashingEnabled() {
		hashed, err := c.HashSite(password, site)
		if err != nil {
			return Site{}, err
		}
		if sc, ok := c.Sites[hashed]; ok {
			return c.resolve(site, hashed, sc)
		}
	}
	return c.resolve(site, DefaultSite, c.Sites[DefaultSite])
}

// HashSite hashes site with the site hashing options.
func (c *Config) HashSite(password, site string) (string, error) {
	opts, err := c.HashingOptions()
	if err != nil {
		return "", err
	}
	return generator.HashSite(password, site, opts)
}

// Words returns the configured word list, loading it on first use. It
// returns nil when no words file is configured.
func (c *Config) Words() ([]string, error) {
	if c.WordsFile == "" {
		return nil, nil
	}
	c.wordsMu.Lock()
	defer c.wordsMu.Unlock()
	if c.words != nil {
		return c.words, nil
	}
	path, err := wordlist.ExpandHome(c.WordsFile)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && c.baseDir != "" {
		path = filepath.Join(c.baseDir, path)
	}
	words, err := wordlist.Load(path)
	if err != nil {
		return nil, err
	}
	c.words = words
	return words, nil
}

// MultiBase compiles the site's schema with the configured word list.
func (c *Config) MultiBase(site Site) (*multibase.MultiBase, error) {
	return c.MultiBaseFor(site.Schema)
}

// MultiBaseFor compiles an arbitrary schema with the configured word list.
func (c *Config) MultiBaseFor(s any) (*multibase.MultiBase, error) {
	words, err := c.Words()
	if err != nil {
		return nil, err
	}
	return schema.MultiBase(s, words)
}

// SetSite stores sc under name, replacing any previous entry.
func (c *Config) SetSite(name string, sc SiteConfig) {
	if c.Sites == nil {
		c.Sites = map[string]SiteConfig{}
	}
	c.Sites[name] = sc
}
