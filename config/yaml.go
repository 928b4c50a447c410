package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joncooperworks/passacre/errs"
)

// DefaultPaths are searched in order by Find.
var DefaultPaths = []string{
	"passacre.sqlite",
	"passacre.yaml",
	"~/.passacre.sqlite",
	"~/.passacre.yaml",
}

// ParseYAML decodes a YAML configuration. baseDir resolves a relative
// words-file and may be empty.
func ParseYAML(r io.Reader, baseDir string) (*Config, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errs.Wrap(errs.User, "config.ParseYAML", err)
	}
	return newConfig(doc, baseDir)
}

// LoadYAML reads the YAML configuration at path.
func LoadYAML(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.User, "config.LoadYAML", err)
	}
	defer f.Close()
	return ParseYAML(f, filepath.Dir(path))
}

// EncodeYAML encodes c in the YAML configuration format.
func (c *Config) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.document()); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads the configuration at path, choosing the store by extension:
// ".sqlite" and ".db" are SQLite databases, anything else is YAML.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".db":
		return LoadSQLite(path)
	default:
		return LoadYAML(path)
	}
}

// Find returns the first of paths that exists, with "~/" expanded.
func Find(paths []string) (string, error) {
	for _, p := range paths {
		expanded := p
		if strings.HasPrefix(p, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			expanded = filepath.Join(home, p[2:])
		}
		if _, err := os.Stat(expanded); err == nil {
			return expanded, nil
		}
	}
	return "", errs.New(errs.User, "config.Find", "no configuration found in %s", strings.Join(paths, ", "))
}
