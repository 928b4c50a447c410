package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joncooperworks/passacre/errs"
)

// Loader loads plugins of one type.
type Loader interface {
	Load(ctx context.Context, data []byte, name string) (Plugin, error)
}

// LoadFile loads the plugin at path, choosing the loader by extension.
func LoadFile(ctx context.Context, path string) (Plugin, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, errs.New(errs.User, "plugin.LoadFile", "plugin %s has no type extension", path)
	}
	factory, err := GetLoaderFactory(ext)
	if err != nil {
		return nil, errs.Wrap(errs.User, "plugin.LoadFile", err)
	}
	loader, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s loader: %w", ext, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.User, "plugin.LoadFile", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return loader.Load(ctx, data, name)
}

// Find returns the path of the plugin called name in dir, trying every
// registered type.
func Find(dir, name string) (string, error) {
	if name == "" {
		return "", errors.New("plugin name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", errs.New(errs.User, "plugin.Find", "invalid plugin name %q", name)
	}
	for _, typ := range ListRegisteredPluginTypes() {
		path := filepath.Join(dir, name+"."+typ)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errs.New(errs.User, "plugin.Find", "no plugin %q in %s", name, dir)
}
