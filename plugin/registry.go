package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// LoaderFactory creates the Loader for one plugin type.
type LoaderFactory func() (Loader, error)

// loaders maps a plugin file extension, without the dot, to its loader.
var loaders = struct {
	sync.RWMutex
	byType map[string]LoaderFactory
}{byType: map[string]LoaderFactory{}}

// RegisterLoader makes factory the loader for plugin files ending in
// "."+typeIdentifier. Loaders register themselves from init.
func RegisterLoader(typeIdentifier string, factory LoaderFactory) {
	loaders.Lock()
	defer loaders.Unlock()
	loaders.byType[typeIdentifier] = factory
}

// GetLoaderFactory returns the loader registered for typeIdentifier.
func GetLoaderFactory(typeIdentifier string) (LoaderFactory, error) {
	loaders.RLock()
	defer loaders.RUnlock()
	factory, ok := loaders.byType[typeIdentifier]
	if !ok {
		return nil, fmt.Errorf("no loader for plugin type %q", typeIdentifier)
	}
	return factory, nil
}

// ListRegisteredPluginTypes returns the registered plugin types, sorted.
// Find tries them in this order.
func ListRegisteredPluginTypes() []string {
	loaders.RLock()
	defer loaders.RUnlock()
	types := make([]string, 0, len(loaders.byType))
	for t := range loaders.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
