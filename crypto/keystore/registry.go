package keystore

import (
	"fmt"
	"sort"
	"sync"
)

// KeystoreFactory opens a keystore backend with cfg.
type KeystoreFactory func(cfg Config) (Keystore, error)

// backends maps a platform name to the factory of its keystore. Platform
// names are runtime.GOOS values, plus "memory" for the in-process store.
var backends = struct {
	sync.RWMutex
	byPlatform map[string]KeystoreFactory
}{byPlatform: map[string]KeystoreFactory{}}

// RegisterKeystore makes factory the backend for platform, replacing any
// earlier registration. Backends register themselves from init.
func RegisterKeystore(platform string, factory KeystoreFactory) {
	backends.Lock()
	defer backends.Unlock()
	backends.byPlatform[platform] = factory
}

// GetKeystoreFactory returns the backend registered for platform.
func GetKeystoreFactory(platform string) (KeystoreFactory, error) {
	backends.RLock()
	defer backends.RUnlock()
	factory, ok := backends.byPlatform[platform]
	if !ok {
		return nil, fmt.Errorf("no keystore backend for platform %q", platform)
	}
	return factory, nil
}

// ListRegisteredPlatforms returns the platforms with a backend, sorted.
func ListRegisteredPlatforms() []string {
	backends.RLock()
	defer backends.RUnlock()
	platforms := make([]string, 0, len(backends.byPlatform))
	for p := range backends.byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}
