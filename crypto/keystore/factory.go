package keystore

import (
	"fmt"
	"runtime"
)

// NewKeystore creates the keystore for the current platform.
// Uses the registry to find the appropriate factory for the current platform
func NewKeystore(cfg Config) (Keystore, error) {
	return NewKeystoreFor(runtime.GOOS, cfg)
}

// NewKeystoreFor creates the keystore registered under platform.
func NewKeystoreFor(platform string, cfg Config) (Keystore, error) {
	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}
	factory, err := GetKeystoreFactory(platform)
	if err != nil {
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
	return factory(cfg)
}
