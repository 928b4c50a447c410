//go:build darwin
// +build darwin

package keystore

import (
	"os"

	"github.com/99designs/keyring"
)

func init() {
	RegisterKeystore("darwin", NewKeychainKeystore)
}

// NewKeychainKeystore opens the macOS Keychain.
// Uses PASSACRE_KEYCHAIN if set, otherwise the default login keychain.
func NewKeychainKeystore(cfg Config) (Keystore, error) {
	return openRing("keychain", keyring.Config{
		ServiceName:              cfg.ServiceName,
		AllowedBackends:          []keyring.BackendType{keyring.KeychainBackend},
		KeychainName:             os.Getenv("PASSACRE_KEYCHAIN"),
		KeychainTrustApplication: true,
	})
}
