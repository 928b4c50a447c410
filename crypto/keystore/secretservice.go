//go:build linux
// +build linux

package keystore

import "github.com/99designs/keyring"

func init() {
	RegisterKeystore("linux", NewSecretServiceKeystore)
}

// NewSecretServiceKeystore opens the desktop keyring on Linux: the Secret
// Service (GNOME Keyring), KWallet, or the kernel keyring, whichever is
// available first.
func NewSecretServiceKeystore(cfg Config) (Keystore, error) {
	return openRing("keyring", keyring.Config{
		ServiceName: cfg.ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.KeyCtlBackend,
		},
		LibSecretCollectionName: "login",
		KWalletAppID:            cfg.ServiceName,
		KWalletFolder:           cfg.ServiceName,
		KeyCtlScope:             "user",
	})
}
