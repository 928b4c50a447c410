//go:build windows
// +build windows

package keystore

import "github.com/99designs/keyring"

func init() {
	RegisterKeystore("windows", NewWindowsKeystore)
}

// NewWindowsKeystore opens the Windows Credential Manager.
func NewWindowsKeystore(cfg Config) (Keystore, error) {
	return openRing("credential store", keyring.Config{
		ServiceName:     cfg.ServiceName,
		AllowedBackends: []keyring.BackendType{keyring.WinCredBackend},
		WinCredPrefix:   cfg.ServiceName,
	})
}
