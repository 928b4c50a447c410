package main

import (
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/joncooperworks/passacre/config"
	"github.com/joncooperworks/passacre/crypto/keystore"
)

// Capabilities records which optional features work on this machine.
type Capabilities struct {
	// Clipboard is true when a clipboard utility is available.
	Clipboard bool
	// Keyring is true when a keystore backend is registered for the
	// configured platform.
	Keyring bool
}

func probeCapabilities(s config.Settings) Capabilities {
	platform := s.Keystore
	if platform == "" {
		platform = runtime.GOOS
	}
	caps := Capabilities{Clipboard: !clipboard.Unsupported}
	for _, p := range keystore.ListRegisteredPlatforms() {
		if p == platform {
			caps.Keyring = true
		}
	}
	return caps
}
