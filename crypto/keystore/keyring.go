package keystore

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ringKeystore implements Keystore on top of a keyring backend.
type ringKeystore struct {
	ring keyring.Keyring
	// what names the backend in error messages.
	what string
}

func openRing(what string, cfg keyring.Config) (Keystore, error) {
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", what, err)
	}
	return &ringKeystore{ring: ring, what: what}, nil
}

func (k *ringKeystore) Get(id string) ([]byte, error) {
	item, err := k.ring.Get(id)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret from %s: %w", k.what, err)
	}
	return item.Data, nil
}

func (k *ringKeystore) Set(id string, secret []byte) error {
	err := k.ring.Set(keyring.Item{
		Key:   id,
		Data:  secret,
		Label: id,
	})
	if err != nil {
		return fmt.Errorf("failed to store secret in %s: %w", k.what, err)
	}
	return nil
}

func (k *ringKeystore) Delete(id string) error {
	err := k.ring.Remove(id)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove secret from %s: %w", k.what, err)
	}
	return nil
}

func (k *ringKeystore) List() ([]string, error) {
	keys, err := k.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets in %s: %w", k.what, err)
	}
	return keys, nil
}
