package keystore

import (
	"errors"

	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
)

// MasterPasswordID is the id the cached master password is stored under.
const MasterPasswordID = "master-password"

var (
	// ErrUnlocked is returned by Unlock when a password is already cached.
	ErrUnlocked = errs.New(errs.User, "keystore.Unlock", "the agent is already unlocked")
	// ErrLocked is returned by Lock when no password is cached.
	ErrLocked = errs.New(errs.User, "keystore.Lock", "the agent is already locked")
)

// Unlock caches password so later commands need not prompt for it.
func Unlock(ks Keystore, password string) error {
	if ks == nil {
		return errors.New("keystore cannot be nil")
	}
	if password == "" {
		return errs.New(errs.User, "keystore.Unlock", "password cannot be empty")
	}
	_, err := ks.Get(MasterPasswordID)
	switch {
	case err == nil:
		return ErrUnlocked
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return ks.Set(MasterPasswordID, []byte(password))
}

// Lock removes the cached password.
func Lock(ks Keystore) error {
	if ks == nil {
		return errors.New("keystore cannot be nil")
	}
	err := ks.Delete(MasterPasswordID)
	if errors.Is(err, ErrNotFound) {
		return ErrLocked
	}
	return err
}

// MasterPassword returns the cached password. ok is false when the cache
// is locked.
func MasterPassword(ks Keystore) (password string, ok bool, err error) {
	if ks == nil {
		return "", false, errors.New("keystore cannot be nil")
	}
	secret, err := ks.Get(MasterPasswordID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer crypto.Zeroize(secret)
	return string(secret), true, nil
}
