package keystore

import "errors"

// ErrNotFound is returned when no secret is stored under an id.
var ErrNotFound = errors.New("secret not found")

// Keystore stores small secrets in an OS keystore.
type Keystore interface {
	// Get returns the secret stored under id, or ErrNotFound.
	Get(id string) ([]byte, error)
	// Set stores secret under id, replacing any previous value.
	Set(id string, secret []byte) error
	// Delete removes id. Deleting a missing id returns ErrNotFound.
	Delete(id string) error
	// List returns the stored ids.
	List() ([]string, error)
}

// Config selects where a Keystore keeps its secrets.
type Config struct {
	// ServiceName namespaces the secrets, e.g. "passacre".
	ServiceName string
}
