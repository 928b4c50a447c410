// Package plugin loads schema plugins: sandboxed modules that compute a
// password schema for a site, for sites whose rules are too irregular for a
// static schema.
package plugin

import (
	"context"
	"encoding/json"
)

// Plugin supplies password schemas.
type Plugin interface {
	// Name returns the name of the plugin, e.g. "bank-pin".
	Name() string

	// Description returns a description of what the plugin does.
	Description() string

	// Schema returns the password schema for site as JSON, in the same form
	// a configuration file accepts.
	Schema(ctx context.Context, site string) (json.RawMessage, error)

	// Close releases the plugin's resources.
	Close() error
}
