package plugin

import (
	"context"
	"encoding/json"
)

// MockPlugin is an in-memory Plugin for testing.
// This is exported so it can be used by tests in other packages.
type MockPlugin struct {
	name        string
	description string
	schemaFunc  func(ctx context.Context, site string) (json.RawMessage, error)
	Closed      bool
}

// NewMockPlugin returns a plugin that supplies schema for every site.
func NewMockPlugin(name, description string, schema json.RawMessage) *MockPlugin {
	return NewMockPluginWithSchema(name, description, func(context.Context, string) (json.RawMessage, error) {
		return schema, nil
	})
}

// NewMockPluginWithSchema returns a plugin with a custom schema function.
func NewMockPluginWithSchema(name, description string, schemaFunc func(ctx context.Context, site string) (json.RawMessage, error)) *MockPlugin {
	return &MockPlugin{
		name:        name,
		description: description,
		schemaFunc:  schemaFunc,
	}
}

// Name returns the plugin name.
func (m *MockPlugin) Name() string {
	return m.name
}

// Description returns the plugin description.
func (m *MockPlugin) Description() string {
	return m.description
}

// Schema calls the schema function.
func (m *MockPlugin) Schema(ctx context.Context, site string) (json.RawMessage, error) {
	return m.schemaFunc(ctx, site)
}

// Close marks the plugin closed.
func (m *MockPlugin) Close() error {
	m.Closed = true
	return nil
}
