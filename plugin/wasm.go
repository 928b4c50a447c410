package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	extism "github.com/extism/go-sdk"

	"github.com/joncooperworks/passacre/boundary"
	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
)

func init() {
	RegisterLoader("wasm", func() (Loader, error) {
		return NewWASMLoader()
	})
}

// pluginTimeoutMillis bounds every call into a plugin.
const pluginTimeoutMillis = 5000

// WASMLoader loads WASM plugins using Extism SDK.
//
// A plugin exports name, description and schema. schema receives the site
// name as input and outputs a JSON schema. Plugins may import the host
// functions passacre_entropy_bits and passacre_derive from "env".
type WASMLoader struct{}

// NewWASMLoader creates a new WASM loader.
func NewWASMLoader() (*WASMLoader, error) {
	return &WASMLoader{}, nil
}

// Load compiles and instantiates a WASM plugin from raw bytes. Plugins get
// WASI but no network or filesystem access.
func (wl *WASMLoader) Load(ctx context.Context, data []byte, name string) (Plugin, error) {
	if len(data) == 0 {
		return nil, errs.New(errs.User, "plugin.Load", "plugin %s is empty", name)
	}
	manifest := extism.Manifest{
		Wasm: []extism.Wasm{
			extism.WasmData{Data: data, Name: name},
		},
		Timeout: pluginTimeoutMillis,
	}
	config := extism.PluginConfig{
		EnableWasi: true,
	}
	hostFunctions := []extism.HostFunction{
		newEntropyBitsFunction(),
		newDeriveFunction(allocResult),
	}

	p, err := extism.NewPlugin(ctx, manifest, config, hostFunctions)
	if err != nil {
		return nil, fmt.Errorf("failed to create Extism plugin: %w", err)
	}
	if !p.FunctionExists("schema") {
		p.Close(ctx)
		return nil, errs.New(errs.User, "plugin.Load", "plugin %s does not export schema", name)
	}
	return &WASMPlugin{name: name, plugin: p}, nil
}

// WASMPlugin implements the Plugin interface for WASM modules.
type WASMPlugin struct {
	name   string
	plugin *extism.Plugin
}

// Close shuts down the plugin instance and releases resources.
func (wp *WASMPlugin) Close() error {
	if wp.plugin != nil {
		return wp.plugin.Close(context.Background())
	}
	return nil
}

// Name returns the plugin name, preferring the WASM exported name().
func (wp *WASMPlugin) Name() string {
	result, err := wp.callString(context.Background(), "name", nil)
	if err == nil && result != "" {
		return result
	}
	return wp.name
}

// Description returns the plugin description by calling description().
func (wp *WASMPlugin) Description() string {
	result, err := wp.callString(context.Background(), "description", nil)
	if err != nil || result == "" {
		return "WASM schema plugin"
	}
	return result
}

// Schema calls schema() with the site name as input.
func (wp *WASMPlugin) Schema(ctx context.Context, site string) (json.RawMessage, error) {
	result, err := wp.callString(ctx, "schema", []byte(site))
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(result)) {
		return nil, errs.New(errs.User, "plugin.Schema", "plugin %s returned invalid JSON", wp.name)
	}
	return json.RawMessage(result), nil
}

func (wp *WASMPlugin) callString(ctx context.Context, functionName string, input []byte) (string, error) {
	if !wp.plugin.FunctionExists(functionName) {
		return "", fmt.Errorf("plugin does not export %s", functionName)
	}
	exitCode, resultBytes, err := wp.plugin.CallWithContext(ctx, functionName, input)
	if err != nil {
		return "", fmt.Errorf("failed to call function %s: %w", functionName, err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("function %s returned non-zero exit code: %d", functionName, exitCode)
	}
	return string(resultBytes), nil
}

// entropyBits measures a JSON schema. Schemas from plugins have no word
// list.
func entropyBits(schemaJSON []byte) (uint64, error) {
	e, err := newEngine(nil)
	if err != nil {
		return 0, err
	}
	defer e.close()
	return e.entropyBits(schemaJSON)
}

// newEntropyBitsFunction lets a plugin measure a candidate schema.
// WASM signature: (param i64) (result i64) - schema offset -> bits, 0 on error
func newEntropyBitsFunction() extism.HostFunction {
	fn := extism.NewHostFunctionWithStack(
		"passacre_entropy_bits",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			data, err := p.ReadBytes(stack[0])
			if err != nil {
				stack[0] = 0
				p.Log(extism.LogLevelError, fmt.Sprintf("passacre_entropy_bits: failed to read schema: %v", err))
				return
			}
			bits, err := entropyBits(data)
			if err != nil {
				stack[0] = 0
				p.Log(extism.LogLevelError, fmt.Sprintf("passacre_entropy_bits: %v", err))
				return
			}
			stack[0] = bits
		},
		[]extism.ValueType{extism.ValueTypeI64},
		[]extism.ValueType{extism.ValueTypeI64},
	)
	fn.SetNamespace("env")
	return fn
}

// DeriveRequest is the input of the passacre_derive host function. The
// plugin supplies every secret itself; the host holds none.
type DeriveRequest struct {
	Username   string          `json:"username,omitempty"`
	Password   string          `json:"password"`
	Site       string          `json:"site"`
	Schema     json.RawMessage `json:"schema"`
	Method     string          `json:"method,omitempty"`
	Iterations uint64          `json:"iterations"`
}

// DeriveResponse is the output of passacre_derive.
type DeriveResponse struct {
	Password string `json:"password,omitempty"`
	Error    string `json:"error,omitempty"`
}

// deriveResponse answers one passacre_derive request. Failures, including
// recovered panics, are reported in Error.
func deriveResponse(data []byte, alloc boundary.AllocatorFunc) DeriveResponse {
	var req DeriveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return DeriveResponse{Error: fmt.Sprintf("invalid request: %v", err)}
	}
	e, err := newEngine(alloc)
	if err != nil {
		return DeriveResponse{Error: err.Error()}
	}
	defer e.close()
	pw, err := e.derive(req)
	if err != nil {
		return DeriveResponse{Error: err.Error()}
	}
	return DeriveResponse{Password: pw}
}

// newDeriveFunction runs a derivation for the plugin.
// WASM signature: (param i64) (result i64) - request offset -> response offset, 0 on error
func newDeriveFunction(alloc boundary.AllocatorFunc) extism.HostFunction {
	fn := extism.NewHostFunctionWithStack(
		"passacre_derive",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			data, err := p.ReadBytes(stack[0])
			if err != nil {
				stack[0] = 0
				p.Log(extism.LogLevelError, fmt.Sprintf("passacre_derive: failed to read request: %v", err))
				return
			}
			resp := deriveResponse(data, alloc)
			if resp.Error != "" {
				p.Log(extism.LogLevelWarn, fmt.Sprintf("passacre_derive: %s", resp.Error))
			}
			out, err := json.Marshal(resp)
			if err != nil {
				stack[0] = 0
				p.Log(extism.LogLevelError, fmt.Sprintf("passacre_derive: failed to marshal JSON: %v", err))
				return
			}
			offset, err := p.WriteBytes(out)
			crypto.Zeroize(out)
			if err != nil {
				stack[0] = 0
				p.Log(extism.LogLevelError, fmt.Sprintf("passacre_derive: failed to write response: %v", err))
				return
			}
			stack[0] = offset
		},
		[]extism.ValueType{extism.ValueTypeI64},
		[]extism.ValueType{extism.ValueTypeI64},
	)
	fn.SetNamespace("env")
	return fn
}
