//go:build integration

package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joncooperworks/passacre/config"
	"github.com/joncooperworks/passacre/crypto/keystore"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/plugin"
)

// schemaFileLoader serves the file contents as the plugin's schema.
type schemaFileLoader struct{}

func (schemaFileLoader) Load(ctx context.Context, data []byte, name string) (plugin.Plugin, error) {
	return plugin.NewMockPlugin(name, "schema file", append([]byte(nil), data...)), nil
}

func TestExecuteDerivation_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// Import the YAML configuration into SQLite and load it back.
	dbPath := filepath.Join(dir, "passacre.sqlite")
	if err := config.ImportYAMLToSQLite(ctx, filepath.Join("..", "testdata", "keccak.yaml"), dbPath); err != nil {
		t.Fatalf("ImportYAMLToSQLite() error = %v", err)
	}
	cfg, err := config.Load(dbPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	words, err := filepath.Abs(filepath.Join("..", "testdata", "words.txt"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.WordsFile = words

	// A site whose schema comes from a plugin in the plugin directory.
	plugin.RegisterLoader("schemafile", func() (plugin.Loader, error) { return schemaFileLoader{}, nil })
	pluginDir := filepath.Join(dir, "plugins")
	if err := os.MkdirAll(pluginDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "alnum8.schemafile"), []byte(`[[8, "alphanumeric"]]`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.SetSite("schwab.com", config.SiteConfig{SchemaPlugin: "alnum8"})

	ks, err := keystore.NewKeystoreFor("memory", keystore.Config{ServiceName: "passacre-test"})
	if err != nil {
		t.Fatalf("NewKeystoreFor() error = %v", err)
	}
	if err := keystore.Unlock(ks, "passacre"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	sitesPath := filepath.Join(dir, "sites.enc")
	req := &DeriveRequest{
		Config:       cfg,
		Site:         "schwab.com",
		Keystore:     ks,
		PluginDir:    pluginDir,
		SiteListPath: sitesPath,
	}
	res, err := ExecuteDerivation(ctx, req)
	if err != nil {
		t.Fatalf("ExecuteDerivation() error = %v", err)
	}
	if res.Password != "jRWs2Wzl" || res.SchemaSource != "alnum8" {
		t.Errorf("result = %q from %q, want jRWs2Wzl from alnum8", res.Password, res.SchemaSource)
	}

	res, err = ExecuteDerivation(ctx, &DeriveRequest{Config: cfg, Site: "hashed.example.com", Keystore: ks, SiteListPath: sitesPath})
	if err != nil {
		t.Fatalf("ExecuteDerivation(hashed) error = %v", err)
	}
	if res.Password != "beer bear" {
		t.Errorf("hashed password = %q, want beer bear", res.Password)
	}

	list, err := OpenSiteList(cfg, "passacre", sitesPath)
	if err != nil {
		t.Fatalf("OpenSiteList() error = %v", err)
	}
	if !list.Contains("schwab.com") || !list.Contains("hashed.example.com") {
		t.Errorf("Sites() = %v, want both derived sites", list.Sites())
	}

	entropies, err := SiteEntropies(ctx, cfg, pluginDir)
	if err != nil {
		t.Fatalf("SiteEntropies() error = %v", err)
	}
	if len(entropies) != len(cfg.SiteNames()) {
		t.Errorf("SiteEntropies() returned %d sites, want %d", len(entropies), len(cfg.SiteNames()))
	}
	for _, e := range entropies {
		if e.Key == "schwab.com" && (e.Bits != 48 || e.SchemaSource != "alnum8") {
			t.Errorf("schwab.com entropy = %+v, want 48 bits from alnum8", e)
		}
	}

	// Without a plugin directory the plugin site cannot resolve.
	req.PluginDir = ""
	if _, err := ExecuteDerivation(ctx, req); errs.KindOf(err) != errs.User {
		t.Errorf("ExecuteDerivation() without plugin dir error = %v, want user error", err)
	}
}
