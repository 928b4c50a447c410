package config

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joncooperworks/passacre/errs"
)

// sqliteSchema creates the configuration tables. Values in config_values
// are JSON; a NULL site_name marks a global setting. Sites whose schema_id
// is NULL inherit the default schema.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schemata (
	schema_id INTEGER PRIMARY KEY,
	name TEXT,
	value TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS sites (
	site_name TEXT PRIMARY KEY,
	schema_id INTEGER REFERENCES schemata (schema_id)
);
CREATE TABLE IF NOT EXISTS config_values (
	site_name TEXT REFERENCES sites (site_name) ON DELETE CASCADE,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	UNIQUE (site_name, name)
);
`

const sqliteTimeout = 5 * time.Second

// OpenSQLite opens a configuration database, creating its tables if they
// do not exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d", path, sqliteTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// LoadSQLite reads the SQLite configuration at path.
func LoadSQLite(path string) (*Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, errs.Wrap(errs.User, "config.LoadSQLite", err)
	}
	defer db.Close()
	return ReadSQLite(ctx, db, filepath.Dir(path))
}

// ReadSQLite reads a configuration from an open database.
func ReadSQLite(ctx context.Context, db *sql.DB, baseDir string) (*Config, error) {
	global := map[string]json.RawMessage{}
	sites := map[string]map[string]json.RawMessage{}
	site := func(name string) map[string]json.RawMessage {
		if sites[name] == nil {
			sites[name] = map[string]json.RawMessage{}
		}
		return sites[name]
	}

	rows, err := db.QueryContext(ctx,
		`SELECT sites.site_name, schemata.value FROM sites LEFT JOIN schemata USING (schema_id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		s := site(name)
		if value.Valid {
			s["schema"] = json.RawMessage(value.String)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sites: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT site_name, name, value FROM config_values`)
	if err != nil {
		return nil, fmt.Errorf("failed to query config values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var siteName sql.NullString
		var name, value string
		if err := rows.Scan(&siteName, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config value: %w", err)
		}
		if siteName.Valid {
			site(siteName.String)[name] = json.RawMessage(value)
		} else {
			global[name] = json.RawMessage(value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config values: %w", err)
	}

	raw := map[string]any{"sites": sites}
	for k, v := range global {
		raw[k] = v
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble config: %w", err)
	}
	var doc document
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.User, "config.ReadSQLite", err)
	}
	return newConfig(doc, baseDir)
}

// WriteSQLite stores c in an open database, replacing its contents.
func WriteSQLite(ctx context.Context, db *sql.DB, c *Config) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM config_values`, `DELETE FROM sites`, `DELETE FROM schemata`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	doc := c.document()
	if doc.WordsFile != "" {
		if err = insertValue(ctx, tx, nil, "words-file", doc.WordsFile); err != nil {
			return err
		}
	}
	if doc.SiteHashing != nil {
		if err = insertValue(ctx, tx, nil, "site-hashing", doc.SiteHashing); err != nil {
			return err
		}
	}

	schemaIDs := map[string]int64{}
	for _, name := range c.SiteNames() {
		sc := c.Sites[name]
		var schemaID any
		if sc.Schema != nil {
			encoded, mErr := json.Marshal(sc.Schema)
			if mErr != nil {
				return fmt.Errorf("failed to encode schema of %s: %w", name, mErr)
			}
			id, ok := schemaIDs[string(encoded)]
			if !ok {
				res, eErr := tx.ExecContext(ctx, `INSERT INTO schemata (name, value) VALUES (?, ?)`,
					fmt.Sprintf("schema_%d", len(schemaIDs)), string(encoded))
				if eErr != nil {
					return fmt.Errorf("failed to insert schema: %w", eErr)
				}
				if id, err = res.LastInsertId(); err != nil {
					return fmt.Errorf("failed to insert schema: %w", err)
				}
				schemaIDs[string(encoded)] = id
			}
			schemaID = id
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO sites (site_name, schema_id) VALUES (?, ?)`, name, schemaID); err != nil {
			return fmt.Errorf("failed to insert site %s: %w", name, err)
		}

		sc.Schema = nil
		encoded, mErr := json.Marshal(sc)
		if mErr != nil {
			return fmt.Errorf("failed to encode site %s: %w", name, mErr)
		}
		var values map[string]json.RawMessage
		if err = json.Unmarshal(encoded, &values); err != nil {
			return fmt.Errorf("failed to encode site %s: %w", name, err)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			siteName := name
			if err = insertValue(ctx, tx, &siteName, k, values[k]); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit config: %w", err)
	}
	return nil
}

func insertValue(ctx context.Context, tx *sql.Tx, site *string, name string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	var siteName any
	if site != nil {
		siteName = *site
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO config_values (site_name, name, value) VALUES (?, ?, ?)`,
		siteName, name, string(encoded)); err != nil {
		return fmt.Errorf("failed to insert %s: %w", name, err)
	}
	return nil
}

// ImportYAMLToSQLite converts the YAML configuration at yamlPath into the
// SQLite database at sqlitePath.
func ImportYAMLToSQLite(ctx context.Context, yamlPath, sqlitePath string) error {
	c, err := LoadYAML(yamlPath)
	if err != nil {
		return err
	}
	db, err := OpenSQLite(ctx, sqlitePath)
	if err != nil {
		return errs.Wrap(errs.User, "config.ImportYAMLToSQLite", err)
	}
	defer db.Close()
	return WriteSQLite(ctx, db, c)
}
