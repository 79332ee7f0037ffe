// Package sqlconfig loads configuration from a key/value table.
//
//	src := &sqlconfig.Source{DSN: "file:settings.db", Table: "settings"}
//
// Values are read once per Load. Set only changes the in-memory copy; the
// table is never written, so decrypted values stay out of the database.
package sqlconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/zoobzio/protected/configuration"
)

// Defaults for Source.
const (
	DefaultDriver      = "sqlite"
	DefaultTable       = "settings"
	DefaultKeyColumn   = "key"
	DefaultValueColumn = "value"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Source reads configuration rows from Table. Either DB or DSN must be
// set; DSN is opened with Driver.
type Source struct {
	DB          *sql.DB
	Driver      string
	DSN         string
	Table       string
	KeyColumn   string
	ValueColumn string

	// Reloadable exposes a reload token; call Reload on the provider to
	// re-read the table and notify subscribers.
	Reloadable bool
}

// Provider is a configuration provider backed by a table.
type Provider struct {
	*configuration.DataProvider
	db    *sql.DB
	owned bool
	query string
}

// Build validates the table and column names and returns a provider.
func (s *Source) Build(configuration.Builder) (configuration.Provider, error) {
	table := orDefault(s.Table, DefaultTable)
	keyCol := orDefault(s.KeyColumn, DefaultKeyColumn)
	valueCol := orDefault(s.ValueColumn, DefaultValueColumn)
	for _, name := range []string{table, keyCol, valueCol} {
		if !identifier.MatchString(name) {
			return nil, fmt.Errorf("sqlconfig: invalid identifier %q", name)
		}
	}

	db, owned := s.DB, false
	if db == nil {
		if s.DSN == "" {
			return nil, errors.New("sqlconfig: DB or DSN required")
		}
		var err error
		db, err = sql.Open(orDefault(s.Driver, DefaultDriver), s.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlconfig: open: %w", err)
		}
		owned = true
	}

	p := &Provider{
		db:    db,
		owned: owned,
		query: fmt.Sprintf(`SELECT "%s", "%s" FROM "%s"`, keyCol, valueCol, table), // #nosec G201 -- identifiers validated above
	}
	var opts []configuration.ProviderOption
	if s.Reloadable {
		opts = append(opts, configuration.WithReload())
	}
	p.DataProvider = configuration.NewDataProvider(p.read, opts...)
	return p, nil
}

func (p *Provider) read() (map[string]string, error) {
	rows, err := p.db.QueryContext(context.Background(), p.query)
	if err != nil {
		return nil, fmt.Errorf("sqlconfig: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("sqlconfig: scan: %w", err)
		}
		out[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlconfig: rows: %w", err)
	}
	return out, nil
}

// Close closes the database when the provider opened it.
func (p *Provider) Close() error {
	if p.owned {
		return p.db.Close()
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
