// Package migrations applies the portal's schema as an ordered list of versioned
// steps. Every step is also idempotent on its own so that databases created before
// version tracking existed are upgraded in place.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
)

// Table names shared with the repository adapters
const (
	TableService        = "service"
	TableServiceRequest = "service_request"
	TableUser           = "user"
	TableClientResponse = "client_response"
	TableVersions       = "schema_migrations"
)

// Step is one versioned schema change
type Step struct {
	Version int
	Name    string
	Up      func(ctx context.Context, m *Migrator, tx *sql.Tx) error
}

// Steps is the ordered schema history
var Steps = []Step{
	{Version: 1, Name: "create_tables", Up: createTables},
	{Version: 2, Name: "add_user_role", Up: addColumnIfMissing(TableUser, "role", "VARCHAR(20) NOT NULL DEFAULT 'user'")},
	{Version: 3, Name: "add_user_service_type", Up: addColumnIfMissing(TableUser, "service_type", "VARCHAR(100)")},
}

// Migrator applies Steps against a database
type Migrator struct {
	client *sqldb.Client
	steps  []Step
}

// New creates a migrator for the default schema history
func New(client *sqldb.Client) *Migrator {
	return &Migrator{client: client, steps: Steps}
}

// Apply runs every step whose version has not been recorded yet. Each step and its
// version record commit in the same transaction. It returns the versions applied.
func (m *Migrator) Apply(ctx context.Context) ([]int, error) {
	if _, err := m.client.DB().ExecContext(ctx, m.versionsDDL()); err != nil {
		return nil, fmt.Errorf("creating %s table: %w", TableVersions, err)
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var ran []int
	for _, step := range m.steps {
		if applied[step.Version] {
			continue
		}

		err := m.client.WithTx(ctx, func(tx *sql.Tx) error {
			if err := step.Up(ctx, m, tx); err != nil {
				return err
			}
			query, args, err := m.client.Dialect().
				Insert(TableVersions).
				Rows(goqu.Record{"version": step.Version, "name": step.Name, "applied_at": time.Now().UTC()}).
				Prepared(true).
				ToSQL()
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, query, args...)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
		}

		log.Info().Int("version", step.Version).Str("name", step.Name).Msg("Applied migration")
		ran = append(ran, step.Version)
	}

	return ran, nil
}

// AppliedVersions returns the set of recorded migration versions
func (m *Migrator) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.client.DB().QueryContext(ctx, "SELECT version FROM "+TableVersions)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Reset drops every portal table, including the version history
func (m *Migrator) Reset(ctx context.Context) error {
	cascade := ""
	if m.client.IsPostgres() {
		cascade = " CASCADE"
	}

	tables := []string{TableClientResponse, TableServiceRequest, TableUser, TableService, TableVersions}
	for _, table := range tables {
		if _, err := m.client.DB().ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q%s", table, cascade)); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return nil
}

// ColumnExists reports whether table has a column with the given name
func (m *Migrator) ColumnExists(ctx context.Context, exec sqldb.Executor, table, column string) (bool, error) {
	query := "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	if m.client.IsPostgres() {
		query = "SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2"
	}

	var n int
	if err := exec.QueryRowContext(ctx, query, table, column).Scan(&n); err != nil {
		return false, fmt.Errorf("inspecting %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

func (m *Migrator) versionsDDL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		applied_at %s NOT NULL
	)`, TableVersions, m.timestampType())
}

func (m *Migrator) timestampType() string {
	if m.client.IsPostgres() {
		return "TIMESTAMP"
	}
	return "DATETIME"
}

func (m *Migrator) serialPK() string {
	if m.client.IsPostgres() {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// createTables creates the four portal tables. The user table is created with its
// original columns only; later steps add role and service_type.
func createTables(ctx context.Context, m *Migrator, tx *sql.Tx) error {
	pk, ts := m.serialPK(), m.timestampType()
	falseLit := "0"
	if m.client.IsPostgres() {
		falseLit = "FALSE"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id %s,
			name VARCHAR(100) NOT NULL,
			description TEXT
		)`, TableService, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id %s,
			service_id INTEGER NOT NULL REFERENCES %q (id),
			customer_name VARCHAR(100) NOT NULL,
			customer_email VARCHAR(100) NOT NULL,
			customer_phone VARCHAR(20) NOT NULL,
			address VARCHAR(200) NOT NULL,
			description TEXT,
			urgency VARCHAR(20),
			created_at %s
		)`, TableServiceRequest, pk, TableService, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id %s,
			username VARCHAR(80) NOT NULL UNIQUE,
			email VARCHAR(120) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL
		)`, TableUser, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id %s,
			request_id INTEGER NOT NULL REFERENCES %q (id),
			client_id INTEGER NOT NULL REFERENCES %q (id),
			message TEXT,
			accepted BOOLEAN NOT NULL DEFAULT %s,
			responded_at %s
		)`, TableClientResponse, pk, TableServiceRequest, TableUser, falseLit, ts),
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(table, column, definition string) func(context.Context, *Migrator, *sql.Tx) error {
	return func(ctx context.Context, m *Migrator, tx *sql.Tx) error {
		exists, err := m.ColumnExists(ctx, tx, table, column)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %q ADD COLUMN %s %s", table, column, definition))
		if err == nil {
			log.Info().Str("table", table).Str("column", column).Msg("Added missing column")
		}
		return err
	}
}
