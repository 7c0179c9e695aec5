// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	"github.com/zatekoja/serviceportal/pkg/config"
)

// NewSQLiteClient opens a migrated SQLite database in a temporary directory.
// The database is closed when the test finishes.
func NewSQLiteClient(t *testing.T) *sqldb.Client {
	t.Helper()

	client, err := sqldb.NewClient(&config.DatabaseConfig{URL: "sqlite://" + filepath.Join(t.TempDir(), "portal.db")})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	_, err = migrations.New(client).Apply(context.Background())
	require.NoError(t, err)
	return client
}
