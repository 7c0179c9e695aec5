package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/pkg/config"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func countServices(t *testing.T, dbURL string) int {
	t.Helper()
	client, err := sqldb.NewClient(&config.DatabaseConfig{URL: dbURL})
	require.NoError(t, err)
	defer client.Close()

	n, err := database.NewServiceAdapter(client).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestMigrate(t *testing.T) {
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "portal.db")

	out, err := runCmd(t, "migrate", "--database-url", dbURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Database is up to date.")
	assert.Equal(t, 9, countServices(t, dbURL))

	_, err = runCmd(t, "migrate", "--database-url", dbURL)
	require.NoError(t, err)
	assert.Equal(t, 9, countServices(t, dbURL))
}

func TestReset_RequiresConfirmation(t *testing.T) {
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "portal.db")

	_, err := runCmd(t, "reset", "--database-url", dbURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := runCmd(t, "reset", "--yes", "--database-url", dbURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Database reset and reseeded.")
	assert.Equal(t, 9, countServices(t, dbURL))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	dbURL := "sqlite://" + filepath.Join(dir, "portal.db")
	_, err := runCmd(t, "migrate", "--database-url", dbURL)
	require.NoError(t, err)

	client, err := sqldb.NewClient(&config.DatabaseConfig{URL: dbURL})
	require.NoError(t, err)
	err = database.NewServiceRequestAdapter(client).Create(context.Background(), &entities.ServiceRequest{
		ServiceID:     1,
		CustomerName:  "Ann, Jr.",
		CustomerEmail: "ann@example.com",
		CustomerPhone: "555-0100",
		Address:       "1 Main St",
		Urgency:       "high",
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	path := filepath.Join(dir, "export.csv")
	out, err := runCmd(t, "export", "--database-url", dbURL, "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 service requests to "+path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "Ann, Jr.", records[1][2])
	assert.Equal(t, "high", records[1][7])
}
