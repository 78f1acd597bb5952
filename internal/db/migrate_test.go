package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrationsSeedCatalog(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/0001_create_products.up.sql")
	require.NoError(t, err)

	sql := string(raw)
	for _, id := range []string{"'p1'", "'p2'", "'p3'", "'p4'"} {
		assert.Contains(t, sql, id)
	}
	assert.Contains(t, sql, "CHECK (quantity >= 0)")
}
