package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNUsesUTCAndParseTime(t *testing.T) {
	dsn := DSN("railway", "pw", "db", "3306", "railway")

	assert.True(t, strings.HasPrefix(dsn, "railway:pw@tcp(db:3306)/railway?"))
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestTicketsMigrationDeclaresSeatUniqueness(t *testing.T) {
	b, err := fs.ReadFile(migrationFS, "migrations/000011_create_tickets.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "UNIQUE KEY uq_tickets_journey_cargo_seat (journey_id, cargo, seat)")
}
