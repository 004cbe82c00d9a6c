package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_Ordered(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)

	assert.Equal(t, []string{"0001_jobs", "0002_results", "0003_patients"}, versions)
}

func TestMigrations_DefineCoreTables(t *testing.T) {
	tables := map[string]string{
		"0001_jobs":     "CREATE TABLE IF NOT EXISTS jobs",
		"0002_results":  "CREATE TABLE IF NOT EXISTS qa_interactions",
		"0003_patients": "CREATE TABLE IF NOT EXISTS patients",
	}
	for version, stmt := range tables {
		raw, err := migrationsFS.ReadFile("migrations/" + version + ".sql")
		require.NoError(t, err)
		assert.Contains(t, string(raw), stmt, version)
	}
}
