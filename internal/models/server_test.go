package models

import (
	"encoding/json"
	"testing"

	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromProfile(t *testing.T) {
	p := registry.Profile{
		ID:             "1",
		Name:           "nba-stats-db",
		GroupName:      "Servers",
		Host:           "postgres",
		Port:           5432,
		MaintenanceDB:  "postgres",
		Username:       "postgres",
		Password:       "hunter2",
		SSLMode:        "prefer",
		ConnectTimeout: 10,
		SavePassword:   true,
	}

	entry := FromProfile(p)
	assert.Equal(t, "nba-stats-db", entry.Name)
	assert.Equal(t, "Servers", entry.Group)
	assert.Equal(t, "hunter2", entry.Password)

	p.SavePassword = false
	entry = FromProfile(p)
	assert.Empty(t, entry.Password)
	assert.False(t, entry.SavePassword)
}

// A secret resolved from the environment is never served, even when the
// profile opted into persistence
func TestFromProfileEnvSecretNeverServed(t *testing.T) {
	p := registry.Profile{
		Name:           "nba-stats-db",
		GroupName:      "Servers",
		Host:           "postgres",
		Port:           5432,
		MaintenanceDB:  "postgres",
		Username:       "postgres",
		Password:       "resolved-from-env",
		PasswordEnv:    "NBA_DB_PASSWORD",
		SSLMode:        "prefer",
		ConnectTimeout: 10,
		SavePassword:   true,
	}

	entry := FromProfile(p)
	assert.Empty(t, entry.Password)
}

// The wire form uses the capitalized keys admin tools expect in
// their import documents
func TestServerEntryJSONKeys(t *testing.T) {
	entry := ServerEntry{
		Name:           "nba-stats-db",
		Group:          "Servers",
		Host:           "postgres",
		Port:           5432,
		MaintenanceDB:  "postgres",
		Username:       "postgres",
		SSLMode:        "prefer",
		ConnectTimeout: 10,
	}

	out, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &raw))
	for _, key := range []string{"Name", "Group", "Host", "Port", "MaintenanceDB", "Username", "SSLMode", "ConnectTimeout", "SavePassword"} {
		assert.Contains(t, raw, key)
	}
	// no password was set, so the key is omitted entirely
	assert.NotContains(t, raw, "Password")
}

func TestBuildImportDocument(t *testing.T) {
	doc := `
servers:
  "1":
    name: nba-stats-db
    group_name: Servers
    host: postgres
    port: 5432
    maintenance_db: postgres
    username: postgres
    ssl_mode: prefer
    connect_timeout: 10
`
	reg, err := registry.Parse([]byte(doc))
	require.NoError(t, err)

	imported := BuildImportDocument(reg)
	require.Len(t, imported.Servers, 1)
	assert.Equal(t, "nba-stats-db", imported.Servers["1"].Name)
}
