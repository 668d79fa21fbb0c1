package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const multiDoc = `
servers:
  "beta":
    name: beta-db
    group_name: Servers
    host: beta.example.com
    port: 5432
    maintenance_db: postgres
    username: beta
    ssl_mode: require
    connect_timeout: 5
  "alpha":
    name: alpha-db
    group_name: Servers
    host: alpha.example.com
    port: 5433
    maintenance_db: postgres
    username: alpha
    password: alpha-secret
    ssl_mode: prefer
    connect_timeout: 10
    save_password: true
`

func TestRegistryIterationOrder(t *testing.T) {
	reg, err := Parse([]byte(multiDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, reg.IDs())

	profiles := reg.Profiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, "alpha-db", profiles[0].Name)
	assert.Equal(t, "beta-db", profiles[1].Name)
}

func TestRegistryGetUnknownID(t *testing.T) {
	reg, err := Parse([]byte(multiDoc))
	require.NoError(t, err)

	_, ok := reg.Get("gamma")
	assert.False(t, ok)
}

// Exporting a registry and parsing the result yields the same profiles
func TestRegistryExportRoundTrip(t *testing.T) {
	reg, err := Parse([]byte(multiDoc))
	require.NoError(t, err)

	out, err := yaml.Marshal(reg.Export(false))
	require.NoError(t, err)

	reg2, err := Parse([]byte(out))
	require.NoError(t, err)

	assert.Equal(t, reg.IDs(), reg2.IDs())
	for _, id := range reg.IDs() {
		want, _ := reg.Get(id)
		got, _ := reg2.Get(id)
		assert.Equal(t, want, got)
	}
}

// An env-sourced secret is resolved in memory but must never re-enter the
// document: exporting keeps only the password_env reference, and the
// exported document parses cleanly again
func TestRegistryExportRoundTripPasswordEnv(t *testing.T) {
	t.Setenv("GAMMA_DB_PASSWORD", "s3cret")

	doc := `
servers:
  "gamma":
    name: gamma-db
    group_name: Servers
    host: gamma.example.com
    port: 5432
    maintenance_db: postgres
    username: gamma
    password_env: GAMMA_DB_PASSWORD
    ssl_mode: require
    connect_timeout: 5
`
	reg, err := Parse([]byte(doc))
	require.NoError(t, err)

	out, err := yaml.Marshal(reg.Export(false))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "s3cret")
	assert.Contains(t, string(out), "password_env: GAMMA_DB_PASSWORD")

	reg2, err := Parse([]byte(out))
	require.NoError(t, err)

	p, ok := reg2.Get("gamma")
	require.True(t, ok)
	assert.Equal(t, "s3cret", p.Password)
	assert.Equal(t, "GAMMA_DB_PASSWORD", p.PasswordEnv)
}

func TestRegistryExportRedacted(t *testing.T) {
	reg, err := Parse([]byte(multiDoc))
	require.NoError(t, err)

	doc := reg.Export(true)
	// alpha saved its password, beta has none either way
	assert.Equal(t, "alpha-secret", doc.Servers["alpha"].Password)
	assert.Empty(t, doc.Servers["beta"].Password)
}
