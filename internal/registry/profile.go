package registry

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/codecurrent-sandbox/pgregistry/internal/constants"
)

// Profile describes how to reach and authenticate to one PostgreSQL server.
// It is pure declarative data: nothing in this package opens a connection.
type Profile struct {
	// ID is the profile's key in the registry document. It is filled in
	// during load and never serialized inside the record itself.
	ID string `yaml:"-" json:"-"`

	Name          string `yaml:"name"           json:"name"           validate:"required,min=1,max=128"`
	GroupName     string `yaml:"group_name"     json:"group_name"     validate:"required,min=1,max=128"`
	Host          string `yaml:"host"           json:"host"           validate:"required,host"`
	Port          int    `yaml:"port"           json:"port"           validate:"required,min=1,max=65535"`
	MaintenanceDB string `yaml:"maintenance_db" json:"maintenance_db" validate:"required"`
	Username      string `yaml:"username"       json:"username"       validate:"required"`

	// Password is the literal secret. Permitted only when SavePassword is
	// set; prefer PasswordEnv so the secret never lives in the document.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// PasswordEnv names an environment variable resolved at load time.
	PasswordEnv string `yaml:"password_env,omitempty" json:"password_env,omitempty"`

	SSLMode        string `yaml:"ssl_mode"        json:"ssl_mode"        validate:"required,sslmode"`
	ConnectTimeout int    `yaml:"connect_timeout" json:"connect_timeout" validate:"required,min=1"`
	SavePassword   bool   `yaml:"save_password"   json:"save_password"`
}

// Redacted returns a copy safe for serving to consumers: the secret is
// dropped unless the profile opted into persistence with save_password.
func (p Profile) Redacted() Profile {
	if !p.SavePassword {
		p.Password = ""
	}
	return p
}

// Address returns the host:port endpoint of the target server.
func (p Profile) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ConnString assembles a postgres connection URI for the profile, targeting
// the maintenance database.
func (p Profile) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   p.Address(),
		Path:   "/" + p.MaintenanceDB,
	}

	if p.Username != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.Username, p.Password)
		} else {
			u.User = url.User(p.Username)
		}
	}

	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	if p.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(p.ConnectTimeout))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// String renders the profile for logs without exposing the secret.
func (p Profile) String() string {
	return fmt.Sprintf("%s (%s@%s/%s, sslmode=%s)", p.Name, p.Username, p.Address(), p.MaintenanceDB, p.SSLMode)
}

// ValidSSLMode reports whether mode is one of the recognized TLS policies.
func ValidSSLMode(mode string) bool {
	for _, m := range constants.RecognizedSSLModes {
		if mode == m {
			return true
		}
	}
	return false
}
