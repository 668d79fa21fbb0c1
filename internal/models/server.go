package models

import (
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
)

// ServerEntry is the wire form of one connection profile, shaped like the
// import documents admin tools exchange (pgAdmin "Servers" JSON)
type ServerEntry struct {
	Name           string `json:"Name"`
	Group          string `json:"Group"`
	Host           string `json:"Host"`
	Port           int    `json:"Port"`
	MaintenanceDB  string `json:"MaintenanceDB"`
	Username       string `json:"Username"`
	Password       string `json:"Password,omitempty"`
	SSLMode        string `json:"SSLMode"`
	ConnectTimeout int    `json:"ConnectTimeout"`
	SavePassword   bool   `json:"SavePassword"`
}

// ImportDocument is the top-level structure served for bulk import
type ImportDocument struct {
	Servers map[string]ServerEntry `json:"Servers"`
}

// FromProfile converts an internal profile to its wire form.
// Secrets are included only when the profile opts into persistence;
// secrets resolved from the environment are never served.
func FromProfile(p registry.Profile) ServerEntry {
	entry := ServerEntry{
		Name:           p.Name,
		Group:          p.GroupName,
		Host:           p.Host,
		Port:           p.Port,
		MaintenanceDB:  p.MaintenanceDB,
		Username:       p.Username,
		SSLMode:        p.SSLMode,
		ConnectTimeout: p.ConnectTimeout,
		SavePassword:   p.SavePassword,
	}
	if p.SavePassword && p.PasswordEnv == "" {
		entry.Password = p.Password
	}
	return entry
}

// ProfileSource is the read surface BuildImportDocument needs. Both the
// registry and the application node's provider satisfy it.
type ProfileSource interface {
	Get(id string) (registry.Profile, bool)
	IDs() []string
}

// BuildImportDocument converts every profile in the source to wire form
func BuildImportDocument(src ProfileSource) ImportDocument {
	ids := src.IDs()
	doc := ImportDocument{Servers: make(map[string]ServerEntry, len(ids))}
	for _, id := range ids {
		if p, ok := src.Get(id); ok {
			doc.Servers[id] = FromProfile(p)
		}
	}
	return doc
}

// ProbeReport is the wire form of one reachability check result
type ProbeReport struct {
	ProfileID     string    `json:"profile_id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Status        string    `json:"status"`
	ServerVersion string    `json:"server_version,omitempty"`
	Database      string    `json:"database,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	Attempts      int       `json:"attempts"`
	Error         string    `json:"error,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}
