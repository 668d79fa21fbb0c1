package registry

import (
	"sort"
)

// Document is the on-disk shape of a registry: a single mapping from
// profile id to profile record under a "servers" key, mirroring the
// import format of PostgreSQL administration tools.
type Document struct {
	Servers map[string]Profile `yaml:"servers" json:"servers"`
}

// Registry is an immutable, validated set of connection profiles. It is
// built once by Load and only read afterwards; any session-level mutation
// belongs to the consuming tool, not here.
type Registry struct {
	profiles map[string]Profile
	ids      []string
}

// newRegistry builds a Registry from validated profiles, fixing iteration
// order by sorted id so every export and listing is deterministic.
func newRegistry(profiles map[string]Profile) *Registry {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &Registry{profiles: profiles, ids: ids}
}

// Get returns the profile registered under id.
func (r *Registry) Get(id string) (Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// IDs returns the profile ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Profiles returns all profiles in id order.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.profiles[id])
	}
	return out
}

// Export rebuilds the registry document. Secrets resolved from the
// environment never re-enter the document, only the password_env reference
// does; with redact set, literal secrets are also dropped from profiles
// that did not opt into persistence.
func (r *Registry) Export(redact bool) Document {
	servers := make(map[string]Profile, len(r.profiles))
	for id, p := range r.profiles {
		if p.PasswordEnv != "" {
			p.Password = ""
		}
		if redact {
			p = p.Redacted()
		}
		servers[id] = p
	}
	return Document{Servers: servers}
}
