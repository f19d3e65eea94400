// Package groups loads named channel groups from a JSON or YAML document.
//
// The document maps a group name to either a list of channel tokens or an
// object with an optional description and a channels list:
//
//	{
//	  "default":   ["#general", "#team-updates", "C1234567890"],
//	  "customers": {"description": "Customer rooms", "channels": ["#cust-a"]}
//	}
//
// Names are unique case-insensitively. Anything malformed fails the whole
// load; there is no partial result.
package groups

import (
	"sort"
	"strings"
)

// Group is one named set of channel tokens.
type Group struct {
	// Name is the name as written in the file.
	Name        string
	Description string
	Channels    []string
}

// Key returns the case-folded lookup key.
func (g Group) Key() string {
	return normalize(g.Name)
}

// Store holds the loaded groups. It is immutable after Load.
type Store struct {
	path   string
	groups map[string]Group
	keys   []string
}

// NewStore builds a store from already-validated groups. Later duplicates
// (case-insensitive) are rejected.
func NewStore(path string, groups ...Group) (*Store, error) {
	s := &Store{
		path:   path,
		groups: make(map[string]Group, len(groups)),
	}
	for _, g := range groups {
		key := g.Key()
		if key == "" {
			return nil, &ConfigError{Path: path, Problem: "group name must not be empty"}
		}
		if existing, ok := s.groups[key]; ok {
			return nil, &ConfigError{
				Path:    path,
				Problem: "duplicate group " + quote(g.Name) + " (conflicts with " + quote(existing.Name) + ")",
			}
		}
		g.Channels = append([]string(nil), g.Channels...)
		s.groups[key] = g
		s.keys = append(s.keys, key)
	}
	sort.Strings(s.keys)
	return s, nil
}

// Empty returns a store with no groups.
func Empty() *Store {
	return &Store{groups: map[string]Group{}}
}

// Lookup finds a group by name, ignoring case and surrounding whitespace.
func (s *Store) Lookup(name string) (Group, bool) {
	if s == nil {
		return Group{}, false
	}
	g, ok := s.groups[normalize(name)]
	if !ok {
		return Group{}, false
	}
	g.Channels = append([]string(nil), g.Channels...)
	return g, true
}

// Has reports whether name refers to a group.
func (s *Store) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.groups[normalize(name)]
	return ok
}

// List returns every group ordered by case-folded name.
func (s *Store) List() []Group {
	if s == nil {
		return nil
	}
	out := make([]Group, 0, len(s.keys))
	for _, key := range s.keys {
		g := s.groups[key]
		g.Channels = append([]string(nil), g.Channels...)
		out = append(out, g)
	}
	return out
}

// Len returns the number of groups.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.groups)
}

// Path returns the file the store was loaded from, if any.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func quote(s string) string {
	return `"` + s + `"`
}
