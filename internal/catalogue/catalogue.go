// Package catalogue maps named data groups to the home directory paths they
// cover and resolves the operator's selection against them.
package catalogue

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// PathSpec is a path eligible for mirroring. Source is expressed with the
// home directory shorthand ("~/..."); Target is the remote path and defaults
// to Source.
type PathSpec struct {
	Source string
	Target string
}

// RemoteTarget returns the path on the remote host
func (p PathSpec) RemoteTarget() string {
	if p.Target == "" {
		return p.Source
	}
	return p.Target
}

// Local returns the absolute local path for the specifier
func (p PathSpec) Local() (string, error) {
	return ExpandHome(p.Source)
}

// ExpandHome expands a leading "~" to the local home directory and cleans the
// result. Expanding an already expanded path returns it unchanged.
func ExpandHome(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	return filepath.Clean(expanded), nil
}

// Group is a named, ordered list of paths
type Group struct {
	Name  string
	Paths []PathSpec
}

// Catalogue is an ordered, immutable set of groups.
type Catalogue struct {
	groups []Group
	index  map[string]int
}

// New builds a catalogue from groups, keeping their order. Group names must
// be non-empty and unique.
func New(groups []Group) (*Catalogue, error) {
	c := &Catalogue{
		groups: make([]Group, 0, len(groups)),
		index:  make(map[string]int, len(groups)),
	}

	for _, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group name must not be empty")
		}
		if _, dup := c.index[g.Name]; dup {
			return nil, fmt.Errorf("duplicate group %q", g.Name)
		}
		if len(g.Paths) == 0 {
			return nil, fmt.Errorf("group %q has no paths", g.Name)
		}

		paths := make([]PathSpec, len(g.Paths))
		copy(paths, g.Paths)
		c.index[g.Name] = len(c.groups)
		c.groups = append(c.groups, Group{Name: g.Name, Paths: paths})
	}

	return c, nil
}

// DefaultGroups returns the built-in group definitions.
func DefaultGroups() []Group {
	return []Group{
		{Name: "homesick", Paths: []PathSpec{
			{Source: "~/.homesick/"},
		}},
		{Name: "accounts", Paths: []PathSpec{
			{Source: "~/.config/goa-1.0/accounts.conf"},
			{Source: "~/.config/evolution/sources/"},
		}},
		{Name: "keyrings", Paths: []PathSpec{
			{Source: "~/.local/share/keyrings/"},
		}},
		{Name: "fonts", Paths: []PathSpec{
			{Source: "~/.local/share/fonts/"},
		}},
	}
}

// Default returns the built-in catalogue
func Default() *Catalogue {
	c, err := New(DefaultGroups())
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns the group names in catalogue order
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.groups))
	for _, g := range c.groups {
		names = append(names, g.Name)
	}
	return names
}

// Groups returns a copy of the catalogue's groups
func (c *Catalogue) Groups() []Group {
	groups := make([]Group, 0, len(c.groups))
	for _, g := range c.groups {
		paths := make([]PathSpec, len(g.Paths))
		copy(paths, g.Paths)
		groups = append(groups, Group{Name: g.Name, Paths: paths})
	}
	return groups
}

// Lookup returns the group with the given name
func (c *Catalogue) Lookup(name string) (Group, bool) {
	i, ok := c.index[name]
	if !ok {
		return Group{}, false
	}
	return c.groups[i], true
}

// Paths flattens the named groups into one ordered list of path specifiers.
// A group named twice contributes its paths twice.
func (c *Catalogue) Paths(names []string) ([]PathSpec, error) {
	var paths []PathSpec
	for _, name := range names {
		g, ok := c.Lookup(name)
		if !ok {
			return nil, &InvalidSelectionError{Kind: "data group", Value: name, Allowed: c.Names()}
		}
		paths = append(paths, g.Paths...)
	}
	return paths, nil
}
