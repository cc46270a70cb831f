package rc

import (
	"fmt"
	"sort"
	"strings"
)

// Resolver looks commands up by name.
type Resolver interface {
	Resolve(name string) (*Descriptor, error)
	Names() []string
}

// UnknownCommandError is returned when a name is not in the catalog.
type UnknownCommandError struct {
	Name  string
	Known []string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("%s is not a known command. Known commands are: %s", e.Name, strings.Join(e.Known, ", "))
}

// Catalog is a fixed set of command descriptors.
type Catalog struct {
	byName map[string]*Descriptor
}

// NewCatalog builds a catalog. It panics on duplicate names.
func NewCatalog(descriptors ...*Descriptor) *Catalog {
	c := &Catalog{byName: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		key := canonicalName(d.Name)
		if _, exists := c.byName[key]; exists {
			panic(fmt.Sprintf("rc.NewCatalog: duplicate command %q", d.Name))
		}
		c.byName[key] = d
	}
	return c
}

// Resolve returns the descriptor for name. Dashes and underscores are
// interchangeable.
func (c *Catalog) Resolve(name string) (*Descriptor, error) {
	if d, ok := c.byName[canonicalName(name)]; ok {
		return d, nil
	}
	return nil, &UnknownCommandError{Name: name, Known: c.Names()}
}

// Names returns the command names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for _, d := range c.byName {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

func canonicalName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "_", "-")
}
