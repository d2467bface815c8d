package evaluator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zeusync/telemetry/internal/core/datasource"
)

var ErrComplexPrefix = errors.New("complex variable name needs a CUSTOM_, MAPPED_, MATH_ or SELECT_ prefix")

// ComplexPrefixes are the name prefixes reserved for complex variables.
var ComplexPrefixes = []string{"CUSTOM_", "MAPPED_", "MATH_", "SELECT_"}

// Catalog holds the session-wide definitions the builtin table consults at
// resolve time: complex variables, loaded module names and resource names.
type Catalog struct {
	complex   map[string]Complex
	modules   map[string]struct{}
	resources []string
}

func NewCatalog() *Catalog {
	return &Catalog{
		complex: make(map[string]Complex),
		modules: make(map[string]struct{}),
	}
}

func (c *Catalog) RegisterComplex(name string, v Complex) error {
	for _, p := range ComplexPrefixes {
		if strings.HasPrefix(name, p) && len(name) > len(p) {
			c.complex[name] = v
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrComplexPrefix, name)
}

func (c *Catalog) Complex(name string) (Complex, bool) {
	v, ok := c.complex[name]
	return v, ok
}

func (c *Catalog) RegisterModules(names ...string) {
	for _, n := range names {
		c.modules[n] = struct{}{}
	}
}

func (c *Catalog) Loaded(module string) bool {
	_, ok := c.modules[module]
	return ok
}

// RegisterResources records resource names in their variable form
// ("LIQUID-FUEL"). Names are kept longest first so that a resource whose
// name prefixes another never shadows it.
func (c *Catalog) RegisterResources(names ...string) {
	seen := make(map[string]struct{}, len(c.resources))
	for _, r := range c.resources {
		seen[r] = struct{}{}
	}
	for _, n := range names {
		v := datasource.ResourceVarName(n)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		c.resources = append(c.resources, v)
	}
	sort.SliceStable(c.resources, func(i, j int) bool {
		if len(c.resources[i]) != len(c.resources[j]) {
			return len(c.resources[i]) > len(c.resources[j])
		}
		return c.resources[i] < c.resources[j]
	})
}

// MatchResource splits "LIQUID-FUELPERCENT" into the resource and the
// remaining selector.
func (c *Catalog) MatchResource(arg string) (resource string, selector string, ok bool) {
	for _, r := range c.resources {
		if strings.HasPrefix(arg, r) {
			return r, arg[len(r):], true
		}
	}
	return "", "", false
}

// Reset drops every definition; used at session end.
func (c *Catalog) Reset() {
	c.complex = make(map[string]Complex)
	c.modules = make(map[string]struct{})
	c.resources = nil
}
