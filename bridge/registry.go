package bridge

import (
	"sort"
	"strings"

	"github.com/chazu/pmnative/value"
)

// Adapter implements a native once its arguments have been validated
type Adapter func(c *Call) (value.Value, error)

// Native is one registry entry
type Native struct {
	Name string
	Sig  Signature
	Impl Adapter
	Doc  string
}

// Module returns the part of the name before the first dot ("sys" for
// "sys.clock").
func (n *Native) Module() string {
	if i := strings.IndexByte(n.Name, '.'); i >= 0 {
		return n.Name[:i]
	}
	return n.Name
}

// Registry maps native names to their signature and adapter
type Registry struct {
	natives map[string]*Native
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{natives: make(map[string]*Native)}
}

// Add registers a native, replacing any previous entry with that name
func (r *Registry) Add(name string, sig Signature, impl Adapter, doc string) {
	r.natives[name] = &Native{
		Name: name,
		Sig:  sig,
		Impl: impl,
		Doc:  doc,
	}
}

// Lookup finds a native by name
func (r *Registry) Lookup(name string) *Native {
	if r == nil {
		return nil
	}
	return r.natives[name]
}

// Remove deletes a native
func (r *Registry) Remove(name string) {
	delete(r.natives, name)
}

// Filter removes every native for which keep returns false
func (r *Registry) Filter(keep func(n *Native) bool) {
	for name, n := range r.natives {
		if !keep(n) {
			r.Remove(name)
		}
	}
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.natives))
	for name := range r.natives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered natives
func (r *Registry) Len() int {
	return len(r.natives)
}

// DefaultRegistry returns a registry holding every standard native
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerMemoryNatives(r)
	registerCPUNatives(r)
	registerSysNatives(r)
	return r
}
