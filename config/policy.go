package config

import (
	"fmt"
	"strings"

	"github.com/chazu/pmnative/bridge"
)

// Policy controls which natives a board exposes. A nil Allowed means
// "allow all". Entries name a native ("sram.write") or a whole module
// ("sys").
type Policy struct {
	Allowed map[string]bool // nil = allow all
	Denied  map[string]bool
}

// NewPermissivePolicy creates a policy that allows every native.
func NewPermissivePolicy() *Policy {
	return &Policy{}
}

// NewPolicy builds a policy from allow and deny lists. An empty allow
// list allows everything not denied.
func NewPolicy(allow, deny []string) *Policy {
	p := &Policy{}
	if len(allow) > 0 {
		p.Allowed = make(map[string]bool, len(allow))
		for _, a := range allow {
			p.Allowed[a] = true
		}
	}
	for _, d := range deny {
		p.Deny(d)
	}
	return p
}

// Policy returns the capability policy described by c
func (c *Config) Policy() *Policy {
	return NewPolicy(c.Capabilities.Allow, c.Capabilities.Deny)
}

func module(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Check returns an error if the native called name is not allowed.
func (p *Policy) Check(name string) error {
	mod := module(name)
	if p.Denied[name] || p.Denied[mod] {
		return fmt.Errorf("native %q is explicitly denied", name)
	}
	if p.Allowed != nil && !p.Allowed[name] && !p.Allowed[mod] {
		return fmt.Errorf("native %q is not allowed", name)
	}
	return nil
}

// Allows reports whether the native called name is allowed
func (p *Policy) Allows(name string) bool {
	return p.Check(name) == nil
}

// Deny adds a native or module to the deny list.
func (p *Policy) Deny(name string) {
	if p.Denied == nil {
		p.Denied = make(map[string]bool)
	}
	p.Denied[name] = true
}

// Apply removes every native the policy does not allow from reg
func (p *Policy) Apply(reg *bridge.Registry) {
	for _, name := range reg.Names() {
		if !p.Allows(name) {
			reg.Remove(name)
		}
	}
}
