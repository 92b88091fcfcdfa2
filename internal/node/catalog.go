package node

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a catalog has no factory for a kind.
var ErrUnknownKind = errors.New("node: unknown kind")

// Factory constructs a node bound to env.
type Factory func(env Env) Node

// Catalog maps node kinds to factories. Each application root owns its own
// catalog so tests can build isolated graphs.
type Catalog struct {
	env       Env
	factories map[string]Factory
	order     []string
}

// NewCatalog returns an empty catalog whose nodes receive env.
func NewCatalog(env Env) *Catalog {
	return &Catalog{env: env, factories: map[string]Factory{}}
}

// Register adds a factory under kind, replacing any previous one.
func (c *Catalog) Register(kind string, f Factory) {
	if kind == "" || f == nil {
		return
	}
	if _, ok := c.factories[kind]; !ok {
		c.order = append(c.order, kind)
	}
	c.factories[kind] = f
}

// New constructs a node of the given kind.
func (c *Catalog) New(kind string) (Node, error) {
	f, ok := c.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f(c.env), nil
}

// Kinds lists registered kinds in registration order.
func (c *Catalog) Kinds() []string { return append([]string(nil), c.order...) }

// Env returns the environment handed to every node.
func (c *Catalog) Env() Env { return c.env }
