// Package nodes provides the concrete node kinds of the terrain graph.
package nodes

import (
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

type entry struct {
	kind    string
	factory node.Factory
}

var kinds []entry

func register(kind string, f node.Factory) {
	kinds = append(kinds, entry{kind: kind, factory: f})
}

// Register adds every node kind in this package to cat.
func Register(cat *node.Catalog) {
	for _, e := range kinds {
		cat.Register(e.kind, e.factory)
	}
}

// NewCatalog returns a catalog holding every node kind, bound to env.
func NewCatalog(env node.Env) *node.Catalog {
	cat := node.NewCatalog(env)
	Register(cat)
	return cat
}

func intensityPort(name string) node.Port { return node.Port{Name: name, Type: node.TypeIntensity} }
func vectorPort(name string) node.Port    { return node.Port{Name: name, Type: node.TypeVector} }

func ports(p ...node.Port) []node.Port { return p }

// dispatch picks the algebra operation matching which of a and b are bound.
// With neither bound it fills a w*h grid from the two constants.
func dispatch[T grid.Cell](a, b *grid.Grid[T], c1, c2 T, w, h int, f func(T, T) T) *grid.Grid[T] {
	switch {
	case a != nil && b != nil:
		return grid.Combine(a, b, f)
	case a != nil:
		return grid.Transform(a, c2, f)
	case b != nil:
		return grid.TransformLeft(c1, b, f)
	}
	return grid.Filled(w, h, c1, c2, f)
}

// one is the conventional default for an unconnected intensity input.
func one() *grid.Intensity { return grid.NewFilled(1, 1, 1.0) }
