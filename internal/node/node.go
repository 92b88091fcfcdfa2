// Package node defines the unit of computation in the terrain graph and the
// typed values that travel between nodes.
package node

import (
	"fmt"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/worker"
)

// DataType is the payload kind carried by a port.
type DataType int

const (
	TypeIntensity DataType = iota
	TypeVector
)

func (t DataType) String() string {
	switch t {
	case TypeIntensity:
		return "intensity"
	case TypeVector:
		return "vector"
	}
	return "unknown"
}

// Port is a typed, named input or output slot.
type Port struct {
	Name string
	Type DataType
}

// Value is the tagged union of grid payloads. Exactly one of Intensity and
// Vector is set for a valid value.
type Value struct {
	Type      DataType
	Intensity *grid.Intensity
	Vector    *grid.Vector
}

// IntensityValue wraps an intensity grid.
func IntensityValue(m *grid.Intensity) Value { return Value{Type: TypeIntensity, Intensity: m} }

// VectorValue wraps a vector grid.
func VectorValue(v *grid.Vector) Value { return Value{Type: TypeVector, Vector: v} }

// Valid reports whether the value carries a grid of its declared type.
func (v Value) Valid() bool {
	switch v.Type {
	case TypeIntensity:
		return v.Intensity != nil
	case TypeVector:
		return v.Vector != nil
	}
	return false
}

// Dims returns the grid dimensions of the carried payload.
func (v Value) Dims() (int, int) {
	switch {
	case v.Type == TypeIntensity && v.Intensity != nil:
		return v.Intensity.W, v.Intensity.H
	case v.Type == TypeVector && v.Vector != nil:
		return v.Vector.W, v.Vector.H
	}
	return 0, 0
}

// Env carries the services a node may consult while computing.
type Env struct {
	Settings *core.Settings
	Textures *core.TextureList
	Stencils *core.StencilList
}

// Resolution returns the active generation resolution, or the preview default
// when no settings are attached.
func (e Env) Resolution() int {
	if e.Settings == nil {
		return core.DefaultPreviewResolution
	}
	return e.Settings.Resolution()
}

// Node is a computation mapping bound inputs and parameters to cached
// outputs. The engine binds every fresh input first and then calls Compute
// once, so Bind and Unbind must not recompute on their own.
type Node interface {
	Kind() string
	Inputs() []Port
	Outputs() []Port
	Params() *core.ParamSet

	// Bind records an upstream value for an input slot.
	Bind(slot int, v Value)
	// Unbind reverts an input slot to its node-local default.
	Unbind(slot int)
	// Compute recomputes every output from the bound inputs and parameters.
	Compute()
	// Output returns the cached value of an output slot without recomputing.
	Output(slot int) Value
}

// ResolutionUser is implemented by nodes whose output size follows the
// active generation resolution.
type ResolutionUser interface {
	UsesResolution() bool
}

// Deferred is implemented by nodes that finish their work in the background.
// After Compute the engine asks for a job; while it runs, dependents keep
// their previous values. Finish publishes a completed result.
type Deferred interface {
	Node
	Job() (worker.Job, bool)
	Finish(result any)
}

// Triggerable is implemented by nodes that only run on explicit request.
type Triggerable interface {
	Node
	Trigger()
}

// SetInput records an upstream value and recomputes synchronously.
func SetInput(n Node, slot int, v Value) {
	n.Bind(slot, v)
	n.Compute()
}

// InputDisconnected reverts slot to its default and recomputes.
func InputDisconnected(n Node, slot int) {
	n.Unbind(slot)
	n.Compute()
}

// SetParameter updates a knob and recomputes.
func SetParameter(n Node, key string, v core.ParamValue) error {
	if err := n.Params().Set(key, v); err != nil {
		return fmt.Errorf("%s: %w", n.Kind(), err)
	}
	n.Compute()
	return nil
}
