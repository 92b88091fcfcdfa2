package node

import (
	"fmt"

	"terragraph/internal/core"
	"terragraph/internal/grid"
)

// Base implements the bookkeeping shared by every node kind: ports, bound
// inputs, cached outputs and parameters. Concrete kinds embed it and supply
// Compute.
type Base struct {
	Env Env

	kind    string
	inputs  []Port
	outputs []Port
	params  *core.ParamSet

	in    []Value
	bound []bool
	out   []Value
}

// NewBase prepares a Base with empty outputs and default parameters.
func NewBase(kind string, env Env, inputs, outputs []Port, specs ...core.ParamSpec) Base {
	return Base{
		Env:     env,
		kind:    kind,
		inputs:  inputs,
		outputs: outputs,
		params:  core.NewParamSet(specs...),
		in:      make([]Value, len(inputs)),
		bound:   make([]bool, len(inputs)),
		out:     make([]Value, len(outputs)),
	}
}

func (b *Base) Kind() string            { return b.kind }
func (b *Base) Inputs() []Port          { return b.inputs }
func (b *Base) Outputs() []Port         { return b.outputs }
func (b *Base) Params() *core.ParamSet  { return b.params }
func (b *Base) UsesResolution() bool    { return false }
func (b *Base) Connected(slot int) bool { return slot >= 0 && slot < len(b.bound) && b.bound[slot] }

// Bind records v for slot. Values of the wrong type or for unknown slots are
// ignored; the engine validates types before binding.
func (b *Base) Bind(slot int, v Value) {
	if slot < 0 || slot >= len(b.inputs) || v.Type != b.inputs[slot].Type || !v.Valid() {
		return
	}
	b.in[slot] = v
	b.bound[slot] = true
}

// Unbind clears slot so the node falls back to its default.
func (b *Base) Unbind(slot int) {
	if slot < 0 || slot >= len(b.inputs) {
		return
	}
	b.in[slot] = Value{}
	b.bound[slot] = false
}

// Output returns the cached value of slot.
func (b *Base) Output(slot int) Value {
	if slot < 0 || slot >= len(b.out) {
		return Value{}
	}
	return b.out[slot]
}

// Publish caches v as the value of output slot.
func (b *Base) Publish(slot int, v Value) {
	if slot < 0 || slot >= len(b.out) {
		panic(fmt.Sprintf("%s: publish to output %d of %d", b.kind, slot, len(b.out)))
	}
	b.out[slot] = v
}

// IntensityIn returns the grid bound to slot, or nil when unconnected.
func (b *Base) IntensityIn(slot int) *grid.Intensity {
	if !b.Connected(slot) {
		return nil
	}
	return b.in[slot].Intensity
}

// VectorIn returns the grid bound to slot, or nil when unconnected.
func (b *Base) VectorIn(slot int) *grid.Vector {
	if !b.Connected(slot) {
		return nil
	}
	return b.in[slot].Vector
}

// Resolution returns the active generation resolution.
func (b *Base) Resolution() int { return b.Env.Resolution() }
