package app

import (
	"strconv"

	"terragraph/internal/core"
	"terragraph/internal/graph"
	"terragraph/internal/ui"
)

// NodeEditor exposes one node of an engine to the parameter panel. Every
// change goes through the engine so dependents are recomputed.
type NodeEditor struct {
	Engine *graph.Engine
	ID     graph.ID
}

var (
	_ ui.Target                 = NodeEditor{}
	_ core.IntParameterSetter   = NodeEditor{}
	_ core.FloatParameterSetter = NodeEditor{}
	_ core.TextParameterSetter  = NodeEditor{}
)

// Name returns the node kind with its ID.
func (ed NodeEditor) Name() string {
	n, ok := ed.Engine.Node(ed.ID)
	if !ok {
		return ""
	}
	return n.Kind() + " #" + strconv.Itoa(int(ed.ID))
}

// Parameters returns the node's current values.
func (ed NodeEditor) Parameters() core.ParameterSnapshot {
	n, ok := ed.Engine.Node(ed.ID)
	if !ok {
		return core.ParameterSnapshot{}
	}
	return n.Params().Snapshot(n.Kind())
}

// ParameterControls lists the node's steppable parameters.
func (ed NodeEditor) ParameterControls() []core.ParameterControl {
	n, ok := ed.Engine.Node(ed.ID)
	if !ok {
		return nil
	}
	return n.Params().ParameterControls()
}

func (ed NodeEditor) SetIntParameter(key string, v int) bool {
	return ed.set(key, core.IntValue(v))
}

func (ed NodeEditor) SetFloatParameter(key string, v float64) bool {
	return ed.set(key, core.FloatValue(v))
}

func (ed NodeEditor) SetTextParameter(key, v string) bool {
	if err := ed.Engine.SetParameterString(ed.ID, key, v); err != nil {
		core.Logger().Warn("app: parameter rejected", "node", int(ed.ID), "key", key, "err", err)
		return false
	}
	return true
}

func (ed NodeEditor) set(key string, v core.ParamValue) bool {
	if err := ed.Engine.SetParameter(ed.ID, key, v); err != nil {
		core.Logger().Warn("app: parameter rejected", "node", int(ed.ID), "key", key, "err", err)
		return false
	}
	return true
}
