package ui

import (
	"math"
	"strconv"

	"terragraph/internal/core"
)

// Target is anything whose parameters the panel can display. Editing is
// enabled per type when the target also implements core.IntParameterSetter,
// core.FloatParameterSetter or core.TextParameterSetter.
type Target interface {
	Name() string
	Parameters() core.ParameterSnapshot
	core.ParameterControlsProvider
}

// Panel holds the display state of a target's controls independently of how
// they are drawn.
type Panel struct {
	target Target
	title  string

	controls    []ControlState
	intSetter   core.IntParameterSetter
	floatSetter core.FloatParameterSetter
	textSetter  core.TextParameterSetter
}

// ControlState is one row of the panel.
type ControlState struct {
	Control core.ParameterControl
	Value   string

	intValue   int
	floatValue float64
	textValue  string
	HasValue   bool
}

// NewPanel builds a panel for target. A nil target yields an empty panel.
func NewPanel(target Target) *Panel {
	p := &Panel{}
	p.SetTarget(target)
	return p
}

// SetTarget switches the panel to another target.
func (p *Panel) SetTarget(target Target) {
	p.target = target
	p.controls = nil
	p.intSetter, p.floatSetter, p.textSetter = nil, nil, nil
	p.title = "Controls"
	if target == nil {
		return
	}
	if name := target.Name(); name != "" {
		p.title = name
	}
	for _, ctrl := range target.ParameterControls() {
		p.controls = append(p.controls, ControlState{Control: ctrl, Value: "--"})
	}
	p.intSetter, _ = target.(core.IntParameterSetter)
	p.floatSetter, _ = target.(core.FloatParameterSetter)
	p.textSetter, _ = target.(core.TextParameterSetter)
	p.Refresh()
}

// Title returns the heading for the panel.
func (p *Panel) Title() string { return p.title }

// Controls exposes the current rows.
func (p *Panel) Controls() []ControlState { return p.controls }

// Refresh re-reads every control value from the target.
func (p *Panel) Refresh() {
	if p.target == nil || len(p.controls) == 0 {
		return
	}
	snapshot := p.target.Parameters()
	for i := range p.controls {
		state := &p.controls[i]
		param, ok := snapshot.Lookup(state.Control.Key)
		state.HasValue = false
		state.Value = "--"
		if !ok {
			continue
		}
		switch state.Control.Type {
		case core.ParamTypeInt:
			parsed, err := strconv.Atoi(param.Value)
			if err != nil {
				continue
			}
			state.intValue = parsed
			state.floatValue = float64(parsed)
			state.Value = strconv.Itoa(parsed)
		case core.ParamTypeFloat:
			parsed, err := strconv.ParseFloat(param.Value, 64)
			if err != nil {
				continue
			}
			state.floatValue = parsed
			state.Value = formatFloat(state.Control, parsed)
		case core.ParamTypeEnum, core.ParamTypeBool:
			state.textValue = param.Value
			state.Value = param.Value
		default:
			continue
		}
		state.HasValue = true
	}
}

// CanAdjust reports whether stepping control i in direction would change it.
func (p *Panel) CanAdjust(i, direction int) bool {
	if i < 0 || i >= len(p.controls) || direction == 0 {
		return false
	}
	state := &p.controls[i]
	if !state.HasValue {
		return false
	}
	switch state.Control.Type {
	case core.ParamTypeInt:
		if p.intSetter == nil {
			return false
		}
		return p.intTarget(state, direction) != state.intValue
	case core.ParamTypeFloat:
		if p.floatSetter == nil {
			return false
		}
		target := p.floatTarget(state, direction)
		return math.Abs(target-state.floatValue) >= 1e-9
	case core.ParamTypeEnum:
		return p.textSetter != nil && len(state.Control.Options) > 1
	case core.ParamTypeBool:
		return p.textSetter != nil
	}
	return false
}

// Adjust steps control i by one increment in direction. Enums cycle through
// their options and booleans toggle. It reports whether the target accepted
// the change.
func (p *Panel) Adjust(i, direction int) bool {
	if !p.CanAdjust(i, direction) {
		return false
	}
	state := &p.controls[i]
	switch state.Control.Type {
	case core.ParamTypeInt:
		target := p.intTarget(state, direction)
		if !p.intSetter.SetIntParameter(state.Control.Key, target) {
			return false
		}
		state.intValue = target
		state.floatValue = float64(target)
		state.Value = strconv.Itoa(target)
	case core.ParamTypeFloat:
		target := p.floatTarget(state, direction)
		if !p.floatSetter.SetFloatParameter(state.Control.Key, target) {
			return false
		}
		state.floatValue = target
		state.Value = formatFloat(state.Control, target)
	case core.ParamTypeEnum:
		target := cycle(state.Control.Options, state.textValue, direction)
		if !p.textSetter.SetTextParameter(state.Control.Key, target) {
			return false
		}
		state.textValue, state.Value = target, target
	case core.ParamTypeBool:
		target := strconv.FormatBool(state.textValue != "true")
		if !p.textSetter.SetTextParameter(state.Control.Key, target) {
			return false
		}
		state.textValue, state.Value = target, target
	}
	return true
}

func (p *Panel) intTarget(state *ControlState, direction int) int {
	step := int(math.Round(state.Control.Step))
	if step <= 0 {
		step = 1
	}
	target := state.intValue + direction*step
	if state.Control.HasMin {
		target = max(target, int(math.Round(state.Control.Min)))
	}
	if state.Control.HasMax {
		target = min(target, int(math.Round(state.Control.Max)))
	}
	return target
}

func (p *Panel) floatTarget(state *ControlState, direction int) float64 {
	step := state.Control.Step
	if step <= 0 {
		step = 0.05
	}
	target := state.floatValue + float64(direction)*step
	if state.Control.HasMin && target < state.Control.Min {
		target = state.Control.Min
	}
	if state.Control.HasMax && target > state.Control.Max {
		target = state.Control.Max
	}
	return target
}

func cycle(options []string, current string, direction int) string {
	if len(options) == 0 {
		return current
	}
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	n := len(options)
	return options[((idx+direction)%n+n)%n]
}

func formatFloat(ctrl core.ParameterControl, value float64) string {
	step := ctrl.Step
	if step <= 0 {
		step = 0.05
	}
	precision := 1
	switch {
	case step < 0.001:
		precision = 4
	case step < 0.01:
		precision = 3
	case step < 0.1:
		precision = 2
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}
