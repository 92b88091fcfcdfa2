package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeFloat denotes floating-point parameters.
	ParamTypeFloat ParamType = "float"
	// ParamTypeBool denotes boolean parameters.
	ParamTypeBool ParamType = "bool"
	// ParamTypeEnum denotes a choice among named options.
	ParamTypeEnum ParamType = "enum"
	// ParamTypeVector denotes a four-component vector or color.
	ParamTypeVector ParamType = "vector"
	// ParamTypeString denotes free text such as a texture name.
	ParamTypeString ParamType = "string"
)

var (
	// ErrUnknownParameter is returned when a key is not declared on a node.
	ErrUnknownParameter = errors.New("core: unknown parameter")
	// ErrInvalidValue is returned when a value cannot be used for a parameter.
	ErrInvalidValue = errors.New("core: invalid parameter value")
)

// Parameter describes a single tunable value exposed by a node.
type Parameter struct {
	Key         string
	Label       string
	Type        ParamType
	Value       string
	Description string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name    string
	Params  []Parameter
	Summary string
}

// ParameterSnapshot captures the current set of tunables exposed by a node.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// Lookup finds a parameter by key across all groups.
func (s ParameterSnapshot) Lookup(key string) (Parameter, bool) {
	for _, g := range s.Groups {
		for _, p := range g.Params {
			if p.Key == key {
				return p, true
			}
		}
	}
	return Parameter{}, false
}

// ParameterControl describes an adjustable parameter that should be exposed on
// the HUD. Steps and bounds are optional and interpreted based on the
// parameter type.
type ParameterControl struct {
	Key   string
	Label string
	Type  ParamType

	Step float64

	Min    float64
	Max    float64
	HasMin bool
	HasMax bool

	Options []string
}

// ParameterControlsProvider exposes the list of HUD-adjustable controls.
type ParameterControlsProvider interface {
	ParameterControls() []ParameterControl
}

// IntParameterSetter allows HUD interactions to update integer parameters.
type IntParameterSetter interface {
	SetIntParameter(key string, value int) bool
}

// FloatParameterSetter allows HUD interactions to update floating point
// parameters.
type FloatParameterSetter interface {
	SetFloatParameter(key string, value float64) bool
}

// TextParameterSetter allows HUD interactions to update enum and boolean
// parameters from their text form.
type TextParameterSetter interface {
	SetTextParameter(key, value string) bool
}

// ParamValue is a typed parameter value. Only the field matching Type is
// meaningful; Text carries enum options and strings.
type ParamValue struct {
	Type   ParamType
	Int    int
	Float  float64
	Bool   bool
	Text   string
	Vector mgl64.Vec4
}

func IntValue(v int) ParamValue           { return ParamValue{Type: ParamTypeInt, Int: v} }
func FloatValue(v float64) ParamValue     { return ParamValue{Type: ParamTypeFloat, Float: v} }
func BoolValue(v bool) ParamValue         { return ParamValue{Type: ParamTypeBool, Bool: v} }
func EnumValue(v string) ParamValue       { return ParamValue{Type: ParamTypeEnum, Text: v} }
func StringValue(v string) ParamValue     { return ParamValue{Type: ParamTypeString, Text: v} }
func VectorValue(v mgl64.Vec4) ParamValue { return ParamValue{Type: ParamTypeVector, Vector: v} }
func Vec(x, y, z, w float64) ParamValue   { return VectorValue(mgl64.Vec4{x, y, z, w}) }

// String formats the value the way ParseValue reads it back.
func (v ParamValue) String() string {
	switch v.Type {
	case ParamTypeInt:
		return strconv.Itoa(v.Int)
	case ParamTypeFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case ParamTypeBool:
		return strconv.FormatBool(v.Bool)
	case ParamTypeVector:
		parts := make([]string, 4)
		for i, c := range v.Vector {
			parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
		}
		return strings.Join(parts, ",")
	}
	return v.Text
}

// ParseValue reads s as a value of type t. Vectors accept "x,y,z[,w]" (w
// defaults to 1) or a "#rrggbb" hex color.
func ParseValue(t ParamType, s string) (ParamValue, error) {
	s = strings.TrimSpace(s)
	switch t {
	case ParamTypeInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return ParamValue{}, fmt.Errorf("%w: %q is not an int", ErrInvalidValue, s)
		}
		return IntValue(n), nil
	case ParamTypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return ParamValue{}, fmt.Errorf("%w: %q is not a float", ErrInvalidValue, s)
		}
		return FloatValue(f), nil
	case ParamTypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return ParamValue{}, fmt.Errorf("%w: %q is not a bool", ErrInvalidValue, s)
		}
		return BoolValue(b), nil
	case ParamTypeEnum:
		return EnumValue(s), nil
	case ParamTypeString:
		return StringValue(s), nil
	case ParamTypeVector:
		return parseVector(s)
	}
	return ParamValue{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidValue, t)
}

// ParseVector reads a color as "#rrggbb" or 3 to 4 comma separated
// components. Alpha defaults to 1.
func ParseVector(s string) (mgl64.Vec4, error) {
	v, err := parseVector(s)
	if err != nil {
		return mgl64.Vec4{}, err
	}
	return v.Vector, nil
}

func parseVector(s string) (ParamValue, error) {
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return ParamValue{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Vec(c.R, c.G, c.B, 1), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) < 3 || len(parts) > 4 {
		return ParamValue{}, fmt.Errorf("%w: %q needs 3 or 4 components", ErrInvalidValue, s)
	}
	v := mgl64.Vec4{0, 0, 0, 1}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ParamValue{}, fmt.Errorf("%w: component %d of %q", ErrInvalidValue, i, s)
		}
		v[i] = f
	}
	return VectorValue(v), nil
}

// ParamSpec declares a parameter: its type, default and optional bounds.
type ParamSpec struct {
	Key         string
	Label       string
	Description string
	Default     ParamValue
	Step        float64
	Min, Max    float64
	HasMin      bool
	HasMax      bool
	Options     []string
}

// Type returns the declared value type.
func (s ParamSpec) Type() ParamType { return s.Default.Type }

// IntSpec declares an integer parameter bounded to [lo, hi].
func IntSpec(key, label string, def, lo, hi int) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: IntValue(def), Step: 1,
		Min: float64(lo), Max: float64(hi), HasMin: true, HasMax: true}
}

// FloatSpec declares a float parameter bounded to [lo, hi].
func FloatSpec(key, label string, def, lo, hi, step float64) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: FloatValue(def), Step: step,
		Min: lo, Max: hi, HasMin: true, HasMax: true}
}

// UnboundedFloatSpec declares a float parameter without bounds.
func UnboundedFloatSpec(key, label string, def, step float64) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: FloatValue(def), Step: step}
}

// BoolSpec declares a boolean parameter.
func BoolSpec(key, label string, def bool) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: BoolValue(def)}
}

// EnumSpec declares a choice among options; def must be one of them.
func EnumSpec(key, label, def string, options ...string) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: EnumValue(def), Options: options}
}

// VectorSpec declares a four-component vector parameter.
func VectorSpec(key, label string, def mgl64.Vec4) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: VectorValue(def)}
}

// StringSpec declares a free-text parameter.
func StringSpec(key, label, def string) ParamSpec {
	return ParamSpec{Key: key, Label: label, Default: StringValue(def)}
}

// ParamSet holds the current values of a node's declared parameters.
type ParamSet struct {
	specs  []ParamSpec
	values map[string]ParamValue
}

// NewParamSet builds a set populated with each spec's default.
func NewParamSet(specs ...ParamSpec) *ParamSet {
	ps := &ParamSet{specs: specs, values: make(map[string]ParamValue, len(specs))}
	ps.Reset()
	return ps
}

// Reset restores every parameter to its default.
func (ps *ParamSet) Reset() {
	for _, s := range ps.specs {
		ps.values[s.Key] = s.Default
	}
}

// Specs returns the declarations in order.
func (ps *ParamSet) Specs() []ParamSpec { return ps.specs }

func (ps *ParamSet) spec(key string) (ParamSpec, bool) {
	for _, s := range ps.specs {
		if s.Key == key {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Get returns the current value for key.
func (ps *ParamSet) Get(key string) (ParamValue, bool) {
	v, ok := ps.values[key]
	return v, ok
}

// Set validates v against the declaration for key and stores it. Numeric
// values are converted between int and float and clamped to the declared
// bounds.
func (ps *ParamSet) Set(key string, v ParamValue) error {
	spec, ok := ps.spec(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	coerced, err := coerce(spec, v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	ps.values[key] = coerced
	return nil
}

// SetString parses s according to the declared type of key and stores it.
func (ps *ParamSet) SetString(key, s string) error {
	spec, ok := ps.spec(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	v, err := ParseValue(spec.Type(), s)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return ps.Set(key, v)
}

func coerce(spec ParamSpec, v ParamValue) (ParamValue, error) {
	want := spec.Type()
	switch {
	case want == ParamTypeFloat && v.Type == ParamTypeInt:
		v = FloatValue(float64(v.Int))
	case want == ParamTypeInt && v.Type == ParamTypeFloat:
		v = IntValue(int(math.Round(v.Float)))
	case want == ParamTypeString && v.Type == ParamTypeEnum, want == ParamTypeEnum && v.Type == ParamTypeString:
		v.Type = want
	}
	if v.Type != want {
		return ParamValue{}, fmt.Errorf("%w: got %s, expected %s", ErrInvalidValue, v.Type, want)
	}
	switch want {
	case ParamTypeInt:
		f := float64(v.Int)
		if spec.HasMin && f < spec.Min {
			v.Int = int(spec.Min)
		}
		if spec.HasMax && f > spec.Max {
			v.Int = int(spec.Max)
		}
	case ParamTypeFloat:
		if math.IsNaN(v.Float) {
			return ParamValue{}, fmt.Errorf("%w: NaN", ErrInvalidValue)
		}
		if spec.HasMin && v.Float < spec.Min {
			v.Float = spec.Min
		}
		if spec.HasMax && v.Float > spec.Max {
			v.Float = spec.Max
		}
	case ParamTypeEnum:
		found := false
		for _, o := range spec.Options {
			if o == v.Text {
				found = true
				break
			}
		}
		if !found {
			return ParamValue{}, fmt.Errorf("%w: %q not one of %s", ErrInvalidValue, v.Text, strings.Join(spec.Options, ", "))
		}
	}
	return v, nil
}

// Int returns the value of an int parameter.
func (ps *ParamSet) Int(key string) int { return ps.values[key].Int }

// Float returns the value of a float parameter.
func (ps *ParamSet) Float(key string) float64 { return ps.values[key].Float }

// Bool returns the value of a bool parameter.
func (ps *ParamSet) Bool(key string) bool { return ps.values[key].Bool }

// Text returns the value of an enum or string parameter.
func (ps *ParamSet) Text(key string) string { return ps.values[key].Text }

// Vector returns the value of a vector parameter.
func (ps *ParamSet) Vector(key string) mgl64.Vec4 { return ps.values[key].Vector }

// Snapshot renders the current values for display under a single group.
func (ps *ParamSet) Snapshot(group string) ParameterSnapshot {
	params := make([]Parameter, 0, len(ps.specs))
	for _, s := range ps.specs {
		params = append(params, Parameter{
			Key:         s.Key,
			Label:       s.Label,
			Type:        s.Type(),
			Value:       ps.values[s.Key].String(),
			Description: s.Description,
		})
	}
	return ParameterSnapshot{Groups: []ParameterGroup{{Name: group, Params: params}}}
}

// ParameterControls lists the numeric parameters a HUD can step.
func (ps *ParamSet) ParameterControls() []ParameterControl {
	var out []ParameterControl
	for _, s := range ps.specs {
		switch s.Type() {
		case ParamTypeInt, ParamTypeFloat, ParamTypeEnum, ParamTypeBool:
		default:
			continue
		}
		out = append(out, ParameterControl{
			Key:     s.Key,
			Label:   s.Label,
			Type:    s.Type(),
			Step:    s.Step,
			Min:     s.Min,
			Max:     s.Max,
			HasMin:  s.HasMin,
			HasMax:  s.HasMax,
			Options: s.Options,
		})
	}
	return out
}
