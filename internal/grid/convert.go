package grid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Channel selects how a vector cell collapses to an intensity.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
	ChannelAlpha
	ChannelAverage
	ChannelMin
	ChannelMax
)

var channelNames = [...]string{"red", "green", "blue", "alpha", "average", "min", "max"}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return "unknown"
	}
	return channelNames[c]
}

// ChannelNames lists the accepted channel names in declaration order.
func ChannelNames() []string { return channelNames[:] }

// ParseChannel resolves a channel by name.
func ParseChannel(name string) (Channel, bool) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), true
		}
	}
	return 0, false
}

// Extract collapses a single vector according to the channel.
func (c Channel) Extract(v mgl64.Vec4) float64 {
	switch c {
	case ChannelRed:
		return v[0]
	case ChannelGreen:
		return v[1]
	case ChannelBlue:
		return v[2]
	case ChannelAlpha:
		return v[3]
	case ChannelAverage:
		return (v[0] + v[1] + v[2] + v[3]) / 4
	case ChannelMin:
		return math.Min(math.Min(v[0], v[1]), math.Min(v[2], v[3]))
	case ChannelMax:
		return math.Max(math.Max(v[0], v[1]), math.Max(v[2], v[3]))
	}
	return 0
}

// ColorMode selects how a constant color combines with an intensity value.
type ColorMode int

const (
	// ModeApply scales every component by the intensity.
	ModeApply ColorMode = iota
	// ModeOverrideColor scales rgb and keeps the color's alpha.
	ModeOverrideColor
	// ModeOverrideMap scales rgb and uses the intensity as alpha.
	ModeOverrideMap
	// ModeMask keeps rgb and uses the intensity as alpha.
	ModeMask
	// ModeMaskAlpha keeps rgb and multiplies alpha by the intensity.
	ModeMaskAlpha
)

var modeNames = [...]string{"apply", "override_color", "override_map", "mask", "mask_alpha"}

func (m ColorMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ColorModeNames lists the accepted mode names in declaration order.
func ColorModeNames() []string { return modeNames[:] }

// ParseColorMode resolves a color mode by name.
func ParseColorMode(name string) (ColorMode, bool) {
	for i, n := range modeNames {
		if n == name {
			return ColorMode(i), true
		}
	}
	return 0, false
}

// Apply combines color with a single intensity value.
func (m ColorMode) Apply(color mgl64.Vec4, v float64) mgl64.Vec4 {
	switch m {
	case ModeOverrideColor:
		return mgl64.Vec4{color[0] * v, color[1] * v, color[2] * v, color[3]}
	case ModeOverrideMap:
		return mgl64.Vec4{color[0] * v, color[1] * v, color[2] * v, v}
	case ModeMask:
		return mgl64.Vec4{color[0], color[1], color[2], v}
	case ModeMaskAlpha:
		return mgl64.Vec4{color[0], color[1], color[2], color[3] * v}
	}
	return color.Mul(v)
}

// IntensityFromVector extracts one channel of every cell.
func IntensityFromVector(v *Vector, c Channel) *Intensity {
	return Map(v, c.Extract)
}

// VectorFromIntensity builds a vector grid from an intensity grid and a
// constant color.
func VectorFromIntensity(m *Intensity, color mgl64.Vec4, mode ColorMode) *Vector {
	return Map(m, func(v float64) mgl64.Vec4 { return mode.Apply(color, v) })
}

// Broadcast copies each intensity into all four components.
func Broadcast(m *Intensity) *Vector {
	return Map(m, func(v float64) mgl64.Vec4 { return mgl64.Vec4{v, v, v, v} })
}
