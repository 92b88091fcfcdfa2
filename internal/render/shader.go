//go:build ebiten

package render

import "github.com/hajimehoshi/ebiten/v2"

// shadeSource lights the elevation colors in image 0 by the encoded normals
// in image 1. It is the GPU form of Shade.
var shadeSource = []byte(`//kage:unit pixels

package main

var Light vec3

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	c := imageSrc0At(srcPos)
	n := imageSrc1At(srcPos).xyz*2 - 1
	k := 0.35 + 0.65*clamp(dot(n, Light), 0, 1)
	return vec4(c.rgb*k, c.a)
}
`)

// ShadeSource returns the Kage source of the hillshade shader.
func ShadeSource() []byte { return shadeSource }

// Hillshade draws an elevation painter lit by a normal painter.
type Hillshade struct {
	shader *ebiten.Shader
	light  []float32
	target *ebiten.Image
}

// NewHillshade compiles the shader.
func NewHillshade() (*Hillshade, error) {
	s, err := ebiten.NewShader(shadeSource)
	if err != nil {
		return nil, err
	}
	return &Hillshade{shader: s, light: []float32{float32(light[0]), float32(light[1]), float32(light[2])}}, nil
}

// Draw paints color lit by normal at (x, y) scaled to side*side. It falls
// back to the unlit color while the two images differ in size, which happens
// when the normal map lags a resolution change.
func (h *Hillshade) Draw(dst *ebiten.Image, color, normal *GridPainter, x, y, side int) {
	if color.w != normal.w || color.h != normal.h {
		color.Draw(dst, x, y, side)
		return
	}
	if h.target == nil || h.target.Bounds().Dx() != color.w || h.target.Bounds().Dy() != color.h {
		h.target = ebiten.NewImage(color.w, color.h)
	}
	op := &ebiten.DrawRectShaderOptions{}
	op.Images[0] = color.img
	op.Images[1] = normal.img
	op.Uniforms = map[string]any{"Light": h.light}
	h.target.DrawRectShader(color.w, color.h, h.shader, op)

	draw := &ebiten.DrawImageOptions{}
	draw.GeoM.Scale(float64(side)/float64(color.w), float64(side)/float64(color.h))
	draw.GeoM.Translate(float64(x), float64(y))
	dst.DrawImage(h.target, draw)
}
