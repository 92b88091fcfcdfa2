package core

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/grid"
)

// TextureList is a named store of vector grids that texture nodes read from.
type TextureList struct {
	mu       sync.RWMutex
	textures map[string]*grid.Vector
}

// NewTextureList returns an empty list.
func NewTextureList() *TextureList {
	return &TextureList{textures: map[string]*grid.Vector{}}
}

// Add stores tex under name, replacing any previous texture.
func (l *TextureList) Add(name string, tex *grid.Vector) {
	if name == "" || tex == nil {
		return
	}
	l.mu.Lock()
	l.textures[name] = tex
	l.mu.Unlock()
}

// Generate stores a white w*h texture under name and returns it.
func (l *TextureList) Generate(name string, w, h int) *grid.Vector {
	tex := grid.NewFilled(w, h, mgl64.Vec4{1, 1, 1, 1})
	l.Add(name, tex)
	return tex
}

// Load decodes a PNG stream and stores it under name.
func (l *TextureList) Load(name string, r io.Reader) error {
	tex, err := grid.DecodeVector(r)
	if err != nil {
		return fmt.Errorf("texture %q: %w", name, err)
	}
	l.Add(name, tex)
	return nil
}

// Remove deletes the texture and reports whether it existed.
func (l *TextureList) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.textures[name]
	delete(l.textures, name)
	return ok
}

// Get returns the texture stored under name.
func (l *TextureList) Get(name string) (*grid.Vector, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tex, ok := l.textures[name]
	return tex, ok
}

// Names returns the stored names in sorted order.
func (l *TextureList) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.textures))
	for n := range l.textures {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stamp composites brush over the named texture, centered on (x, y), and
// reports whether the texture exists. The stored texture is replaced by a
// stamped copy so grids already handed out stay unchanged.
func (l *TextureList) Stamp(name string, brush *grid.Vector, x, y int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	tex, ok := l.textures[name]
	if !ok {
		return false
	}
	if brush.Empty() {
		return true
	}
	out := tex.Clone()
	x0, y0 := x-brush.W/2, y-brush.H/2
	for by := 0; by < brush.H; by++ {
		for bx := 0; bx < brush.W; bx++ {
			tx, ty := x0+bx, y0+by
			if !out.InBounds(tx, ty) {
				continue
			}
			out.Set(tx, ty, over(brush.At(bx, by), out.At(tx, ty)))
		}
	}
	l.textures[name] = out
	return true
}

// over blends src onto dst with non-premultiplied source-over.
func over(src, dst mgl64.Vec4) mgl64.Vec4 {
	a := src[3] + dst[3]*(1-src[3])
	if a == 0 {
		return mgl64.Vec4{}
	}
	var c mgl64.Vec4
	for i := 0; i < 3; i++ {
		c[i] = (src[i]*src[3] + dst[i]*dst[3]*(1-src[3])) / a
	}
	c[3] = a
	return c
}
