package core

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/grid"
)

// DefaultStencilDiameter is the brush size, in cells, of a stencil stamp.
const DefaultStencilDiameter = 8

// DefaultStencilColor is a half transparent black.
var DefaultStencilColor = mgl64.Vec4{0, 0, 0, 128.0 / 255}

// StencilName derives a display name from a file name: the directory and
// extension are dropped and dashes become spaces.
func StencilName(file string) string {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "-", " ")
}

// StencilList is a named store of brush shapes. A stencil is an intensity
// grid read from the red channel of an image.
type StencilList struct {
	mu       sync.RWMutex
	stencils map[string]*grid.Intensity
}

// NewStencilList returns an empty list.
func NewStencilList() *StencilList {
	return &StencilList{stencils: map[string]*grid.Intensity{}}
}

// Add stores shape under name, replacing any previous stencil.
func (l *StencilList) Add(name string, shape *grid.Intensity) {
	if name == "" || shape.Empty() {
		return
	}
	l.mu.Lock()
	l.stencils[name] = shape
	l.mu.Unlock()
}

// Load decodes a PNG stream and stores its red channel under the name
// derived from file. It returns that name.
func (l *StencilList) Load(file string, r io.Reader) (string, error) {
	name := StencilName(file)
	if name == "" {
		return "", fmt.Errorf("stencil %q: empty name", file)
	}
	img, err := grid.DecodeVector(r)
	if err != nil {
		return "", fmt.Errorf("stencil %q: %w", name, err)
	}
	if img.Empty() {
		return "", fmt.Errorf("stencil %q: %w", name, grid.ErrEmptyGrid)
	}
	l.Add(name, grid.IntensityFromVector(img, grid.ChannelRed))
	return name, nil
}

// Get returns the stencil stored under name.
func (l *StencilList) Get(name string) (*grid.Intensity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.stencils[name]
	return s, ok
}

// Remove deletes the stencil and reports whether it existed.
func (l *StencilList) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.stencils[name]
	delete(l.stencils, name)
	return ok
}

// Names returns the stored names in sorted order.
func (l *StencilList) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.stencils))
	for n := range l.stencils {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Brush renders the named stencil as a diameter*diameter color brush whose
// alpha follows the stencil shape.
func (l *StencilList) Brush(name string, diameter int, color mgl64.Vec4) (*grid.Vector, bool) {
	shape, ok := l.Get(name)
	if !ok || diameter <= 0 {
		return nil, false
	}
	return grid.VectorFromIntensity(grid.Scaled(shape, diameter, diameter), color, grid.ModeMaskAlpha), true
}
