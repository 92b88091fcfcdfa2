package core

import "sync"

const (
	// MinResolution and MaxResolution bound both generation resolutions.
	MinResolution = 1
	MaxResolution = 8192

	DefaultPreviewResolution = 256
	DefaultRenderResolution  = 1024
)

// Settings holds the process-wide generation resolutions. It is owned by the
// application root and handed to nodes through their environment.
type Settings struct {
	mu         sync.RWMutex
	preview    int
	render     int
	renderMode bool
	subs       []func()
}

// NewSettings constructs Settings with both resolutions clamped to
// [MinResolution, MaxResolution].
func NewSettings(preview, render int) *Settings {
	return &Settings{preview: clampResolution(preview), render: clampResolution(render)}
}

// DefaultSettings returns preview mode at the default resolutions.
func DefaultSettings() *Settings {
	return NewSettings(DefaultPreviewResolution, DefaultRenderResolution)
}

func clampResolution(n int) int {
	if n < MinResolution {
		return MinResolution
	}
	if n > MaxResolution {
		return MaxResolution
	}
	return n
}

// PreviewResolution returns the edge length used while editing.
func (s *Settings) PreviewResolution() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preview
}

// RenderResolution returns the edge length used for final output.
func (s *Settings) RenderResolution() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.render
}

// RenderMode reports whether the render resolution is active.
func (s *Settings) RenderMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderMode
}

// Resolution returns the active edge length.
func (s *Settings) Resolution() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.renderMode {
		return s.render
	}
	return s.preview
}

// Size returns the active resolution as a square Size.
func (s *Settings) Size() Size { return Square(s.Resolution()) }

// SetPreviewResolution updates the preview resolution and reports whether the
// value changed.
func (s *Settings) SetPreviewResolution(n int) bool {
	return s.update(func() bool {
		n = clampResolution(n)
		if n == s.preview {
			return false
		}
		s.preview = n
		return true
	})
}

// SetRenderResolution updates the render resolution and reports whether the
// value changed.
func (s *Settings) SetRenderResolution(n int) bool {
	return s.update(func() bool {
		n = clampResolution(n)
		if n == s.render {
			return false
		}
		s.render = n
		return true
	})
}

// SetRenderMode switches between preview and render resolution and reports
// whether the value changed.
func (s *Settings) SetRenderMode(on bool) bool {
	return s.update(func() bool {
		if on == s.renderMode {
			return false
		}
		s.renderMode = on
		return true
	})
}

// Subscribe registers fn to run after every change. Callbacks run on the
// goroutine that made the change, outside the lock.
func (s *Settings) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Settings) update(apply func() bool) bool {
	s.mu.Lock()
	changed := apply()
	subs := append([]func(){}, s.subs...)
	s.mu.Unlock()
	if changed {
		for _, fn := range subs {
			fn()
		}
	}
	return changed
}
