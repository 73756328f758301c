package virtualcam

import (
	"sync"

	"github.com/jo-hoe/woundtrack/internal/capture"
)

// DefaultPreviewElement is the element id the camera page renders the preview into.
const DefaultPreviewElement = "previewBox"

// Screen implements capture.Layout and capture.ViewportEvents.
type Screen struct {
	mu          sync.Mutex
	rects       map[string]capture.Rect
	dpr         float64
	resize      map[int]func()
	orientation map[int]func()
	nextID      int
}

func NewScreen(dpr float64) *Screen {
	return &Screen{
		rects:       map[string]capture.Rect{},
		dpr:         dpr,
		resize:      map[int]func(){},
		orientation: map[int]func(){},
	}
}

func (s *Screen) SetRect(elementID string, rect capture.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rects[elementID] = rect
}

func (s *Screen) RemoveRect(elementID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rects, elementID)
}

func (s *Screen) BoundingRect(elementID string) (capture.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rect, ok := s.rects[elementID]
	return rect, ok
}

func (s *Screen) DevicePixelRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dpr
}

func (s *Screen) OnResize(fn func()) func() {
	return s.register(s.resize, fn)
}

func (s *Screen) OnOrientationChange(fn func()) func() {
	return s.register(s.orientation, fn)
}

func (s *Screen) register(handlers map[int]func(), fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	handlers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(handlers, id)
	}
}

// Listeners returns the number of registered handlers.
func (s *Screen) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resize) + len(s.orientation)
}

// Resize moves an element and fires resize handlers.
func (s *Screen) Resize(elementID string, rect capture.Rect) {
	s.SetRect(elementID, rect)
	s.fire(s.resize)
}

// Rotate swaps an element's width and height and fires orientation handlers.
func (s *Screen) Rotate(elementID string) {
	s.mu.Lock()
	if rect, ok := s.rects[elementID]; ok {
		rect.Width, rect.Height = rect.Height, rect.Width
		s.rects[elementID] = rect
	}
	s.mu.Unlock()
	s.fire(s.orientation)
}

func (s *Screen) fire(handlers map[int]func()) {
	s.mu.Lock()
	fns := make([]func(), 0, len(handlers))
	for _, fn := range handlers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Devices wires one camera and screen into a capture.Devices bundle with a
// portrait preview element.
func Devices(camera *Camera, screen *Screen) capture.Devices {
	if _, ok := screen.BoundingRect(DefaultPreviewElement); !ok {
		screen.SetRect(DefaultPreviewElement, capture.Rect{Left: 0, Top: 56, Width: 360, Height: 480})
	}
	return capture.Devices{
		Media:    camera,
		Surface:  camera.Surface(),
		Preview:  camera.Preview(),
		Layout:   screen,
		Viewport: screen,

		Permissions: camera,
	}
}
