package capture

import (
	"context"
	"errors"
	"image"
	"sync"
)

type fakeTrack struct {
	stopped bool
}

func (t *fakeTrack) Stop() { t.stopped = true }

type fakeStream struct {
	tracks []*fakeTrack
}

func (s *fakeStream) Tracks() []MediaTrack {
	out := make([]MediaTrack, 0, len(s.tracks))
	for _, track := range s.tracks {
		out = append(out, track)
	}
	return out
}

func (s *fakeStream) allStopped() bool {
	for _, track := range s.tracks {
		if !track.stopped {
			return false
		}
	}
	return true
}

type fakeMedia struct {
	err         error
	streams     []*fakeStream
	constraints []MediaConstraints
}

func (m *fakeMedia) GetUserMedia(_ context.Context, c MediaConstraints) (MediaStream, error) {
	m.constraints = append(m.constraints, c)
	if m.err != nil {
		return nil, m.err
	}
	stream := &fakeStream{tracks: []*fakeTrack{{}}}
	m.streams = append(m.streams, stream)
	return stream, nil
}

type fakeSurface struct {
	attached  MediaStream
	attachErr error
	ready     bool
	width     int
	height    int
	frame     image.Image
}

func (s *fakeSurface) Attach(_ context.Context, stream MediaStream) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attached = stream
	return nil
}

func (s *fakeSurface) Detach()                  { s.attached = nil }
func (s *fakeSurface) HasEnoughData() bool      { return s.attached != nil && s.ready }
func (s *fakeSurface) VideoSize() (int, int)    { return s.width, s.height }
func (s *fakeSurface) CurrentFrame() (image.Image, error) {
	if s.frame == nil {
		return nil, errors.New("no frame")
	}
	return s.frame, nil
}

type fakePlugin struct {
	running    bool
	startErr   error
	captureErr error
	payload    string
	starts     []PreviewOptions
	stopCalls  int
}

func (p *fakePlugin) Start(_ context.Context, opts PreviewOptions) error {
	if p.startErr != nil {
		return p.startErr
	}
	if p.running {
		return errors.New("camera already started")
	}
	p.starts = append(p.starts, opts)
	p.running = true
	return nil
}

func (p *fakePlugin) Stop(_ context.Context) error {
	p.stopCalls++
	if !p.running {
		return errors.New("camera not started")
	}
	p.running = false
	return nil
}

func (p *fakePlugin) Capture(_ context.Context, _ int) (string, error) {
	if p.captureErr != nil {
		return "", p.captureErr
	}
	return p.payload, nil
}

type fakeLayout struct {
	rects map[string]Rect
	dpr   float64
}

func (l *fakeLayout) BoundingRect(id string) (Rect, bool) {
	r, ok := l.rects[id]
	return r, ok
}

func (l *fakeLayout) DevicePixelRatio() float64 { return l.dpr }

type fakeViewport struct {
	mu       sync.Mutex
	handlers map[int]func()
	next     int
}

func (v *fakeViewport) register(fn func()) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.handlers == nil {
		v.handlers = map[int]func(){}
	}
	id := v.next
	v.next++
	v.handlers[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.handlers, id)
	}
}

func (v *fakeViewport) OnResize(fn func()) func()            { return v.register(fn) }
func (v *fakeViewport) OnOrientationChange(fn func()) func() { return v.register(fn) }

func (v *fakeViewport) fire() {
	v.mu.Lock()
	handlers := make([]func(), 0, len(v.handlers))
	for _, fn := range v.handlers {
		handlers = append(handlers, fn)
	}
	v.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (v *fakeViewport) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.handlers)
}

type fakePermissions struct {
	state    PermissionState
	answer   PermissionState
	err      error
	requests int
}

func (p *fakePermissions) Check(_ context.Context) (PermissionState, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.state, nil
}

func (p *fakePermissions) Request(_ context.Context) (PermissionState, error) {
	p.requests++
	p.state = p.answer
	return p.state, nil
}
