// Package virtualcam is a software camera that satisfies every platform
// surface the capture backends consume. Frames are a rendered test card.
// The camera grants the sensor to one consumer at a time, like real hardware.
package virtualcam

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"sync"

	"github.com/jo-hoe/woundtrack/internal/backend/imageprocessing"
	"github.com/jo-hoe/woundtrack/internal/capture"
	"github.com/jo-hoe/woundtrack/internal/common"
)

const (
	grantNone    = ""
	grantStream  = "stream"
	grantPreview = "preview"
)

type Options struct {
	Width          int
	Height         int
	DenyPermission bool
}

type Camera struct {
	mu     sync.Mutex
	width  int
	height int
	deny   bool
	grant  string
	frame  int

	permission capture.PermissionState

	surface *Surface
	preview *Preview
}

func New(opts Options) *Camera {
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	c := &Camera{width: width, height: height, deny: opts.DenyPermission, permission: capture.PermissionPrompt}
	c.surface = &Surface{camera: c}
	c.preview = &Preview{camera: c}
	return c
}

// Holder returns the current grant holder, empty when the sensor is free.
func (c *Camera) Holder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grant
}

// SetPermission toggles simulated permission denial.
func (c *Camera) SetPermission(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deny = !granted
	c.permission = capture.PermissionDenied
	if granted {
		c.permission = capture.PermissionGranted
	}
}

// Check implements capture.Permissions. A fresh camera has not been asked yet.
func (c *Camera) Check(_ context.Context) (capture.PermissionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission, nil
}

// Request implements capture.Permissions; the simulated user answers
// according to DenyPermission.
func (c *Camera) Request(ctx context.Context) (capture.PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permission = capture.PermissionGranted
	if c.deny {
		c.permission = capture.PermissionDenied
	}
	return c.permission, nil
}

func (c *Camera) acquire(kind string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deny {
		return common.ErrPermissionDenied
	}
	if c.grant != grantNone {
		return fmt.Errorf("%w: sensor held by %s", common.ErrHardwareUnavailable, c.grant)
	}
	c.grant = kind
	return nil
}

func (c *Camera) release(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.grant == kind {
		c.grant = grantNone
	}
}

func (c *Camera) holds(kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grant == kind
}

func (c *Camera) size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *Camera) nextFrame(width, height int) (image.Image, error) {
	c.mu.Lock()
	c.frame++
	frame := c.frame
	c.mu.Unlock()
	return RenderTestCard(width, height, frame)
}

// GetUserMedia implements capture.MediaDevices.
func (c *Camera) GetUserMedia(ctx context.Context, _ capture.MediaConstraints) (capture.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.acquire(grantStream); err != nil {
		return nil, err
	}
	return &stream{track: &track{camera: c}}, nil
}

type stream struct {
	track *track
}

func (s *stream) Tracks() []capture.MediaTrack {
	return []capture.MediaTrack{s.track}
}

type track struct {
	once   sync.Once
	camera *Camera
}

func (t *track) Stop() {
	t.once.Do(func() { t.camera.release(grantStream) })
}

// Surface implements capture.VideoSurface.
type Surface struct {
	mu     sync.Mutex
	camera *Camera
	stream capture.MediaStream
}

// Surface returns the camera's single video surface.
func (c *Camera) Surface() *Surface {
	return c.surface
}

func (s *Surface) Attach(ctx context.Context, stream capture.MediaStream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
	return nil
}

func (s *Surface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
}

func (s *Surface) HasEnoughData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil && s.camera.holds(grantStream)
}

func (s *Surface) VideoSize() (int, int) {
	return s.camera.size()
}

func (s *Surface) CurrentFrame() (image.Image, error) {
	if !s.HasEnoughData() {
		return nil, common.ErrNotReady
	}
	width, height := s.camera.size()
	return s.camera.nextFrame(width, height)
}

// Preview implements capture.PreviewPlugin.
type Preview struct {
	mu     sync.Mutex
	camera *Camera
	opts   *capture.PreviewOptions
}

// Preview returns the camera's single native preview.
func (c *Camera) Preview() *Preview {
	return c.preview
}

func (p *Preview) Start(ctx context.Context, opts capture.PreviewOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts != nil {
		return fmt.Errorf("camera already started")
	}
	if err := p.camera.acquire(grantPreview); err != nil {
		return err
	}
	p.opts = &opts
	return nil
}

func (p *Preview) Stop(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts == nil {
		return fmt.Errorf("camera not started")
	}
	p.camera.release(grantPreview)
	p.opts = nil
	return nil
}

// Options returns the options of the running preview.
func (p *Preview) Options() (capture.PreviewOptions, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts == nil {
		return capture.PreviewOptions{}, false
	}
	return *p.opts, true
}

func (p *Preview) Capture(_ context.Context, quality int) (string, error) {
	opts, ok := p.Options()
	if !ok {
		return "", fmt.Errorf("camera not started")
	}
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = p.camera.size()
	}
	frame, err := p.camera.nextFrame(width, height)
	if err != nil {
		return "", err
	}
	data, err := imageprocessing.EncodeJPEG(frame, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
