package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/jo-hoe/woundtrack/internal/backend/imageprocessing"
	"github.com/jo-hoe/woundtrack/internal/common"
)

// MediaConstraints describes the requested stream.
type MediaConstraints struct {
	FacingMode string
	Audio      bool
}

type MediaTrack interface {
	Stop()
}

type MediaStream interface {
	Tracks() []MediaTrack
}

// MediaDevices is the platform media API.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, constraints MediaConstraints) (MediaStream, error)
}

// VideoSurface is the visible element a stream is bound to.
type VideoSurface interface {
	// Attach binds the stream and starts playback.
	Attach(ctx context.Context, stream MediaStream) error
	Detach()
	// HasEnoughData reports whether at least one full frame was delivered.
	HasEnoughData() bool
	VideoSize() (width, height int)
	CurrentFrame() (image.Image, error)
}

// WebBackend captures from an environment-facing media stream.
type WebBackend struct {
	mu      sync.Mutex
	devices MediaDevices
	surface VideoSurface
	stream  MediaStream
	quality int

	permissions Permissions
}

func NewWebBackend(devices MediaDevices, surface VideoSurface, quality int) *WebBackend {
	if quality < 1 || quality > 100 {
		quality = imageprocessing.DefaultJPEGQuality
	}
	return &WebBackend{
		devices: devices,
		surface: surface,
		quality: quality,
	}
}

// Start requests a new stream. The region is ignored; the stream renders
// into the bound video surface.
func (b *WebBackend) Start(ctx context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	if err := ensurePermission(ctx, b.permissions); err != nil {
		slog.Warn("web capture: camera permission not granted", "error", err)
		return startError(err)
	}

	stream, err := b.devices.GetUserMedia(ctx, MediaConstraints{FacingMode: "environment", Audio: false})
	if err != nil {
		slog.Warn("web capture: stream request failed", "error", err)
		return startError(err)
	}
	if stream == nil {
		slog.Warn("web capture: platform returned no stream")
		return startError(fmt.Errorf("no stream returned"))
	}

	if err := b.surface.Attach(ctx, stream); err != nil {
		stopTracks(stream)
		slog.Warn("web capture: failed to bind stream to video surface", "error", err)
		return startError(err)
	}

	b.stream = stream
	slog.Info("web capture: stream started", "tracks", len(stream.Tracks()))
	return nil
}

func (b *WebBackend) Stop(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	return nil
}

func (b *WebBackend) stopLocked() {
	if b.stream == nil {
		return
	}
	stopTracks(b.stream)
	b.surface.Detach()
	b.stream = nil
	slog.Info("web capture: stream stopped")
}

func stopTracks(stream MediaStream) {
	for _, track := range stream.Tracks() {
		track.Stop()
	}
}

func (b *WebBackend) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stream != nil
}

// CaptureStill rasterizes the current frame at the video's native size.
func (b *WebBackend) CaptureStill(_ context.Context) (Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil || !b.surface.HasEnoughData() {
		return Artifact{}, captureError(common.ErrNotReady)
	}

	frame, err := b.surface.CurrentFrame()
	if err != nil {
		slog.Warn("web capture: failed to read frame", "error", err)
		return Artifact{}, captureError(err)
	}

	width, height := b.surface.VideoSize()
	canvas := imageprocessing.Rasterize(frame, width, height)
	data, err := imageprocessing.EncodeJPEG(canvas, b.quality)
	if err != nil {
		return Artifact{}, captureError(err)
	}

	slog.Debug("web capture: still captured",
		"width", canvas.Bounds().Dx(),
		"height", canvas.Bounds().Dy(),
		"size_bytes", len(data))
	return Artifact{MediaType: JPEGMediaType, Data: data}, nil
}

// Watch returns an inert subscription; a bound video surface follows layout on its own.
func (b *WebBackend) Watch(_ func()) *Subscription {
	return &Subscription{}
}
