package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/jo-hoe/woundtrack/internal/backend/imageprocessing"
	"github.com/jo-hoe/woundtrack/internal/common"
)

// Rect is a layout rectangle in CSS pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// PreviewOptions are passed to the native preview plugin, in device pixels.
type PreviewOptions struct {
	Position             string
	X                    int
	Y                    int
	Width                int
	Height               int
	ToBack               bool
	DisableAudio         bool
	EnableHighResolution bool
	StoreToFile          bool
}

// PreviewPlugin renders a live camera feed into a screen rectangle.
type PreviewPlugin interface {
	Start(ctx context.Context, opts PreviewOptions) error
	Stop(ctx context.Context) error
	// Capture returns a base64 encoded JPEG of the current preview frame.
	Capture(ctx context.Context, quality int) (string, error)
}

// Layout resolves on-screen geometry.
type Layout interface {
	BoundingRect(elementID string) (Rect, bool)
	DevicePixelRatio() float64
}

// NativeBackend drives a platform live-preview surface.
type NativeBackend struct {
	mu       sync.Mutex
	plugin   PreviewPlugin
	layout   Layout
	viewport ViewportEvents
	running  bool
	quality  int

	permissions Permissions
}

func NewNativeBackend(plugin PreviewPlugin, layout Layout, viewport ViewportEvents, quality int) *NativeBackend {
	if quality < 1 || quality > 100 {
		quality = imageprocessing.DefaultJPEGQuality
	}
	return &NativeBackend{
		plugin:   plugin,
		layout:   layout,
		viewport: viewport,
		quality:  quality,
	}
}

// Start renders the preview into the rectangle of the region element.
// A running preview is stopped first, so Start doubles as restart on reflow.
func (b *NativeBackend) Start(ctx context.Context, region string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		b.stopLocked(ctx)
	}

	if err := ensurePermission(ctx, b.permissions); err != nil {
		slog.Warn("native capture: camera permission not granted", "error", err)
		return startError(err)
	}

	rect, ok := b.layout.BoundingRect(region)
	if !ok {
		slog.Warn("native capture: preview element not found", "element", region)
		return startError(fmt.Errorf("preview element %q not found", region))
	}
	dpr := b.layout.DevicePixelRatio()
	if dpr <= 0 {
		dpr = 1
	}

	opts := PreviewOptions{
		Position:             "rear",
		X:                    int(math.Round(rect.Left * dpr)),
		Y:                    int(math.Round(rect.Top * dpr)),
		Width:                int(math.Round(rect.Width * dpr)),
		Height:               int(math.Round(rect.Height * dpr)),
		ToBack:               false,
		DisableAudio:         true,
		EnableHighResolution: true,
		StoreToFile:          false,
	}
	if err := b.plugin.Start(ctx, opts); err != nil {
		slog.Warn("native capture: preview start failed", "error", err)
		return startError(err)
	}

	b.running = true
	slog.Info("native capture: preview started",
		"x", opts.X, "y", opts.Y, "width", opts.Width, "height", opts.Height)
	return nil
}

// Stop never fails; plugin errors for an inactive preview are logged and dropped.
func (b *NativeBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked(ctx)
	return nil
}

func (b *NativeBackend) stopLocked(ctx context.Context) {
	if err := b.plugin.Stop(ctx); err != nil {
		slog.Debug("native capture: preview stop ignored", "error", err, "was_running", b.running)
	} else if b.running {
		slog.Info("native capture: preview stopped")
	}
	b.running = false
}

func (b *NativeBackend) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// CaptureStill takes a one-shot frame and re-wraps it as a JPEG data URI
// so the result matches the web backend's output.
func (b *NativeBackend) CaptureStill(ctx context.Context) (Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return Artifact{}, captureError(common.ErrNotReady)
	}

	payload, err := b.plugin.Capture(ctx, b.quality)
	if err != nil {
		slog.Warn("native capture: capture failed", "error", err)
		return Artifact{}, captureError(err)
	}

	artifact, err := ParseDataURI(JPEGDataURIPrefix + payload)
	if err != nil {
		slog.Warn("native capture: plugin returned malformed payload", "error", err)
		return Artifact{}, captureError(err)
	}
	return artifact, nil
}

// Watch subscribes onReflow to resize and orientation changes.
func (b *NativeBackend) Watch(onReflow func()) *Subscription {
	sub := &Subscription{}
	if b.viewport == nil || onReflow == nil {
		return sub
	}
	sub.add(b.viewport.OnResize(onReflow))
	sub.add(b.viewport.OnOrientationChange(onReflow))
	return sub
}
