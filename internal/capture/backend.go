// Package capture owns the live camera source. Two interchangeable backends,
// a browser video stream and a native live-preview surface, implement one
// Backend contract and are selected once per process by platform.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jo-hoe/woundtrack/internal/common"
)

type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformNative Platform = "native"
)

// DetectPlatform maps a configured platform name to a backend family.
func DetectPlatform(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "web", "browser":
		return PlatformWeb, nil
	case "native", "android", "ios":
		return PlatformNative, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", name)
	}
}

// Backend is the single capture capability exposed to callers.
type Backend interface {
	// Start acquires the camera and binds it to the preview region.
	// Calling Start on a running backend restarts it.
	Start(ctx context.Context, region string) error
	// Stop releases the camera. It is safe to call at any time.
	Stop(ctx context.Context) error
	// CaptureStill returns a JPEG still of the current frame.
	CaptureStill(ctx context.Context) (Artifact, error)
	// Active reports whether a stream or preview is currently held.
	Active() bool
	// Watch subscribes onReflow to layout changes that invalidate the preview.
	Watch(onReflow func()) *Subscription
}

// Devices bundles the platform surfaces a backend may consume.
type Devices struct {
	Media    MediaDevices
	Surface  VideoSurface
	Preview  PreviewPlugin
	Layout   Layout
	Viewport ViewportEvents

	// Permissions is optional; without it the camera is assumed granted.
	Permissions Permissions
}

// NewBackend selects the backend for platform.
func NewBackend(platform Platform, devices Devices, quality int) (Backend, error) {
	switch platform {
	case PlatformWeb:
		if devices.Media == nil || devices.Surface == nil {
			return nil, fmt.Errorf("web capture requires media devices and a video surface")
		}
		backend := NewWebBackend(devices.Media, devices.Surface, quality)
		backend.permissions = devices.Permissions
		return backend, nil
	case PlatformNative:
		if devices.Preview == nil || devices.Layout == nil {
			return nil, fmt.Errorf("native capture requires a preview plugin and a layout")
		}
		backend := NewNativeBackend(devices.Preview, devices.Layout, devices.Viewport, quality)
		backend.permissions = devices.Permissions
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// startError classifies a start failure. Anything that is not a permission
// problem is reported as unavailable hardware.
func startError(cause error) error {
	if errors.Is(cause, common.ErrPermissionDenied) || errors.Is(cause, common.ErrHardwareUnavailable) {
		return fmt.Errorf("%w: %w", common.ErrStartFailed, cause)
	}
	return fmt.Errorf("%w: %w: %w", common.ErrStartFailed, common.ErrHardwareUnavailable, cause)
}

func captureError(cause error) error {
	return fmt.Errorf("%w: %w", common.ErrCaptureFailed, cause)
}
