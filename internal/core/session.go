package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/woundtrack/internal/backend/imageprocessing"
	"github.com/jo-hoe/woundtrack/internal/capture"
	"github.com/jo-hoe/woundtrack/internal/common"
)

type Mode string

const (
	ModeCamera Mode = "camera"
	ModeUpload Mode = "upload"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeCamera, ModeUpload:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unsupported capture mode: %s", value)
	}
}

var errCaptureDisabled = errors.New("no capture device configured")

// CaptureSession drives one capture screen: it owns the backend lifetime,
// the current input mode and the pending upload preview.
type CaptureSession struct {
	mu        sync.Mutex
	backend   capture.Backend
	photos    *PhotoStore
	converter *imageprocessing.JPEGConverter
	metrics   *Metrics
	region    string
	mode      Mode
	open      bool
	reflow    *capture.Subscription
	preview   *capture.Artifact
}

// NewCaptureSession creates a closed session in camera mode. backend may be
// nil when no capture device exists; only upload mode works then.
func NewCaptureSession(backend capture.Backend, photos *PhotoStore, converter *imageprocessing.JPEGConverter, region string, metrics *Metrics) *CaptureSession {
	return &CaptureSession{
		backend:   backend,
		photos:    photos,
		converter: converter,
		metrics:   metrics,
		region:    region,
		mode:      ModeCamera,
	}
}

// Open subscribes to layout changes and starts the camera when in camera
// mode. A failed start leaves the session open so the caller may retry.
func (s *CaptureSession) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}
	s.open = true
	if s.backend != nil {
		s.reflow = s.backend.Watch(s.onReflow)
	}
	if s.mode == ModeCamera {
		return s.startLocked(ctx)
	}
	return nil
}

func (s *CaptureSession) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *CaptureSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Active reports whether the camera is currently held.
func (s *CaptureSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend != nil && s.backend.Active()
}

// SetMode switches input. Leaving camera mode stops the backend before
// returning; entering it starts the backend if the session is open.
func (s *CaptureSession) SetMode(ctx context.Context, mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	switch mode {
	case ModeUpload:
		if s.backend != nil {
			if err := s.backend.Stop(ctx); err != nil {
				slog.Warn("failed to stop camera", "error", err)
			}
		}
		return nil
	case ModeCamera:
		s.preview = nil
		if !s.open {
			return nil
		}
		return s.startLocked(ctx)
	default:
		return fmt.Errorf("unsupported capture mode: %s", mode)
	}
}

// SetUploadPreview converts an uploaded image to JPEG and holds it until
// the next Shoot.
func (s *CaptureSession) SetUploadPreview(data []byte) (capture.Artifact, error) {
	converted, err := s.converter.Convert(data)
	if err != nil {
		return capture.Artifact{}, err
	}
	artifact := capture.Artifact{MediaType: capture.JPEGMediaType, Data: converted}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = &artifact
	return artifact, nil
}

// UploadPreview returns the pending upload, if any.
func (s *CaptureSession) UploadPreview() (capture.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return capture.Artifact{}, false
	}
	return *s.preview, true
}

// Shoot saves the current frame, or the pending upload in upload mode.
func (s *CaptureSession) Shoot(ctx context.Context) (PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var artifact capture.Artifact
	switch s.mode {
	case ModeUpload:
		if s.preview == nil {
			return PhotoRecord{}, fmt.Errorf("%w: %w: no image uploaded", common.ErrCaptureFailed, common.ErrNotReady)
		}
		artifact = *s.preview
	default:
		if s.backend == nil {
			return PhotoRecord{}, fmt.Errorf("%w: %w: %w", common.ErrCaptureFailed, common.ErrHardwareUnavailable, errCaptureDisabled)
		}
		still, err := s.backend.CaptureStill(ctx)
		if err != nil {
			s.metrics.captureFailed()
			slog.Warn("capture failed", "error", err)
			return PhotoRecord{}, err
		}
		artifact = still
	}

	record, err := s.photos.Save(ctx, artifact.Data)
	if err != nil {
		return PhotoRecord{}, err
	}
	if s.mode == ModeUpload {
		s.preview = nil
	}
	return record, nil
}

// SwitchBackend replaces the backend, stopping the old one first.
func (s *CaptureSession) SwitchBackend(ctx context.Context, next capture.Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reflow.Unsubscribe()
	s.reflow = nil
	if s.backend != nil {
		if err := s.backend.Stop(ctx); err != nil {
			slog.Warn("failed to stop previous camera", "error", err)
		}
	}
	s.backend = next
	if !s.open || next == nil {
		return nil
	}
	s.reflow = next.Watch(s.onReflow)
	if s.mode == ModeCamera {
		return s.startLocked(ctx)
	}
	return nil
}

// Close unsubscribes from layout changes and releases the camera. It is
// idempotent.
func (s *CaptureSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = false
	s.reflow.Unsubscribe()
	s.reflow = nil
	if s.backend == nil {
		return nil
	}
	return s.backend.Stop(ctx)
}

func (s *CaptureSession) startLocked(ctx context.Context) error {
	if s.backend == nil {
		return fmt.Errorf("%w: %w: %w", common.ErrStartFailed, common.ErrHardwareUnavailable, errCaptureDisabled)
	}
	if err := s.backend.Start(ctx, s.region); err != nil {
		slog.Warn("failed to start camera", "region", s.region, "error", err)
		return err
	}
	return nil
}

// onReflow restarts the preview so it tracks the new layout.
func (s *CaptureSession) onReflow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open || s.mode != ModeCamera || s.backend == nil {
		return
	}
	if err := s.backend.Start(context.Background(), s.region); err != nil {
		slog.Warn("failed to restart camera after layout change", "error", err)
	}
}
