package common

import "errors"

// Failure taxonomy shared by capture backends, stores and handlers.
var (
	ErrPermissionDenied    = errors.New("camera permission denied")
	ErrHardwareUnavailable = errors.New("camera hardware unavailable")
	ErrNotReady            = errors.New("no frame available yet")
	ErrStorageRead         = errors.New("storage read failed")
	ErrStorageWrite        = errors.New("storage write failed")
	ErrCorrupt             = errors.New("persisted data is corrupt")

	// ErrStartFailed wraps any failure to bring a live source up.
	ErrStartFailed = errors.New("start failed")
	// ErrCaptureFailed wraps any failure to produce a still from a running source.
	ErrCaptureFailed = errors.New("capture failed")
)
