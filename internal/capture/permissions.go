package capture

import (
	"context"
	"fmt"

	"github.com/jo-hoe/woundtrack/internal/common"
)

type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Permissions is the platform camera permission surface.
type Permissions interface {
	Check(ctx context.Context) (PermissionState, error)
	// Request asks the user when the state is not yet granted.
	Request(ctx context.Context) (PermissionState, error)
}

// ensurePermission checks the camera permission and requests it when it
// is not granted. A nil Permissions means the platform grants implicitly.
func ensurePermission(ctx context.Context, permissions Permissions) error {
	if permissions == nil {
		return nil
	}
	state, err := permissions.Check(ctx)
	if err != nil {
		return fmt.Errorf("camera permission check failed: %w", err)
	}
	if state == PermissionGranted {
		return nil
	}
	state, err = permissions.Request(ctx)
	if err != nil {
		return fmt.Errorf("camera permission request failed: %w", err)
	}
	if state != PermissionGranted {
		return fmt.Errorf("%w: camera permission %s", common.ErrPermissionDenied, state)
	}
	return nil
}
