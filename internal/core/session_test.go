package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jo-hoe/woundtrack/internal/backend/imageprocessing"
	"github.com/jo-hoe/woundtrack/internal/common"
)

func newTestSession(t *testing.T) (*CaptureSession, *fakeBackend, *testEnv) {
	t.Helper()
	env := newTestEnv(t, false)
	backend := &fakeBackend{still: []byte("frame")}
	converter := imageprocessing.NewJPEGConverter(imageprocessing.DefaultJPEGQuality)
	return NewCaptureSession(backend, env.photos, converter, "previewBox", nil), backend, env
}

func TestSession_OpenStartsCamera(t *testing.T) {
	session, backend, _ := newTestSession(t)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if !session.Active() {
		t.Fatal("expected camera to be active after open")
	}
	if err := session.Open(ctx); err != nil {
		t.Fatalf("second Open error: %v", err)
	}
	if starts, _ := backend.counts(); starts != 1 {
		t.Fatalf("expected a single start, got %d", starts)
	}
}

func TestSession_OpenReportsStartFailure(t *testing.T) {
	session, backend, _ := newTestSession(t)
	backend.startErr = common.ErrPermissionDenied

	err := session.Open(context.Background())
	if !errors.Is(err, common.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if !session.IsOpen() {
		t.Fatal("session should stay open for a retry")
	}
}

func TestSession_ShootSavesFrame(t *testing.T) {
	session, _, env := newTestSession(t)
	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		t.Fatalf("Open error: %v", err)
	}

	record, err := session.Shoot(ctx)
	if err != nil {
		t.Fatalf("Shoot error: %v", err)
	}
	data, err := env.files.ReadFile(ctx, record.URI)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "frame" {
		t.Fatalf("unexpected artifact %q", data)
	}
}

func TestSession_ShootBeforeStartIsNotReady(t *testing.T) {
	session, _, env := newTestSession(t)

	_, err := session.Shoot(context.Background())
	if !errors.Is(err, common.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if got := env.photos.List(context.Background()); len(got) != 0 {
		t.Fatalf("failed capture must not save, got %d records", len(got))
	}
}

func TestSession_UploadModeStopsCamera(t *testing.T) {
	session, backend, _ := newTestSession(t)
	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		t.Fatalf("Open error: %v", err)
	}

	if err := session.SetMode(ctx, ModeUpload); err != nil {
		t.Fatalf("SetMode error: %v", err)
	}
	if session.Active() {
		t.Fatal("camera must be stopped once SetMode returns")
	}
	if _, stops := backend.counts(); stops != 1 {
		t.Fatalf("expected one stop, got %d", stops)
	}

	backend.reflow()
	if starts, _ := backend.counts(); starts != 1 {
		t.Fatal("layout change in upload mode must not restart the camera")
	}

	if err := session.SetMode(ctx, ModeCamera); err != nil {
		t.Fatalf("SetMode error: %v", err)
	}
	if !session.Active() {
		t.Fatal("expected camera to restart in camera mode")
	}
}

func TestSession_UploadShoot(t *testing.T) {
	session, _, env := newTestSession(t)
	ctx := context.Background()
	if err := session.SetMode(ctx, ModeUpload); err != nil {
		t.Fatalf("SetMode error: %v", err)
	}

	if _, err := session.Shoot(ctx); !errors.Is(err, common.ErrNotReady) {
		t.Fatalf("expected not ready without upload, got %v", err)
	}

	artifact, err := session.SetUploadPreview(testPNG(t))
	if err != nil {
		t.Fatalf("SetUploadPreview error: %v", err)
	}
	if artifact.MediaType != "image/jpeg" {
		t.Fatalf("expected jpeg preview, got %q", artifact.MediaType)
	}
	if _, ok := session.UploadPreview(); !ok {
		t.Fatal("expected pending preview")
	}

	record, err := session.Shoot(ctx)
	if err != nil {
		t.Fatalf("Shoot error: %v", err)
	}
	if _, ok := session.UploadPreview(); ok {
		t.Fatal("preview should be consumed by shoot")
	}
	if got := env.photos.List(ctx); len(got) != 1 || got[0].Path != record.Path {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestSession_ReflowRestartsInCameraMode(t *testing.T) {
	session, backend, _ := newTestSession(t)
	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		t.Fatalf("Open error: %v", err)
	}

	backend.reflow()
	if starts, _ := backend.counts(); starts != 2 {
		t.Fatalf("expected restart on layout change, got %d starts", starts)
	}

	if err := session.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	backend.reflow()
	if starts, _ := backend.counts(); starts != 2 {
		t.Fatal("closed session must ignore layout changes")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		t.Fatalf("Open error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := session.Close(ctx); err != nil {
			t.Fatalf("Close #%d error: %v", i+1, err)
		}
	}
	if session.Active() || session.IsOpen() {
		t.Fatal("expected session to be closed and inactive")
	}
}

func TestSession_SwitchBackend(t *testing.T) {
	session, first, _ := newTestSession(t)
	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		t.Fatalf("Open error: %v", err)
	}

	second := &fakeBackend{still: []byte("other")}
	if err := session.SwitchBackend(ctx, second); err != nil {
		t.Fatalf("SwitchBackend error: %v", err)
	}
	if first.Active() {
		t.Fatal("previous backend must be stopped")
	}
	if !second.Active() {
		t.Fatal("new backend must be started")
	}
}

func TestSession_WithoutBackend(t *testing.T) {
	env := newTestEnv(t, false)
	converter := imageprocessing.NewJPEGConverter(imageprocessing.DefaultJPEGQuality)
	session := NewCaptureSession(nil, env.photos, converter, "previewBox", nil)
	ctx := context.Background()

	if err := session.Open(ctx); !errors.Is(err, common.ErrHardwareUnavailable) {
		t.Fatalf("expected hardware unavailable, got %v", err)
	}
	if err := session.SetMode(ctx, ModeUpload); err != nil {
		t.Fatalf("SetMode error: %v", err)
	}
	if _, err := session.SetUploadPreview(testPNG(t)); err != nil {
		t.Fatalf("SetUploadPreview error: %v", err)
	}
	if _, err := session.Shoot(ctx); err != nil {
		t.Fatalf("upload shoot without camera should work, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("upload"); err != nil || m != ModeUpload {
		t.Fatalf("ParseMode(upload) = %q, %v", m, err)
	}
	if _, err := ParseMode("video"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
