package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/jo-hoe/woundtrack/internal/common"
)

func TestWebBackend_StartRequestsEnvironmentStream(t *testing.T) {
	media := &fakeMedia{}
	surface := &fakeSurface{}
	backend := NewWebBackend(media, surface, 95)

	if err := backend.Start(context.Background(), "previewBox"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !backend.Active() {
		t.Fatal("expected backend to be active after Start")
	}
	if got := media.constraints[0]; got.FacingMode != "environment" || got.Audio {
		t.Fatalf("unexpected constraints: %+v", got)
	}
	if surface.attached == nil {
		t.Fatal("expected stream bound to surface")
	}
}

func TestWebBackend_RestartStopsPreviousStream(t *testing.T) {
	media := &fakeMedia{}
	backend := NewWebBackend(media, &fakeSurface{}, 95)
	ctx := context.Background()

	if err := backend.Start(ctx, ""); err != nil {
		t.Fatalf("Start #1 error: %v", err)
	}
	if err := backend.Start(ctx, ""); err != nil {
		t.Fatalf("Start #2 error: %v", err)
	}
	if !media.streams[0].allStopped() {
		t.Fatal("expected first stream to be stopped before the second start")
	}
	if media.streams[1].allStopped() {
		t.Fatal("expected second stream to be live")
	}
}

func TestWebBackend_StopHaltsTracksAndClearsBinding(t *testing.T) {
	media := &fakeMedia{}
	surface := &fakeSurface{}
	backend := NewWebBackend(media, surface, 95)
	ctx := context.Background()

	if err := backend.Start(ctx, ""); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := backend.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := backend.Stop(ctx); err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
	if !media.streams[0].allStopped() || surface.attached != nil || backend.Active() {
		t.Fatal("expected tracks stopped and binding cleared")
	}
}

func TestWebBackend_StartFailures(t *testing.T) {
	tests := []struct {
		name      string
		media     *fakeMedia
		surface   *fakeSurface
		wantCause error
	}{
		{
			name:      "permission denied",
			media:     &fakeMedia{err: common.ErrPermissionDenied},
			surface:   &fakeSurface{},
			wantCause: common.ErrPermissionDenied,
		},
		{
			name:      "device busy",
			media:     &fakeMedia{err: errors.New("NotReadableError")},
			surface:   &fakeSurface{},
			wantCause: common.ErrHardwareUnavailable,
		},
		{
			name:      "surface refuses stream",
			media:     &fakeMedia{},
			surface:   &fakeSurface{attachErr: errors.New("play() rejected")},
			wantCause: common.ErrHardwareUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewWebBackend(tt.media, tt.surface, 95)
			err := backend.Start(context.Background(), "")
			if !errors.Is(err, common.ErrStartFailed) || !errors.Is(err, tt.wantCause) {
				t.Fatalf("expected start failure wrapping %v, got %v", tt.wantCause, err)
			}
			if backend.Active() {
				t.Fatal("expected no live stream after failed start")
			}
			for _, stream := range tt.media.streams {
				if !stream.allStopped() {
					t.Fatal("expected partially acquired stream to be released")
				}
			}
		})
	}
}

func TestWebBackend_CaptureBeforeReadyFails(t *testing.T) {
	surface := &fakeSurface{ready: false}
	backend := NewWebBackend(&fakeMedia{}, surface, 95)
	ctx := context.Background()

	if _, err := backend.CaptureStill(ctx); !errors.Is(err, common.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before start, got %v", err)
	}

	if err := backend.Start(ctx, ""); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := backend.CaptureStill(ctx); !errors.Is(err, common.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before first frame, got %v", err)
	}
	if !backend.Active() {
		t.Fatal("failed capture must not tear down the stream")
	}
}

func TestWebBackend_CaptureStillSizes(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{name: "native resolution", width: 64, height: 48, wantW: 64, wantH: 48},
		{name: "zero dimensions default to 1280x720", width: 0, height: 0, wantW: 1280, wantH: 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := &fakeSurface{
				ready:  true,
				width:  tt.width,
				height: tt.height,
				frame:  image.NewRGBA(image.Rect(0, 0, 64, 48)),
			}
			backend := NewWebBackend(&fakeMedia{}, surface, 95)
			ctx := context.Background()
			if err := backend.Start(ctx, ""); err != nil {
				t.Fatalf("Start error: %v", err)
			}

			artifact, err := backend.CaptureStill(ctx)
			if err != nil {
				t.Fatalf("CaptureStill error: %v", err)
			}
			if artifact.MediaType != JPEGMediaType {
				t.Fatalf("expected %s, got %s", JPEGMediaType, artifact.MediaType)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(artifact.Data))
			if err != nil {
				t.Fatalf("artifact is not a jpeg: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Fatalf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestWebBackend_WatchIsInert(t *testing.T) {
	backend := NewWebBackend(&fakeMedia{}, &fakeSurface{}, 95)
	sub := backend.Watch(func() { t.Fatal("web backend must not fire reflow") })
	if sub.Active() {
		t.Fatal("expected inert subscription")
	}
	sub.Unsubscribe()
}
