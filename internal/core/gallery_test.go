package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jo-hoe/woundtrack/internal/capture"
)

func TestGallery_EmptyIsAllPlaceholders(t *testing.T) {
	env := newTestEnv(t, false)
	builder := NewGalleryBuilder(env.photos, env.metadata, env.files, capture.PlatformWeb)

	gallery := builder.Build(context.Background())
	if len(gallery.Days) != GallerySize {
		t.Fatalf("expected %d days, got %d", GallerySize, len(gallery.Days))
	}
	if gallery.Selected != 0 {
		t.Errorf("expected selected 0, got %d", gallery.Selected)
	}
	keys := map[string]bool{}
	for i, day := range gallery.Days {
		if !day.Placeholder() || day.Label != "—" || day.Badge != "No image" {
			t.Errorf("day %d is not a placeholder: %+v", i, day)
		}
		if keys[day.DateKey] {
			t.Errorf("duplicate date key %q", day.DateKey)
		}
		keys[day.DateKey] = true
	}
}

func TestGallery_SaveThenBuild(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	builder := NewGalleryBuilder(env.photos, env.metadata, env.files, capture.PlatformWeb)

	older := env.save(t, "yesterday")
	env.clock.Advance(24 * time.Hour)
	newer := env.save(t, "today")
	if err := env.metadata.SetNote(ctx, newer.Path, "dressing changed"); err != nil {
		t.Fatalf("SetNote error: %v", err)
	}

	gallery := builder.Build(ctx)
	if len(gallery.Days) != GallerySize {
		t.Fatalf("expected %d days, got %d", GallerySize, len(gallery.Days))
	}
	first, second := gallery.Days[0], gallery.Days[1]

	if first.Badge != "Today - Mar 11, 2024" {
		t.Errorf("unexpected badge %q", first.Badge)
	}
	if first.Label != "Mar 11" {
		t.Errorf("unexpected label %q", first.Label)
	}
	if first.Alt != "Wound on March 11, 2024" {
		t.Errorf("unexpected alt %q", first.Alt)
	}
	if first.Note != "dressing changed" || first.Name != newer.Name() {
		t.Errorf("unexpected day metadata %+v", first)
	}
	wantSrc := capture.Artifact{Data: []byte("today")}.DataURI()
	if first.Src == nil || *first.Src != wantSrc {
		t.Errorf("expected inline data uri, got %v", first.Src)
	}
	if second.Badge != "Mar 10, 2024" || second.Name != older.Name() {
		t.Errorf("unexpected second day %+v", second)
	}
	for i := 2; i < GallerySize; i++ {
		if !gallery.Days[i].Placeholder() {
			t.Errorf("expected placeholder at %d", i)
		}
	}
	if gallery.Selected != 0 || gallery.SelectedDay().Name != newer.Name() {
		t.Errorf("unexpected selection %d", gallery.Selected)
	}

	if !env.photos.Delete(ctx, newer.Path) {
		t.Fatal("expected delete to succeed")
	}
	gallery = builder.Build(ctx)
	if gallery.Days[0].Name != older.Name() {
		t.Fatalf("expected older photo to be promoted, got %+v", gallery.Days[0])
	}
	if !gallery.Days[1].Placeholder() {
		t.Fatal("expected placeholder after promotion")
	}
}

func TestGallery_NativeUsesURI(t *testing.T) {
	env := newTestEnv(t, false)
	builder := NewGalleryBuilder(env.photos, env.metadata, env.files, capture.PlatformNative)
	record := env.save(t, "native")

	day := builder.Build(context.Background()).Days[0]
	if day.Src == nil || *day.Src != record.URI {
		t.Fatalf("expected platform uri %q, got %v", record.URI, day.Src)
	}
}

func TestGallery_UnreadableArtifactFallsBackToURI(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	raw, _ := json.Marshal([]PhotoRecord{{URI: "file:///elsewhere/photos/photo_1.jpg", Path: "photos/photo_1.jpg", CapturedAt: 1}})
	if err := env.kv.Set(ctx, indexKey, string(raw)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	builder := NewGalleryBuilder(env.photos, env.metadata, env.files, capture.PlatformWeb)

	day := builder.Build(ctx).Days[0]
	if day.Src == nil || *day.Src != "file:///elsewhere/photos/photo_1.jpg" {
		t.Fatalf("expected raw uri fallback, got %v", day.Src)
	}
}

func TestGallery_SortsByCaptureTime(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	raw, _ := json.Marshal([]PhotoRecord{
		{URI: "a", Path: "photos/photo_100.jpg", CapturedAt: 100},
		{URI: "b", Path: "photos/photo_300.jpg", CapturedAt: 300},
		{URI: "c", Path: "photos/photo_200.jpg", CapturedAt: 200},
	})
	if err := env.kv.Set(ctx, indexKey, string(raw)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	builder := NewGalleryBuilder(env.photos, env.metadata, env.files, capture.PlatformNative)

	days := builder.Build(ctx).Days
	if days[0].Name != "photo_300.jpg" || days[1].Name != "photo_200.jpg" || days[2].Name != "photo_100.jpg" {
		t.Fatalf("unexpected order: %s, %s, %s", days[0].Name, days[1].Name, days[2].Name)
	}
}
