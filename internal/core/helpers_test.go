package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/jo-hoe/woundtrack/internal/backend/database"
	"github.com/jo-hoe/woundtrack/internal/backend/storage"
	"github.com/jo-hoe/woundtrack/internal/capture"
	"github.com/jo-hoe/woundtrack/internal/common"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	kv       database.KeyValueStore
	files    *storage.FilesystemStore
	clock    *testClock
	photos   *PhotoStore
	metadata *MetadataStore
}

func newTestEnv(t *testing.T, cascade bool) *testEnv {
	t.Helper()

	kv, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	files, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore error: %v", err)
	}

	env := &testEnv{
		kv:       kv,
		files:    files,
		clock:    newTestClock(time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)),
		metadata: NewMetadataStore(kv),
	}
	config := PhotoStoreConfig{Clock: env.clock.Now, Location: time.UTC}
	if cascade {
		config.Cascade = env.metadata
	}
	env.photos = NewPhotoStore(kv, files, config)
	return env
}

func (env *testEnv) save(t *testing.T, data string) PhotoRecord {
	t.Helper()
	record, err := env.photos.Save(context.Background(), []byte(data))
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	return record
}

// failingFiles wraps a FileStore and fails deletes on demand.
type failingFiles struct {
	storage.FileStore
	deleteErr error
}

func (f *failingFiles) DeleteFile(ctx context.Context, locator string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.FileStore.DeleteFile(ctx, locator)
}

// brokenKV fails every read.
type brokenKV struct {
	database.KeyValueStore
}

func (brokenKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

type fakeBackend struct {
	mu         sync.Mutex
	starts     int
	stops      int
	active     bool
	startErr   error
	captureErr error
	still      []byte
	onReflow   func()
}

func (b *fakeBackend) Start(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.startErr != nil {
		return b.startErr
	}
	b.active = true
	return nil
}

func (b *fakeBackend) Stop(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.active = false
	return nil
}

func (b *fakeBackend) CaptureStill(_ context.Context) (capture.Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.captureErr != nil {
		return capture.Artifact{}, b.captureErr
	}
	if !b.active {
		return capture.Artifact{}, common.ErrNotReady
	}
	return capture.Artifact{MediaType: capture.JPEGMediaType, Data: b.still}, nil
}

func (b *fakeBackend) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *fakeBackend) Watch(onReflow func()) *capture.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReflow = onReflow
	return &capture.Subscription{}
}

func (b *fakeBackend) reflow() {
	b.mu.Lock()
	fn := b.onReflow
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *fakeBackend) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts, b.stops
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode error: %v", err)
	}
	return buf.Bytes()
}
