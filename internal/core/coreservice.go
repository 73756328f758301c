package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jo-hoe/woundtrack/internal/backend/database"
	"github.com/jo-hoe/woundtrack/internal/backend/imageprocessing"
	"github.com/jo-hoe/woundtrack/internal/backend/storage"
	"github.com/jo-hoe/woundtrack/internal/capture"
	"github.com/jo-hoe/woundtrack/internal/capture/virtualcam"
	"github.com/jo-hoe/woundtrack/internal/common"
)

var (
	ErrInvalidName = errors.New("invalid photo name")
	ErrNotFound    = errors.New("photo not found")
)

type CoreService struct {
	config    *ServiceConfig
	kv        database.KeyValueStore
	files     storage.FileStore
	photos    *PhotoStore
	metadata  *MetadataStore
	gallery   *GalleryBuilder
	reminder  *ReminderPolicy
	session   *CaptureSession
	converter *imageprocessing.JPEGConverter
	camera    *virtualcam.Camera
	screen    *virtualcam.Screen
	metrics   *Metrics
}

func NewCoreService(config *ServiceConfig, registerer prometheus.Registerer) (*CoreService, error) {
	return newCoreService(config, registerer, time.Now)
}

func newCoreService(config *ServiceConfig, registerer prometheus.Registerer, clock Clock) (*CoreService, error) {
	platform, err := capture.DetectPlatform(config.Platform)
	if err != nil {
		return nil, err
	}
	location, err := config.Location()
	if err != nil {
		return nil, err
	}

	kv, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	files, err := storage.NewFilesystemStore(config.DataDir)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	service := &CoreService{
		config:    config,
		kv:        kv,
		files:     files,
		metadata:  NewMetadataStore(kv),
		converter: imageprocessing.NewJPEGConverter(config.Capture.Quality),
		metrics:   NewMetrics(registerer),
	}

	storeConfig := PhotoStoreConfig{Clock: clock, Location: location, Metrics: service.metrics}
	if config.Metadata.CascadeDelete {
		storeConfig.Cascade = service.metadata
	}
	service.photos = NewPhotoStore(kv, files, storeConfig)
	service.gallery = NewGalleryBuilder(service.photos, service.metadata, files, platform)
	service.reminder = NewReminderPolicy(service.photos, kv, service.metrics)

	var backend capture.Backend
	if config.Capture.Device == CaptureDeviceVirtual {
		service.camera = virtualcam.New(virtualcam.Options{
			Width:          imageprocessing.DefaultFrameWidth,
			Height:         imageprocessing.DefaultFrameHeight,
			DenyPermission: config.Capture.DenyPermission,
		})
		service.screen = virtualcam.NewScreen(1)
		devices := virtualcam.Devices(service.camera, service.screen)
		if rect, ok := service.screen.BoundingRect(virtualcam.DefaultPreviewElement); ok {
			if _, exists := service.screen.BoundingRect(config.Capture.PreviewElement); !exists {
				service.screen.SetRect(config.Capture.PreviewElement, rect)
			}
		}
		backend, err = capture.NewBackend(platform, devices, config.Capture.Quality)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("failed to initialize capture backend: %w", err)
		}
	}
	service.session = NewCaptureSession(backend, service.photos, service.converter, config.Capture.PreviewElement, service.metrics)

	slog.Info("core service initialized", "platform", platform, "dataDir", config.DataDir, "captureDevice", config.Capture.Device)
	return service, nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Session() *CaptureSession {
	return service.session
}

// Screen is the simulated display, nil unless the virtual device is used.
func (service *CoreService) Screen() *virtualcam.Screen {
	return service.screen
}

// Camera is the simulated camera, nil unless the virtual device is used.
func (service *CoreService) Camera() *virtualcam.Camera {
	return service.camera
}

// LayoutChange describes a viewport change reported by the page.
type LayoutChange struct {
	// Element defaults to the configured preview element.
	Element string
	// Rect, when set, is the element's new bounding rectangle.
	Rect *capture.Rect
	// Rotated swaps the element's width and height.
	Rotated bool
}

// ReportLayout feeds a resize or orientation change into the screen so a
// running native preview is restarted over the new rectangle.
func (service *CoreService) ReportLayout(change LayoutChange) error {
	if service.screen == nil {
		return fmt.Errorf("%w: %w", common.ErrHardwareUnavailable, errCaptureDisabled)
	}
	element := change.Element
	if element == "" {
		element = service.config.Capture.PreviewElement
	}
	if change.Rect != nil {
		service.screen.Resize(element, *change.Rect)
	}
	if change.Rotated {
		service.screen.Rotate(element)
	}
	return nil
}

func (service *CoreService) Photos(ctx context.Context) []PhotoRecord {
	return service.photos.List(ctx)
}

// AddImage converts an image of any supported format to JPEG and saves it.
func (service *CoreService) AddImage(ctx context.Context, image []byte) (PhotoRecord, error) {
	converted, err := service.converter.Convert(image)
	if err != nil {
		return PhotoRecord{}, err
	}
	return service.photos.Save(ctx, converted)
}

// ImageByName returns the stored JPEG for a photo name.
func (service *CoreService) ImageByName(ctx context.Context, name string) ([]byte, error) {
	record, err := service.record(ctx, name)
	if err != nil {
		return nil, err
	}
	return service.files.ReadFile(ctx, record.locator())
}

// Thumbnail returns a downscaled JPEG of a stored photo. A size of
// zero selects the default edge length.
func (service *CoreService) Thumbnail(ctx context.Context, name string, size int) ([]byte, error) {
	data, err := service.ImageByName(ctx, name)
	if err != nil {
		return nil, err
	}
	thumbnailer, err := imageprocessing.NewThumbnailer(size, service.config.Capture.Quality)
	if err != nil {
		return nil, err
	}
	thumbnail, err := thumbnailer.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorrupt, err)
	}
	return thumbnail, nil
}

func (service *CoreService) DeleteImage(ctx context.Context, name string) (bool, error) {
	identity, err := resolveIdentity(name)
	if err != nil {
		return false, err
	}
	return service.photos.Delete(ctx, identity), nil
}

func (service *CoreService) SetNote(ctx context.Context, name, text string) error {
	record, err := service.record(ctx, name)
	if err != nil {
		return err
	}
	return service.metadata.SetNote(ctx, record.Path, text)
}

func (service *CoreService) Note(ctx context.Context, name string) (string, bool, error) {
	identity, err := resolveIdentity(name)
	if err != nil {
		return "", false, err
	}
	text, found := service.metadata.Note(ctx, identity)
	return text, found, nil
}

func (service *CoreService) SetClassification(ctx context.Context, name, label string) error {
	record, err := service.record(ctx, name)
	if err != nil {
		return err
	}
	return service.metadata.SetClassification(ctx, record.Path, label)
}

func (service *CoreService) Classification(ctx context.Context, name string) (string, bool, error) {
	identity, err := resolveIdentity(name)
	if err != nil {
		return "", false, err
	}
	label, found := service.metadata.Classification(ctx, identity)
	return label, found, nil
}

func (service *CoreService) Gallery(ctx context.Context) Gallery {
	return service.gallery.Build(ctx)
}

func (service *CoreService) ShouldRemind(ctx context.Context) bool {
	return service.reminder.ShouldShow(ctx)
}

func (service *CoreService) DismissReminder(ctx context.Context) error {
	return service.reminder.Dismiss(ctx)
}

func (service *CoreService) LastReminderDismissal(ctx context.Context) (time.Time, bool) {
	return service.reminder.LastDismissed(ctx)
}

// Close releases the camera and the database.
func (service *CoreService) Close(ctx context.Context) error {
	return errors.Join(service.session.Close(ctx), service.kv.Close())
}

func (service *CoreService) record(ctx context.Context, name string) (PhotoRecord, error) {
	identity, err := resolveIdentity(name)
	if err != nil {
		return PhotoRecord{}, err
	}
	record, ok := service.photos.Find(ctx, identity)
	if !ok {
		return PhotoRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return record, nil
}

// resolveIdentity maps a bare file name to its photos/ path.
func resolveIdentity(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, photosDir+"/") {
		return name, nil
	}
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return path.Join(photosDir, name), nil
}

func getDatabaseService(config *ServiceConfig) (database.KeyValueStore, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
