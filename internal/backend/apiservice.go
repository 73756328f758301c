package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jo-hoe/woundtrack/internal/backend/objectstore"
	"github.com/jo-hoe/woundtrack/internal/capture"
	"github.com/jo-hoe/woundtrack/internal/common"
	"github.com/jo-hoe/woundtrack/internal/core"
)

const uploadField = "file"

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
	uploader    *objectstore.Uploader
	gatherer    prometheus.Gatherer
}

type PhotoResponse struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	URI        string `json:"uri"`
	CapturedAt int64  `json:"ts"`
}

type NoteRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

type ClassificationRequest struct {
	Label string `json:"label" validate:"max=200"`
}

type ModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=camera upload"`
}

type LayoutRequest struct {
	Element string   `json:"element" validate:"max=100"`
	Left    float64  `json:"left"`
	Top     float64  `json:"top"`
	Width   *float64 `json:"width" validate:"omitempty,gt=0"`
	Height  *float64 `json:"height" validate:"omitempty,gt=0"`
	Rotated bool     `json:"rotated"`
}

type SessionResponse struct {
	Open   bool   `json:"open"`
	Mode   string `json:"mode"`
	Active bool   `json:"active"`
}

type ReminderResponse struct {
	Show          bool       `json:"show"`
	LastDismissed *time.Time `json:"lastDismissed,omitempty"`
}

type PreviewResponse struct {
	DataURI string `json:"dataUri"`
}

// NewAPIService wires the JSON API. uploader may be nil when no remote
// storage is configured; gatherer may be nil to skip /metrics.
func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService, uploader *objectstore.Uploader, gatherer prometheus.Gatherer) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
		uploader:    uploader,
		gatherer:    gatherer,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api")
	api.GET("/photos", s.listPhotosHandler)
	api.GET("/photos/:name/image", s.photoImageHandler)
	api.GET("/photos/:name/thumbnail", s.photoThumbnailHandler)
	api.DELETE("/photos/:name", s.deletePhotoHandler)
	api.GET("/photos/:name/note", s.getNoteHandler)
	api.PUT("/photos/:name/note", s.setNoteHandler)
	api.GET("/photos/:name/classification", s.getClassificationHandler)
	api.PUT("/photos/:name/classification", s.setClassificationHandler)

	api.GET("/gallery", s.galleryHandler)
	api.GET("/reminder", s.reminderHandler)
	api.POST("/reminder/dismiss", s.dismissReminderHandler)

	api.POST("/capture/session", s.openSessionHandler)
	api.DELETE("/capture/session", s.closeSessionHandler)
	api.GET("/capture/session", s.sessionHandler)
	api.POST("/capture/mode", s.setModeHandler)
	api.POST("/capture/preview", s.previewHandler)
	api.POST("/capture/shoot", s.shootHandler)
	api.POST("/capture/layout", s.layoutHandler)

	api.POST("/uploads", s.uploadHandler)

	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *APIService) listPhotosHandler(c echo.Context) error {
	records := s.coreService.Photos(c.Request().Context())
	response := make([]PhotoResponse, 0, len(records))
	for _, record := range records {
		response = append(response, toPhotoResponse(record))
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIService) photoImageHandler(c echo.Context) error {
	data, err := s.coreService.ImageByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, capture.JPEGMediaType, data)
}

func (s *APIService) photoThumbnailHandler(c echo.Context) error {
	size := 0
	if raw := c.QueryParam("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "size must be a positive integer")
		}
		size = parsed
	}
	data, err := s.coreService.Thumbnail(c.Request().Context(), c.Param("name"), size)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, capture.JPEGMediaType, data)
}

func (s *APIService) deletePhotoHandler(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")
	if _, err := s.coreService.ImageByName(ctx, name); errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidName) {
		return httpError(err)
	}
	deleted, err := s.coreService.DeleteImage(ctx, name)
	if err != nil {
		return httpError(err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete photo")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIService) getNoteHandler(c echo.Context) error {
	text, found, err := s.coreService.Note(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "no note")
	}
	return c.JSON(http.StatusOK, NoteRequest{Text: text})
}

func (s *APIService) setNoteHandler(c echo.Context) error {
	var request NoteRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}
	if err := s.coreService.SetNote(c.Request().Context(), c.Param("name"), request.Text); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIService) getClassificationHandler(c echo.Context) error {
	label, found, err := s.coreService.Classification(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "no classification")
	}
	return c.JSON(http.StatusOK, ClassificationRequest{Label: label})
}

func (s *APIService) setClassificationHandler(c echo.Context) error {
	var request ClassificationRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}
	if err := s.coreService.SetClassification(c.Request().Context(), c.Param("name"), request.Label); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIService) galleryHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.coreService.Gallery(c.Request().Context()))
}

func (s *APIService) reminderHandler(c echo.Context) error {
	ctx := c.Request().Context()
	response := ReminderResponse{Show: s.coreService.ShouldRemind(ctx)}
	if last, ok := s.coreService.LastReminderDismissal(ctx); ok {
		response.LastDismissed = &last
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIService) dismissReminderHandler(c echo.Context) error {
	if err := s.coreService.DismissReminder(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIService) sessionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sessionState())
}

func (s *APIService) openSessionHandler(c echo.Context) error {
	if err := s.coreService.Session().Open(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.sessionState())
}

func (s *APIService) closeSessionHandler(c echo.Context) error {
	if err := s.coreService.Session().Close(c.Request().Context()); err != nil {
		slog.Warn("failed to stop camera on close", "error", err)
	}
	return c.JSON(http.StatusOK, s.sessionState())
}

func (s *APIService) setModeHandler(c echo.Context) error {
	var request ModeRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}
	mode, err := core.ParseMode(request.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.coreService.Session().SetMode(c.Request().Context(), mode); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.sessionState())
}

func (s *APIService) previewHandler(c echo.Context) error {
	data, _, err := s.readUpload(c)
	if err != nil {
		return err
	}
	artifact, err := s.coreService.Session().SetUploadPreview(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported image: %v", err))
	}
	return c.JSON(http.StatusOK, PreviewResponse{DataURI: artifact.DataURI()})
}

func (s *APIService) shootHandler(c echo.Context) error {
	record, err := s.coreService.Session().Shoot(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toPhotoResponse(record))
}

func (s *APIService) layoutHandler(c echo.Context) error {
	request := new(LayoutRequest)
	if err := bindAndValidate(c, request); err != nil {
		return err
	}
	change := core.LayoutChange{Element: request.Element, Rotated: request.Rotated}
	if request.Width != nil || request.Height != nil {
		if request.Width == nil || request.Height == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "width and height must be given together")
		}
		change.Rect = &capture.Rect{Left: request.Left, Top: request.Top, Width: *request.Width, Height: *request.Height}
	}
	if err := s.coreService.ReportLayout(change); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.sessionState())
}

func (s *APIService) uploadHandler(c echo.Context) error {
	if s.uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, objectstore.ErrDisabled.Error())
	}
	data, file, err := s.readUpload(c)
	if err != nil {
		return err
	}
	upload, err := s.uploader.Upload(c.Request().Context(), file.Filename, file.Header.Get(echo.HeaderContentType), data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, upload)
}

func (s *APIService) sessionState() SessionResponse {
	session := s.coreService.Session()
	return SessionResponse{Open: session.IsOpen(), Mode: string(session.Mode()), Active: session.Active()}
}

func (s *APIService) maxUploadBytes() int64 {
	if s.uploader != nil {
		return s.uploader.MaxBytes()
	}
	return s.config.RemoteStorage.MaxUploadBytes
}

// readUpload reads the multipart file field, enforcing the size limit.
func (s *APIService) readUpload(c echo.Context) ([]byte, *multipart.FileHeader, error) {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("missing form field %q", uploadField))
	}
	limit := s.maxUploadBytes()
	if limit > 0 && file.Size > limit {
		return nil, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", limit))
	}
	data, err := readMultipartFile(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", file.Filename, "error", err)
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to read uploaded file")
	}
	return data, file, nil
}

func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "filename", file.Filename, "error", cerr)
		}
	}()
	return io.ReadAll(src)
}

func bindAndValidate(c echo.Context, request any) error {
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return c.Validate(request)
}

// httpError maps the failure taxonomy onto HTTP status codes.
func httpError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidName),
		errors.Is(err, objectstore.ErrEmptyUpload),
		errors.Is(err, objectstore.ErrUnsupportedType):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, objectstore.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrNotReady):
		status = http.StatusConflict
	case errors.Is(err, common.ErrHardwareUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	return echo.NewHTTPError(status, err.Error())
}

func toPhotoResponse(record core.PhotoRecord) PhotoResponse {
	return PhotoResponse{
		Name:       record.Name(),
		Path:       record.Path,
		URI:        record.URI,
		CapturedAt: record.CapturedAt,
	}
}
