package frontend

import (
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/woundtrack/internal/common"
	"github.com/jo-hoe/woundtrack/internal/core"
)

const (
	MainPageName = "index.html"
	galleryView  = "gallery.html"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type dayView struct {
	DateKey        string
	Label          string
	Badge          string
	Alt            string
	Name           string
	Note           string
	Classification string
	Src            template.URL
}

type galleryPage struct {
	Days          []dayView
	Selected      dayView
	SelectedIndex int
}

type indexPage struct {
	Gallery      galleryPage
	ShowReminder bool
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)

	e.GET("/htmx/gallery", service.htmxGalleryHandler)
	e.POST("/htmx/shoot", service.htmxShootHandler)
	e.POST("/htmx/upload", service.htmxUploadImageHandler)
	e.DELETE("/htmx/photo/:name", service.htmxDeletePhotoHandler)
	e.POST("/htmx/reminder/dismiss", service.htmxDismissReminderHandler)

	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	page := indexPage{
		Gallery:      service.buildGalleryPage(ctx, -1),
		ShowReminder: service.coreService.ShouldRemind(reqCtx),
	}
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, page)
}

func (service *FrontendService) htmxGalleryHandler(ctx echo.Context) error {
	selected := -1
	if raw := ctx.QueryParam("selected"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			return ctx.String(http.StatusBadRequest, "Invalid selection")
		}
		selected = index
	}
	return service.renderGallery(ctx, selected)
}

func (service *FrontendService) htmxShootHandler(ctx echo.Context) error {
	session := service.coreService.Session()
	reqCtx := ctx.Request().Context()
	// A session opened only for this shot is released before returning.
	if !session.IsOpen() {
		if err := session.Open(reqCtx); err != nil {
			_ = session.Close(reqCtx)
			slog.Warn("htmxShootHandler: camera unavailable", "error", err)
			return ctx.String(statusFor(err), "Camera unavailable")
		}
		defer func() {
			if err := session.Close(reqCtx); err != nil {
				slog.Warn("htmxShootHandler: failed to release camera", "error", err)
			}
		}()
	}
	if _, err := session.Shoot(reqCtx); err != nil {
		slog.Warn("htmxShootHandler: capture failed", "error", err)
		return ctx.String(statusFor(err), "Capture failed")
	}
	return service.renderGallery(ctx, -1)
}

func (service *FrontendService) htmxUploadImageHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}
	if limit := service.config.RemoteStorage.MaxUploadBytes; limit > 0 && file.Size > limit {
		return ctx.String(http.StatusRequestEntityTooLarge, "File too large")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	image, err := io.ReadAll(src)
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	if _, err := service.coreService.AddImage(ctx.Request().Context(), image); err != nil {
		slog.Error("htmxUploadImageHandler: failed to process uploaded image",
			"status", http.StatusBadRequest, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusBadRequest, "Failed to process uploaded image")
	}
	return service.renderGallery(ctx, -1)
}

func (service *FrontendService) htmxDeletePhotoHandler(ctx echo.Context) error {
	name := ctx.Param("name")
	deleted, err := service.coreService.DeleteImage(ctx.Request().Context(), name)
	if err != nil {
		slog.Warn("htmxDeletePhotoHandler: invalid photo name",
			"status", http.StatusBadRequest, "name", name, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid photo name")
	}
	if !deleted {
		slog.Error("htmxDeletePhotoHandler: failed to delete photo",
			"status", http.StatusInternalServerError, "name", name)
		return ctx.String(http.StatusInternalServerError, "Failed to delete photo")
	}
	return service.renderGallery(ctx, -1)
}

func (service *FrontendService) htmxDismissReminderHandler(ctx echo.Context) error {
	if err := service.coreService.DismissReminder(ctx.Request().Context()); err != nil {
		slog.Error("htmxDismissReminderHandler: failed to store dismissal",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to dismiss reminder")
	}
	// An empty body removes the popup via outerHTML swap.
	return ctx.HTML(http.StatusOK, "")
}

func (service *FrontendService) renderGallery(ctx echo.Context, selected int) error {
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, galleryView, service.buildGalleryPage(ctx, selected))
}

// buildGalleryPage converts the gallery for rendering. A negative or out of
// range selection keeps the default one.
func (service *FrontendService) buildGalleryPage(ctx echo.Context, selected int) galleryPage {
	gallery := service.coreService.Gallery(ctx.Request().Context())
	if selected >= 0 && selected < len(gallery.Days) {
		gallery.Selected = selected
	}
	page := galleryPage{Days: make([]dayView, 0, len(gallery.Days)), SelectedIndex: gallery.Selected}
	for _, day := range gallery.Days {
		view := dayView{
			DateKey:        day.DateKey,
			Label:          day.Label,
			Badge:          day.Badge,
			Alt:            day.Alt,
			Name:           day.Name,
			Note:           day.Note,
			Classification: day.Classification,
		}
		if day.Src != nil {
			view.Src = template.URL(*day.Src)
		}
		page.Days = append(page.Days, view)
	}
	page.Selected = page.Days[page.SelectedIndex]
	return page
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, common.ErrHardwareUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
