package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jo-hoe/woundtrack/internal/backend/storage"
	"github.com/jo-hoe/woundtrack/internal/capture"
)

// GallerySize is the fixed number of day slots in the gallery.
const GallerySize = MaxRecords

const (
	placeholderLabel = "—"
	placeholderBadge = "No image"
	todayPrefix      = "Today - "
)

// GalleryDay is one slot of the gallery. Src is nil for placeholders.
type GalleryDay struct {
	DateKey        string  `json:"date"`
	Label          string  `json:"label"`
	Badge          string  `json:"badge"`
	Src            *string `json:"src"`
	Alt            string  `json:"alt"`
	Name           string  `json:"name,omitempty"`
	Note           string  `json:"note,omitempty"`
	Classification string  `json:"classification,omitempty"`
}

// Placeholder reports whether the slot has no photo.
func (d GalleryDay) Placeholder() bool {
	return d.Src == nil
}

type Gallery struct {
	Days     []GalleryDay `json:"days"`
	Selected int          `json:"selected"`
}

// SelectedDay returns the slot the viewer opens on.
func (g Gallery) SelectedDay() GalleryDay {
	if g.Selected < 0 || g.Selected >= len(g.Days) {
		return GalleryDay{}
	}
	return g.Days[g.Selected]
}

// GalleryBuilder projects the photo collection into display slots.
type GalleryBuilder struct {
	photos   *PhotoStore
	metadata *MetadataStore
	files    storage.FileStore
	platform capture.Platform
	now      Clock
	location *time.Location
}

func NewGalleryBuilder(photos *PhotoStore, metadata *MetadataStore, files storage.FileStore, platform capture.Platform) *GalleryBuilder {
	return &GalleryBuilder{
		photos:   photos,
		metadata: metadata,
		files:    files,
		platform: platform,
		now:      photos.now,
		location: photos.location,
	}
}

// Build returns exactly GallerySize slots, newest photo first, padded with
// placeholders.
func (b *GalleryBuilder) Build(ctx context.Context) Gallery {
	records := b.photos.List(ctx)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CapturedAt > records[j].CapturedAt
	})
	if len(records) > GallerySize {
		records = records[:GallerySize]
	}

	today := b.now().In(b.location)
	days := make([]GalleryDay, 0, GallerySize)
	for _, record := range records {
		days = append(days, b.day(ctx, record, today))
	}
	for i := len(days); i < GallerySize; i++ {
		days = append(days, GalleryDay{
			DateKey: fmt.Sprintf("placeholder-%d", i),
			Label:   placeholderLabel,
			Badge:   placeholderBadge,
			Alt:     placeholderBadge,
		})
	}

	selected := 0
	for i, day := range days {
		if !day.Placeholder() {
			selected = i
			break
		}
	}
	return Gallery{Days: days, Selected: selected}
}

func (b *GalleryBuilder) day(ctx context.Context, record PhotoRecord, today time.Time) GalleryDay {
	captured := record.Time(b.location)
	badge := captured.Format("Jan 02, 2006")
	if sameDay(captured, today, b.location) {
		badge = todayPrefix + badge
	}
	src := b.source(ctx, record)
	day := GalleryDay{
		DateKey: captured.Format("2006-01-02") + "-" + record.Name(),
		Label:   captured.Format("Jan 02"),
		Badge:   badge,
		Src:     &src,
		Alt:     "Wound on " + captured.Format("January 2, 2006"),
		Name:    record.Name(),
	}
	if b.metadata != nil {
		day.Note, _ = b.metadata.Note(ctx, record.Path)
		day.Classification, _ = b.metadata.Classification(ctx, record.Path)
	}
	return day
}

// source resolves a displayable reference. Native views load the platform
// URI directly; web views need the bytes inlined.
func (b *GalleryBuilder) source(ctx context.Context, record PhotoRecord) string {
	if b.platform == capture.PlatformNative {
		return record.URI
	}
	data, err := b.files.ReadFile(ctx, record.locator())
	if err != nil {
		slog.Warn("failed to read photo for gallery, using raw uri", "path", record.Path, "error", err)
		return record.URI
	}
	return capture.Artifact{MediaType: capture.JPEGMediaType, Data: data}.DataURI()
}
