package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/woundtrack/internal/backend/database"
	"github.com/jo-hoe/woundtrack/internal/common"
)

const (
	reminderKey = "image_reminder_last_dismissed"
	// markerLayout is an ISO-8601 UTC instant with millisecond precision.
	markerLayout = "2006-01-02T15:04:05.000Z"
)

// ReminderPolicy decides whether the daily capture prompt is due.
type ReminderPolicy struct {
	photos   *PhotoStore
	kv       database.KeyValueStore
	now      Clock
	location *time.Location
	metrics  *Metrics
}

func NewReminderPolicy(photos *PhotoStore, kv database.KeyValueStore, metrics *Metrics) *ReminderPolicy {
	return &ReminderPolicy{
		photos:   photos,
		kv:       kv,
		now:      photos.now,
		location: photos.location,
		metrics:  metrics,
	}
}

// ShouldShow is true unless a photo was taken today or the prompt was
// already dismissed today.
func (p *ReminderPolicy) ShouldShow(ctx context.Context) bool {
	if p.photos.HasRecordToday(ctx) {
		return false
	}
	dismissed, ok := p.LastDismissed(ctx)
	if !ok {
		return true
	}
	return !sameDay(dismissed, p.now(), p.location)
}

// Dismiss records the current instant as the last dismissal.
func (p *ReminderPolicy) Dismiss(ctx context.Context) error {
	marker := p.now().UTC().Format(markerLayout)
	if err := p.kv.Set(ctx, reminderKey, marker); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageWrite, err)
	}
	p.metrics.reminderDismissed()
	return nil
}

// LastDismissed returns the stored dismissal instant. Unparseable markers
// count as never dismissed.
func (p *ReminderPolicy) LastDismissed(ctx context.Context) (time.Time, bool) {
	raw, found, err := p.kv.Get(ctx, reminderKey)
	if err != nil {
		slog.Warn("failed to read reminder marker", "error", err)
		return time.Time{}, false
	}
	if !found || raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	// A bare date names a local calendar day, not UTC midnight.
	if t, err := time.ParseInLocation(time.DateOnly, raw, p.location); err == nil {
		return t, true
	}
	slog.Warn("ignoring unparseable reminder marker", "value", raw)
	return time.Time{}, false
}
