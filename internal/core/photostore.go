package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jo-hoe/woundtrack/internal/backend/database"
	"github.com/jo-hoe/woundtrack/internal/backend/storage"
	"github.com/jo-hoe/woundtrack/internal/common"
)

const (
	// MaxRecords bounds the gallery.
	MaxRecords = 5
	indexKey   = "saved_photos"
)

// Clock returns the current time.
type Clock func() time.Time

// PhotoRecord is one saved photo. Records are ordered newest first.
type PhotoRecord struct {
	URI        string `json:"uri"`
	Path       string `json:"path"`
	CapturedAt int64  `json:"ts"`
}

// Name is the file name of the photo, used as its external handle.
func (r PhotoRecord) Name() string {
	return path.Base(r.Path)
}

// Time converts the capture timestamp into loc.
func (r PhotoRecord) Time(loc *time.Location) time.Time {
	return time.UnixMilli(r.CapturedAt).In(loc)
}

// locator prefers the relative storage path and falls back to the URI for
// records whose path could not be recovered.
func (r PhotoRecord) locator() string {
	if r.Path != "" && !strings.Contains(r.Path, "://") && !strings.HasPrefix(r.Path, "/") {
		return r.Path
	}
	return r.URI
}

type PhotoStoreConfig struct {
	Clock    Clock
	Location *time.Location
	Metrics  *Metrics
	// Cascade, when set, removes notes and classifications with the photo.
	Cascade *MetadataStore
}

// PhotoStore keeps the bounded, newest-first photo collection. All mutations
// are serialized so concurrent saves never lose records.
type PhotoStore struct {
	mu       sync.Mutex
	kv       database.KeyValueStore
	files    storage.FileStore
	ids      identityGenerator
	now      Clock
	location *time.Location
	metrics  *Metrics
	cascade  *MetadataStore
}

func NewPhotoStore(kv database.KeyValueStore, files storage.FileStore, config PhotoStoreConfig) *PhotoStore {
	store := &PhotoStore{
		kv:       kv,
		files:    files,
		now:      config.Clock,
		location: config.Location,
		metrics:  config.Metrics,
		cascade:  config.Cascade,
	}
	if store.now == nil {
		store.now = time.Now
	}
	if store.location == nil {
		store.location = time.Local
	}
	return store
}

// Save persists data as a new photo at the head of the collection. When the
// collection overflows, the oldest records are dropped and their artifacts
// removed on a best-effort basis.
func (s *PhotoStore) Save(ctx context.Context, data []byte) (PhotoRecord, error) {
	if len(data) == 0 {
		return PhotoRecord{}, fmt.Errorf("%w: empty artifact", common.ErrStorageWrite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.readIndex(ctx)
	millis := s.now().UnixMilli()
	name := s.ids.next(millis, func(candidate string) bool {
		return slices.ContainsFunc(records, func(r PhotoRecord) bool { return r.Path == photoPath(candidate) })
	})
	relPath := photoPath(name)

	uri, err := s.files.WriteFile(ctx, relPath, data)
	if err != nil {
		return PhotoRecord{}, fmt.Errorf("%w: %w", common.ErrStorageWrite, err)
	}
	record := PhotoRecord{URI: uri, Path: relPath, CapturedAt: millis}

	updated := append([]PhotoRecord{record}, records...)
	var evicted []PhotoRecord
	if len(updated) > MaxRecords {
		evicted = slices.Clone(updated[MaxRecords:])
		updated = updated[:MaxRecords]
	}

	if err := s.writeIndex(ctx, updated); err != nil {
		if cleanupErr := s.files.DeleteFile(ctx, relPath); cleanupErr != nil {
			slog.Warn("failed to remove artifact after index write failure", "path", relPath, "error", cleanupErr)
		}
		return PhotoRecord{}, err
	}
	s.metrics.photoSaved()

	for _, old := range evicted {
		if err := s.files.DeleteFile(ctx, old.locator()); err != nil {
			slog.Warn("failed to remove evicted artifact", "path", old.Path, "error", err)
			s.metrics.cleanupFailed()
		}
		s.forgetMetadata(ctx, old)
	}
	s.metrics.photosEvicted(len(evicted))

	slog.Info("saved photo", "path", relPath, "evicted", len(evicted))
	return record, nil
}

// List returns the collection newest first. Unreadable or corrupt indexes
// yield an empty collection.
func (s *PhotoStore) List(ctx context.Context) []PhotoRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex(ctx)
}

// Find looks a record up by path, URI or file name.
func (s *PhotoStore) Find(ctx context.Context, identity string) (PhotoRecord, bool) {
	records := s.List(ctx)
	idx := indexOf(records, identity)
	if idx < 0 {
		return PhotoRecord{}, false
	}
	return records[idx], true
}

// Delete removes the artifact and then the record. It reports false and
// leaves the collection untouched when the artifact cannot be removed.
func (s *PhotoStore) Delete(ctx context.Context, identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.readIndex(ctx)
	idx := indexOf(records, identity)
	if idx < 0 {
		slog.Warn("photo to delete not found", "identity", identity)
		return false
	}
	target := records[idx]

	if err := s.files.DeleteFile(ctx, target.locator()); err != nil {
		slog.Error("failed to delete photo artifact", "path", target.Path, "error", err)
		return false
	}

	remaining := slices.Delete(slices.Clone(records), idx, idx+1)
	if err := s.writeIndex(ctx, remaining); err != nil {
		slog.Error("failed to update photo index after delete", "path", target.Path, "error", err)
		return false
	}
	s.forgetMetadata(ctx, target)
	s.metrics.photoDeleted()
	slog.Info("deleted photo", "path", target.Path)
	return true
}

// HasRecordToday reports whether any record falls on the current local date.
func (s *PhotoStore) HasRecordToday(ctx context.Context) bool {
	start := startOfDay(s.now(), s.location)
	first := start.UnixMilli()
	last := start.AddDate(0, 0, 1).UnixMilli() - 1
	for _, record := range s.List(ctx) {
		if record.CapturedAt >= first && record.CapturedAt <= last {
			return true
		}
	}
	return false
}

func (s *PhotoStore) forgetMetadata(ctx context.Context, record PhotoRecord) {
	if s.cascade == nil {
		return
	}
	if err := s.cascade.Forget(ctx, record.Path); err != nil {
		slog.Warn("failed to remove photo metadata", "path", record.Path, "error", err)
	}
}

func indexOf(records []PhotoRecord, identity string) int {
	if identity == "" {
		return -1
	}
	return slices.IndexFunc(records, func(r PhotoRecord) bool {
		return r.Path == identity || r.URI == identity || r.Name() == identity
	})
}

func (s *PhotoStore) readIndex(ctx context.Context) []PhotoRecord {
	raw, found, err := s.kv.Get(ctx, indexKey)
	if err != nil {
		slog.Warn("photo index unreadable, treating as empty", "error", fmt.Errorf("%w: %w", common.ErrStorageRead, err))
		return []PhotoRecord{}
	}
	if !found {
		return []PhotoRecord{}
	}
	records, err := decodeIndex([]byte(raw), s.now)
	if err != nil {
		slog.Warn("photo index corrupt, treating as empty", "error", err)
		return []PhotoRecord{}
	}
	return records
}

func (s *PhotoStore) writeIndex(ctx context.Context, records []PhotoRecord) error {
	if records == nil {
		records = []PhotoRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageWrite, err)
	}
	if err := s.kv.Set(ctx, indexKey, string(raw)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageWrite, err)
	}
	return nil
}

// decodeIndex reads both the structured form and the legacy form, a plain
// array of URIs, in which path and timestamp are recovered from the name.
func decodeIndex(raw []byte, now Clock) ([]PhotoRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []PhotoRecord{}, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorrupt, err)
	}

	records := make([]PhotoRecord, 0, len(entries))
	for _, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 {
			continue
		}
		switch entry[0] {
		case '"':
			var uri string
			if err := json.Unmarshal(entry, &uri); err != nil || uri == "" {
				continue
			}
			records = append(records, legacyRecord(uri, now))
		case '{':
			var record PhotoRecord
			if err := json.Unmarshal(entry, &record); err != nil {
				slog.Warn("skipping malformed photo record", "error", err)
				continue
			}
			if record.URI == "" && record.Path == "" {
				continue
			}
			if record.URI == "" {
				record.URI = record.Path
			}
			if record.Path == "" {
				record.Path = pathFromLocator(record.URI)
			}
			if record.CapturedAt == 0 {
				record.CapturedAt = timestampOrNow(record.Path, now)
			}
			records = append(records, record)
		default:
			slog.Warn("skipping unrecognized photo record", "entry", string(entry))
		}
	}
	return records, nil
}

func legacyRecord(uri string, now Clock) PhotoRecord {
	relPath := pathFromLocator(uri)
	return PhotoRecord{URI: uri, Path: relPath, CapturedAt: timestampOrNow(uri, now)}
}

func timestampOrNow(locator string, now Clock) int64 {
	if millis, ok := timestampFromLocator(locator); ok {
		return millis
	}
	return now().UnixMilli()
}
