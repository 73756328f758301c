package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/woundtrack/internal/backend/database"
	"github.com/jo-hoe/woundtrack/internal/common"
)

const (
	notePrefix           = "note_"
	classificationPrefix = "wound_type_"
)

// MetadataStore keeps free-text notes and wound classifications keyed by
// photo path. Writes with an empty identity or value are ignored.
type MetadataStore struct {
	kv database.KeyValueStore
}

func NewMetadataStore(kv database.KeyValueStore) *MetadataStore {
	return &MetadataStore{kv: kv}
}

func (m *MetadataStore) SetNote(ctx context.Context, identity, text string) error {
	return m.set(ctx, notePrefix, identity, text)
}

func (m *MetadataStore) Note(ctx context.Context, identity string) (string, bool) {
	return m.get(ctx, notePrefix, identity)
}

func (m *MetadataStore) SetClassification(ctx context.Context, identity, label string) error {
	return m.set(ctx, classificationPrefix, identity, label)
}

func (m *MetadataStore) Classification(ctx context.Context, identity string) (string, bool) {
	return m.get(ctx, classificationPrefix, identity)
}

// Forget removes every entry stored for identity.
func (m *MetadataStore) Forget(ctx context.Context, identity string) error {
	if identity == "" {
		return nil
	}
	return errors.Join(
		m.kv.Delete(ctx, notePrefix+identity),
		m.kv.Delete(ctx, classificationPrefix+identity),
	)
}

func (m *MetadataStore) set(ctx context.Context, prefix, identity, value string) error {
	if identity == "" || value == "" {
		return nil
	}
	if err := m.kv.Set(ctx, prefix+identity, value); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageWrite, err)
	}
	return nil
}

func (m *MetadataStore) get(ctx context.Context, prefix, identity string) (string, bool) {
	if identity == "" {
		return "", false
	}
	value, found, err := m.kv.Get(ctx, prefix+identity)
	if err != nil {
		slog.Warn("failed to read photo metadata", "key", prefix+identity, "error", err)
		return "", false
	}
	return value, found
}
