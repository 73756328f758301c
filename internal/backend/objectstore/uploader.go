package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const defaultMaxUploadBytes = 10 << 20

var (
	ErrEmptyUpload     = errors.New("upload is empty")
	ErrTooLarge        = errors.New("upload exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Upload identifies a stored object.
type Upload struct {
	Key     string `json:"key"`
	Locator string `json:"locator"`
}

// Uploader names uploads uniquely and forwards them to an ObjectStore.
type Uploader struct {
	store    ObjectStore
	prefix   string
	maxBytes int64
	newID    func() string
}

func NewUploader(store ObjectStore, keyPrefix string, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &Uploader{
		store:    store,
		prefix:   keyPrefix,
		maxBytes: maxBytes,
		newID:    func() string { return uuid.New().String() },
	}
}

// MaxBytes is the largest accepted upload.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload stores data as <prefix><uuid><ext>. The declared content type
// wins when it is an allowed image type; the filename extension and then
// the sniffed bytes are fallbacks. The key extension follows the filename
// when it has an allowed one, otherwise the resolved content type.
func (u *Uploader) Upload(ctx context.Context, filename, declaredType string, data []byte) (Upload, error) {
	if len(data) == 0 {
		return Upload{}, ErrEmptyUpload
	}
	if int64(len(data)) > u.maxBytes {
		return Upload{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), u.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := resolveContentType(declaredType, ext, data)
	if !ok {
		return Upload{}, fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, ext, declaredType)
	}
	if _, allowed := allowedExtensions[ext]; !allowed {
		ext = extensionFor(contentType)
	}

	key := u.prefix + u.newID() + ext
	loc, err := u.store.Put(ctx, key, data, contentType)
	if err != nil {
		return Upload{}, err
	}
	slog.Info("uploaded file to remote storage", "driver", u.store.Driver(), "key", key, "size", len(data), "contentType", contentType)
	return Upload{Key: key, Locator: loc}, nil
}

func resolveContentType(declared, ext string, data []byte) (string, bool) {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && isAllowedType(mediaType) {
		return mediaType, true
	}
	if contentType, ok := allowedExtensions[ext]; ok {
		return contentType, true
	}
	if sniffed := http.DetectContentType(data); isAllowedType(sniffed) {
		return sniffed, true
	}
	return "", false
}

func isAllowedType(contentType string) bool {
	return extensionFor(contentType) != ""
}

var typeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func extensionFor(contentType string) string {
	return typeExtensions[strings.ToLower(contentType)]
}
