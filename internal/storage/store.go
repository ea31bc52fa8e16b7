package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"mediastudio/internal/domain"
)

// Hint tells the store where an object belongs. Stores may ignore Name.
type Hint struct {
	Folder      string
	Name        string
	ContentType string
}

// Store is the object storage contract used by the pipeline. Upload returns
// the opaque identifier later accepted by Delete. Errors are *failure.Error.
type Store interface {
	Upload(ctx context.Context, data []byte, hint Hint) (domain.StoredObject, error)
	Delete(ctx context.Context, id string) error
	Open(ctx context.Context, obj domain.StoredObject) (io.ReadCloser, error)
}

// objectName builds folder/name-<uuid>.<ext> for a hint.
func objectName(hint Hint) string {
	base := slug(hint.Name)
	if base == "" {
		base = "object"
	}
	name := base + "-" + uuid.NewString()[:8] + extensionFor(hint.ContentType)
	folder := strings.Trim(strings.TrimSpace(hint.Folder), "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "text/plain", "text/plain; charset=utf-8":
		return ".txt"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 48 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
