// Package filestore keeps uploaded branding images. Images are addressed by
// category and an opaque id; the renderer reads them back through Resolve.
package filestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lvillar/psyreport/branding"
)

var (
	ErrNotFound  = errors.New("filestore: not found")
	ErrInvalidID = errors.New("filestore: invalid id")
	ErrEmpty     = errors.New("filestore: no file data provided")
)

// Info describes a stored file.
type Info struct {
	ID       string                 `json:"filename"`
	Category branding.ImageCategory `json:"type"`
	URL      string                 `json:"url"`
	Size     int64                  `json:"size"`
}

// Store persists branding images.
type Store interface {
	Save(ctx context.Context, data []byte, ext string, category branding.ImageCategory, ownerID string) (Info, error)
	Delete(ctx context.Context, id string, category branding.ImageCategory) (bool, error)
	Resolve(ctx context.Context, ref branding.ImageRef) ([]byte, error)
	PurgeOlderThan(ctx context.Context, category branding.ImageCategory, maxAge time.Duration) (int, error)
}

// URL is the public path a stored file is served under.
func URL(category branding.ImageCategory, id string) string {
	return "/uploads/" + category.Dir() + "/" + id
}

// OwnedBy reports whether id was saved for ownerID.
func OwnedBy(id, ownerID string) bool {
	return ownerID != "" && strings.HasPrefix(id, ownerID+"_")
}

// imageExts maps the MIME subtypes accepted in data URLs to file extensions.
var imageExts = map[string]string{
	"png":  "png",
	"jpg":  "jpg",
	"jpeg": "jpeg",
	"gif":  "gif",
	"webp": "webp",
	"bmp":  "bmp",
	"tiff": "tiff",
}

// DecodeDataURL decodes "data:image/png;base64,..." or bare base64 data and
// returns the bytes and a file extension. Unknown or missing MIME types get
// the "png" extension.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrEmpty
	}
	ext := "png"
	payload := s
	if info, data, ok := strings.Cut(s, ";base64,"); ok {
		payload = data
		if _, mime, ok := strings.Cut(info, ":"); ok {
			if _, sub, ok := strings.Cut(mime, "/"); ok {
				if e, ok := imageExts[strings.ToLower(sub)]; ok {
					ext = e
				}
			}
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, "", fmt.Errorf("filestore: decoding base64: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	return data, ext, nil
}
