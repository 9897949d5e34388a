package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lvillar/psyreport/branding"
)

// Disk stores files under <root>/<category>s/<owner>_<uuid>.<ext>.
type Disk struct {
	root string
	now  func() time.Time
}

var _ Store = (*Disk)(nil)

// NewDisk creates the category directories under root.
func NewDisk(root string) (*Disk, error) {
	cats := append([]branding.ImageCategory{branding.CategoryTemp}, branding.ImageCategories...)
	for _, c := range cats {
		if err := os.MkdirAll(filepath.Join(root, c.Dir()), 0o755); err != nil {
			return nil, fmt.Errorf("filestore: creating %s: %w", c.Dir(), err)
		}
	}
	return &Disk{root: root, now: time.Now}, nil
}

// Root returns the storage directory.
func (d *Disk) Root() string {
	return d.root
}

// Path returns the file path of id, rejecting ids that would escape the
// category directory.
func (d *Disk) Path(category branding.ImageCategory, id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if _, ok := branding.ParseImageCategory(string(category)); !ok {
		return "", fmt.Errorf("%w: category %q", ErrInvalidID, category)
	}
	return filepath.Join(d.root, category.Dir(), id), nil
}

func (d *Disk) Save(ctx context.Context, data []byte, ext string, category branding.ImageCategory, ownerID string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if ext == "" {
		ext = "png"
	}
	id := fmt.Sprintf("%s_%s.%s", ownerID, uuid.NewString(), strings.TrimPrefix(ext, "."))
	path, err := d.Path(category, id)
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Info{}, fmt.Errorf("filestore: saving %s file: %w", category, err)
	}
	return Info{ID: id, Category: category, URL: URL(category, id), Size: int64(len(data))}, nil
}

// Delete removes a file. It reports false when the file did not exist.
func (d *Disk) Delete(ctx context.Context, id string, category branding.ImageCategory) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := d.Path(category, id)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("filestore: deleting %s: %w", id, err)
	}
	return true, nil
}

func (d *Disk) Resolve(ctx context.Context, ref branding.ImageRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.Path(ref.Category, ref.ID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: reading %s: %w", ref, err)
	}
	return data, nil
}

// PurgeOlderThan removes files of category last modified more than maxAge
// ago and returns how many were removed.
func (d *Disk) PurgeOlderThan(ctx context.Context, category branding.ImageCategory, maxAge time.Duration) (int, error) {
	dir := filepath.Join(d.root, category.Dir())
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("filestore: listing %s: %w", category.Dir(), err)
	}
	cutoff := d.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
