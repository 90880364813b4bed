// Package storage holds uploaded images (profile pictures, link and
// follow-up images) and hands back the reference the backend stores.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Delete for references this store does not own
// or that no longer exist.
var ErrNotFound = errors.New("stored file not found")

type Store interface {
	Name() string
	Put(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
	Ping(ctx context.Context) error
}

var allowedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

// objectKey gives every upload a fresh name, keeping only a known image extension.
func objectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExt[ext] {
		ext = ""
	}
	return uuid.NewString() + ext
}
