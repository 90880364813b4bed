package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalPrefix is the URL path the local upload directory is served under.
const LocalPrefix = "/uploads/"

// Local keeps uploads on disk.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(_ context.Context, filename, _ string, r io.Reader, _ int64) (string, error) {
	key := objectKey(filename)
	f, err := os.OpenFile(filepath.Join(l.dir, key), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return LocalPrefix + key, nil
}

func (l *Local) Delete(_ context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, LocalPrefix)
	if !ok || key == "" || strings.ContainsAny(key, `/\`) || key == ".." {
		return ErrNotFound
	}
	if err := os.Remove(filepath.Join(l.dir, key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (l *Local) Ping(context.Context) error {
	st, err := os.Stat(l.dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", l.dir)
	}
	return nil
}
