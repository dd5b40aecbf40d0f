package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const localPrefix = "local:"

// Local keeps evidence files in a directory on disk.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Put(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(obj.Name)
	if err := os.WriteFile(filepath.Join(l.dir, key), obj.Data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return localPrefix + key, nil
}

// Delete removes the file behind ref. A file that is already gone counts
// as released.
func (l *Local) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := strings.CutPrefix(ref, localPrefix)
	if !ok || key == "" || key != filepath.Base(key) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (l *Local) Close() error { return nil }
