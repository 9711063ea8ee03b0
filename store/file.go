package store

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/YuminosukeSato/pricefit/core/model"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

const (
	fileExt    = ".json"
	tempPrefix = ".tmp-"
)

// FileStore keeps one file per key in a directory. Each file holds the JSON
// record followed by its xxhash64 checksum.
//
// Saves go to a temporary file in the same directory that is renamed over the
// target, so readers see the old file or the new one. Save and Load on the same
// key are serialized.
type FileStore struct {
	dir   string
	locks sync.Map // key -> *sync.Mutex
}

// NewFileStore creates dir if needed and returns a FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewModelError("NewFileStore", "create directory", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (f *FileStore) Dir() string {
	return f.dir
}

// Path returns the file that holds key.
func (f *FileStore) Path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

// KeyFromPath maps a file in the store directory back to its key. ok is false
// for temporary files and anything that is not an artifact.
func KeyFromPath(path string) (key string, ok bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, tempPrefix) || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	key = strings.TrimSuffix(base, fileExt)
	return key, ValidateKey(key) == nil
}

func (f *FileStore) lock(key string) func() {
	v, _ := f.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Save implements Store.
func (f *FileStore) Save(ctx context.Context, key string, a Artifact) (time.Time, error) {
	if err := ValidateKey(key); err != nil {
		return time.Time{}, err
	}
	if err := a.Bundle.Validate(); err != nil {
		return time.Time{}, err
	}
	unlock := f.lock(key)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	savedAt := now()
	rec := a.Bundle.Record()
	rec.SavedAt = savedAt
	var buf bytes.Buffer
	if err := model.EncodeRecord(&buf, rec); err != nil {
		return time.Time{}, err
	}

	tmp, err := os.CreateTemp(f.dir, tempPrefix+key+"-*")
	if err != nil {
		return time.Time{}, errors.NewModelError("FileStore.Save", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return time.Time{}, errors.NewModelError("FileStore.Save", "write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return time.Time{}, errors.NewModelError("FileStore.Save", "sync", err)
	}
	if err := tmp.Close(); err != nil {
		return time.Time{}, errors.NewModelError("FileStore.Save", "close", err)
	}
	if err := os.Rename(tmpName, f.Path(key)); err != nil {
		return time.Time{}, errors.NewModelError("FileStore.Save", "rename", err)
	}
	return savedAt, nil
}

// Load implements Store.
func (f *FileStore) Load(ctx context.Context, key string) (Artifact, error) {
	if err := ValidateKey(key); err != nil {
		return Artifact{}, err
	}
	unlock := f.lock(key)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	file, err := os.Open(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Artifact{}, errors.NewNotFoundError(key)
	}
	if err != nil {
		return Artifact{}, errors.NewModelError("FileStore.Load", "open", err)
	}
	defer file.Close()

	rec, err := model.DecodeRecord(file)
	if err != nil {
		return Artifact{}, err
	}
	return fromRecord(rec), nil
}
