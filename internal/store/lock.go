package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/logscout/logscout/internal/errors"
)

// IndexLock is an advisory file lock over an index directory. It keeps
// two `logscout index` runs from interleaving writes to the SQLite
// corpus and the HNSW files.
type IndexLock struct {
	fl *flock.Flock
}

// AcquireIndexLock takes an exclusive, non-blocking lock on dir.
// Returns a store-locked error if another process holds it.
func AcquireIndexLock(dir string) (*IndexLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(dir, ".logscout.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreLocked, "acquire index lock")
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStoreLocked, "index directory %s is locked by another process", dir)
	}
	return &IndexLock{fl: fl}, nil
}

// Release unlocks the directory.
func (l *IndexLock) Release() error {
	return l.fl.Unlock()
}
