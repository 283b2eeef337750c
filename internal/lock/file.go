package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/newthinker/augur/internal/core"
	"go.uber.org/zap"
)

// File is a lock file created with O_EXCL. A lock file older than the
// stale TTL is assumed abandoned by a crashed run and is taken over.
type File struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewFile creates a file lock at path. A zero ttl never breaks a lock.
func NewFile(path string, ttl time.Duration, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{path: path, ttl: ttl, now: time.Now, logger: logger}
}

// Acquire creates the lock file or fails with core.ErrLedgerLocked.
func (f *File) Acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(fh, "pid=%d acquired=%s\n", os.Getpid(), f.now().UTC().Format(time.RFC3339))
			fh.Close()
			return f.release, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		info, statErr := os.Stat(f.path)
		if statErr != nil {
			// released between open and stat
			continue
		}
		age := f.now().Sub(info.ModTime())
		if f.ttl > 0 && age > f.ttl {
			f.logger.Warn("breaking stale lock",
				zap.String("path", f.path),
				zap.Duration("age", age),
			)
			os.Remove(f.path)
			continue
		}
		return nil, core.WrapError(core.ErrLedgerLocked,
			fmt.Errorf("%s held for %s", f.path, age.Truncate(time.Second)))
	}
	return nil, core.WrapError(core.ErrLedgerLocked, fmt.Errorf("%s is contended", f.path))
}

func (f *File) release() {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("removing lock file failed", zap.String("path", f.path), zap.Error(err))
	}
}
