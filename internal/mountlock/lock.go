// Package mountlock guards a collection directory against being mounted
// by two supertag processes at once: the relational store itself
// tolerates concurrent connections, but two independent fuse.Serve loops
// over the same SQLite file would race on cache invalidation and the
// kernel's view of inode numbers.
package mountlock

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gofrs/flock"
)

// Lock is a held advisory lock over one collection directory's
// .supertag.lock file.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock for collectionDir, retrying briefly in case
// another process is in the middle of its own shutdown.
func Acquire(ctx context.Context, collectionDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(collectionDir, ".supertag.lock"))

	err := retry.Do(
		func() error {
			ok, err := fl.TryLock()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("collection %s is already mounted", collectionDir)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(100*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
