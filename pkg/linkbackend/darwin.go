//go:build darwin

package linkbackend

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sys/unix"
)

// aliasRecord is the Go-native stand-in for a Finder bookmark: instead of
// CoreFoundation bookmark data we keep the path the file lived at plus
// the (device, inode) it resolved to, and treat a stat mismatch as
// "moved, needs re-recording" rather than attempting a true volume-wide
// relocation search.
type aliasRecord struct {
	Path  string `cbor:"path"`
	Dev   uint64 `cbor:"dev"`
	Inode uint64 `cbor:"inode"`
}

type darwinBackend struct{}

// New returns the platform backend: alias-blob tracking via stat on
// darwin.
func New() Backend {
	return darwinBackend{}
}

func (darwinBackend) Record(target string) ([]byte, error) {
	var st unix.Stat_t
	if err := unix.Stat(target, &st); err != nil {
		return nil, fmt.Errorf("statting %s: %w", target, err)
	}
	rec := aliasRecord{Path: target, Dev: uint64(st.Dev), Inode: st.Ino}
	blob, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding alias record for %s: %w", target, err)
	}
	return blob, nil
}

func (darwinBackend) Resolve(blob []byte, fallbackPath string) (string, error) {
	if len(blob) == 0 {
		return fallbackPath, nil
	}
	var rec aliasRecord
	if err := cbor.Unmarshal(blob, &rec); err != nil {
		return fallbackPath, nil
	}

	var st unix.Stat_t
	if err := unix.Stat(rec.Path, &st); err == nil && uint64(st.Dev) == rec.Dev && st.Ino == rec.Inode {
		return rec.Path, nil
	}

	if err := unix.Stat(fallbackPath, &st); err == nil && uint64(st.Dev) == rec.Dev && st.Ino == rec.Inode {
		return fallbackPath, nil
	}

	return fallbackPath, nil
}

func (d darwinBackend) Relocate(blob []byte, newTarget string) ([]byte, error) {
	return d.Record(newTarget)
}
