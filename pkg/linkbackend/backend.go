// Package linkbackend abstracts how a virtual symlink's target survives
// the underlying file being moved or renamed on the host filesystem.
//
// On Linux a symlink that stores a path simply breaks if the target
// moves; Supertag accepts that and falls back to a path lookup. On
// macOS, Finder aliases (bookmark data) can follow a rename/move within
// the same volume, so the backend records enough information to attempt
// the same trick using a lighter-weight blob of our own: the original
// path plus the (device, inode) it resolved to at link time.
package linkbackend

// Backend records and resolves the information needed to find a file's
// current path even after it has moved, within whatever each platform
// can support.
type Backend interface {
	// Record captures whatever state is needed to later recover target's
	// location. A nil/empty return means the backend isn't tracking
	// relocation and callers should rely solely on the stored path.
	Record(target string) ([]byte, error)

	// Resolve returns the best known current path for a file, given its
	// last recorded blob and the path it was stored under. If blob is
	// empty or can't resolve, fallbackPath is returned.
	Resolve(blob []byte, fallbackPath string) (string, error)

	// Relocate re-records a tracked file after its path is known to have
	// changed, returning an updated blob.
	Relocate(blob []byte, newTarget string) ([]byte, error)
}
