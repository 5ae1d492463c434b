// Package fusefs adapts pkg/engine to bazil.org/fuse's node interfaces.
// It holds no filesystem logic of its own beyond translating kernel
// requests into engine calls and engine results into fuse types.
package fusefs

import (
	"context"
	"errors"
	"strings"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"supertag/pkg/engine"
	"supertag/pkg/store"
)

// FS is the root of the mounted filesystem.
type FS struct {
	Engine *engine.Engine
}

var _ fs.FS = (*FS)(nil)
var _ fs.FSStatfser = (*FS)(nil)

func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f, rel: "/"}, nil
}

func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	files, tags, err := f.Engine.Statfs(ctx)
	if err != nil {
		return mapErr(err)
	}
	resp.Blocks = uint64(files) + uint64(tags) + 1
	resp.Files = uint64(files) + uint64(tags) + 1
	resp.Bsize = 4096
	return nil
}

func joinRel(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(parent, "/") + "/" + name
}

// mapErr translates a store/engine error kind into the kernel errno the
// bridge boundary is supposed to surface.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fuse.ENOENT
	case errors.Is(err, store.ErrAlreadyExists):
		return fuse.EEXIST
	case errors.Is(err, store.ErrNameInvalid):
		return fuse.Errno(syscall.EINVAL)
	case errors.Is(err, store.ErrPermissionDenied):
		return fuse.EPERM
	case errors.Is(err, store.ErrIntegrityFailure), errors.Is(err, store.ErrExternalIO):
		return fuse.EIO
	default:
		return fuse.EIO
	}
}
