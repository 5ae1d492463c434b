package fusefs

import (
	"context"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// File is a virtual symlink leaf: a tagged (device, inode)-identified
// file, rendered under whichever filedir terminal it was looked up
// through.
type File struct {
	fs  *FS
	rel string
}

var _ fs.Node = (*File)(nil)
var _ fs.NodeReadlinker = (*File)(nil)

func (f *File) Attr(ctx context.Context, attr *fuse.Attr) error {
	a, err := f.fs.Engine.Getattr(ctx, f.rel)
	if err != nil {
		return mapErr(err)
	}
	applyAttr(attr, a)
	return nil
}

func (f *File) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	target, err := f.fs.Engine.Readlink(ctx, f.rel)
	if err != nil {
		return "", mapErr(err)
	}
	return target, nil
}
