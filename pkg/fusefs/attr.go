package fusefs

import (
	"fmt"
	"os"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"

	"supertag/pkg/engine"
)

func applyAttr(attr *fuse.Attr, a engine.Attr) {
	attr.Inode = a.Inode
	attr.Uid = a.UID
	attr.Gid = a.GID
	attr.Size = a.Size
	attr.Mtime = a.Mtime
	attr.Ctime = a.Ctime
	attr.Atime = a.Atime

	switch a.Kind {
	case engine.KindFile:
		attr.Mode = os.ModeSymlink | os.FileMode(a.Mode&0777)
	default:
		attr.Mode = os.ModeDir | os.FileMode(a.Mode&0777)
	}
}

// statDeviceInode extracts the (device, inode) pair identifying the real
// file a symlink(2) request targets, the natural key File rows are
// keyed on.
func statDeviceInode(path string) (device, inode uint64, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statting %s: %w", path, err)
	}
	return uint64(st.Dev), st.Ino, nil
}
