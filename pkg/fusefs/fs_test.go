package fusefs

import (
	"os"
	"testing"
	"time"

	"bazil.org/fuse"
	"github.com/stretchr/testify/require"

	"supertag/pkg/engine"
	"supertag/pkg/store"
)

func TestMapErrTranslatesStoreErrorKinds(t *testing.T) {
	require.Equal(t, fuse.ENOENT, mapErr(store.ErrNotFound))
	require.Equal(t, fuse.EEXIST, mapErr(store.ErrAlreadyExists))
	require.Equal(t, fuse.EPERM, mapErr(store.ErrPermissionDenied))
	require.Equal(t, fuse.EIO, mapErr(store.ErrIntegrityFailure))
	require.Equal(t, fuse.EIO, mapErr(store.ErrExternalIO))
	require.Nil(t, mapErr(nil))
}

func TestJoinRelAtRoot(t *testing.T) {
	require.Equal(t, "/work", joinRel("/", "work"))
	require.Equal(t, "/work/urgent", joinRel("/work", "urgent"))
	require.Equal(t, "/work/urgent", joinRel("/work/", "urgent"))
}

func TestApplyAttrMarksFilesAsSymlinks(t *testing.T) {
	var out fuse.Attr
	now := time.Now()
	applyAttr(&out, engine.Attr{
		Inode: 7, Kind: engine.KindFile, Mode: 0644,
		UID: 1000, GID: 1000, Mtime: now, Ctime: now, Atime: now,
	})
	require.Equal(t, uint64(7), out.Inode)
	require.NotZero(t, out.Mode&os.ModeSymlink)

	applyAttr(&out, engine.Attr{Inode: 8, Kind: engine.KindTagDir, Mode: 0755})
	require.NotZero(t, out.Mode&os.ModeDir)
}
