package fusefs

import (
	"fmt"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/sirupsen/logrus"

	"supertag/pkg/engine"
)

// Mount blocks serving the collection's filesystem at mountpoint until
// it is unmounted or the FUSE connection closes.
func Mount(eng *engine.Engine, mountpoint string, log *logrus.Logger) error {
	c, err := fuse.Mount(mountpoint, fuse.FSName("supertag"), fuse.Subtype("supertagfs"))
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", mountpoint, err)
	}
	defer c.Close()

	<-c.Ready
	if err := c.MountError; err != nil {
		return fmt.Errorf("mount error at %s: %w", mountpoint, err)
	}

	filesys := &FS{Engine: eng}
	if err := fs.Serve(c, filesys); err != nil {
		return fmt.Errorf("serving %s: %w", mountpoint, err)
	}

	eng.Drain()
	log.WithField("mountpoint", mountpoint).Info("unmounted")
	return nil
}
