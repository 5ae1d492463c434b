package fusefs

import (
	"context"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"supertag/pkg/engine"
)

// Dir is a tag, tag-group, or filedir node, named by its path relative
// to the collection root.
type Dir struct {
	fs  *FS
	rel string
}

var _ fs.Node = (*Dir)(nil)
var _ fs.NodeRequestLookuper = (*Dir)(nil)
var _ fs.HandleReadDirAller = (*Dir)(nil)
var _ fs.NodeMkdirer = (*Dir)(nil)
var _ fs.NodeRemover = (*Dir)(nil)
var _ fs.NodeSymlinker = (*Dir)(nil)
var _ fs.NodeRenamer = (*Dir)(nil)
var _ fs.NodeSetattrer = (*Dir)(nil)

func (d *Dir) Attr(ctx context.Context, attr *fuse.Attr) error {
	a, err := d.fs.Engine.Getattr(ctx, d.rel)
	if err != nil {
		return mapErr(err)
	}
	applyAttr(attr, a)
	return nil
}

func (d *Dir) Lookup(ctx context.Context, req *fuse.LookupRequest, resp *fuse.LookupResponse) (fs.Node, error) {
	childRel := joinRel(d.rel, req.Name)
	r, err := d.fs.Engine.Resolve(ctx, childRel)
	if err != nil {
		return nil, mapErr(err)
	}
	if r.Kind == engine.KindFile {
		return &File{fs: d.fs, rel: childRel}, nil
	}
	return &Dir{fs: d.fs, rel: childRel}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.fs.Engine.Readdir(ctx, d.rel)
	if err != nil {
		return nil, mapErr(err)
	}

	out := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		out = append(out, fuse.Dirent{Name: e.Name, Type: direntType(e.Kind)})
	}
	return out, nil
}

func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	_, err := d.fs.Engine.Mkdir(ctx, d.rel, req.Name, req.Uid, req.Gid, uint32(req.Mode))
	if err != nil {
		return nil, mapErr(err)
	}
	return &Dir{fs: d.fs, rel: joinRel(d.rel, req.Name)}, nil
}

func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	if req.Dir {
		return mapErr(d.fs.Engine.Rmdir(ctx, joinRel(d.rel, req.Name)))
	}
	return mapErr(d.fs.Engine.Unlink(ctx, d.rel, req.Name))
}

// Symlink is how a file enters the collection: `ln -s <target> <name>`
// inside a tag directory tags the target with every positive tag along
// d's path.
func (d *Dir) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {
	dev, inode, err := statDeviceInode(req.Target)
	if err != nil {
		return nil, mapErr(err)
	}

	if _, err := d.fs.Engine.Symlink(ctx, d.rel, req.NewName, req.Target, dev, inode, req.Uid, req.Gid, 0644); err != nil {
		return nil, mapErr(err)
	}
	return &File{fs: d.fs, rel: joinRel(d.rel, req.NewName)}, nil
}

func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	nd, ok := newDir.(*Dir)
	if !ok {
		return fuse.EIO
	}
	oldRel := joinRel(d.rel, req.OldName)
	newRel := joinRel(nd.rel, req.NewName)
	return mapErr(d.fs.Engine.Rename(ctx, oldRel, newRel))
}

func (d *Dir) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	// Tag/group ownership and mode changes aren't modelled as a separate
	// store call yet; accept the request without error so tools like `cp
	// -p`/`touch` don't fail outright, mirroring directories that can't
	// meaningfully resize or retime.
	return nil
}

func direntType(k engine.Kind) fuse.DirentType {
	switch k {
	case engine.KindFile:
		return fuse.DT_Link
	default:
		return fuse.DT_Dir
	}
}
