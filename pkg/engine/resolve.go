package engine

import (
	"context"
	"fmt"

	"supertag/pkg/naming"
	"supertag/pkg/pathexpr"
	"supertag/pkg/store"
)

// Resolve parses rel and looks up what it currently names. Getattr and
// Readlink go through it; the mutating operations and Readdir parse and
// resolve their paths themselves.
func (e *Engine) Resolve(ctx context.Context, rel string) (Resolved, error) {
	e.beginOp()
	defer e.endOp()

	expr, _, _, err := pathexpr.Parse(rel, e.syms)
	if err != nil {
		return Resolved{}, fmt.Errorf("%s: %w", rel, store.ErrNameInvalid)
	}

	var result Resolved
	err = e.store.ReadOnly(ctx, func(tx *store.Tx) error {
		r, err := e.resolveExpr(tx, expr)
		result = r
		return err
	})
	return result, err
}

func (e *Engine) resolveExpr(tx *store.Tx, expr pathexpr.Expr) (Resolved, error) {
	if expr.Terminal == pathexpr.TerminalFile {
		return e.resolveFileLeaf(tx, expr)
	}

	pos, neg, err := e.resolveRefSets(tx, expr)
	if err != nil {
		return Resolved{}, err
	}

	if expr.Terminal == pathexpr.TerminalFiledir {
		return e.buildFiledir(pos, neg, expr), nil
	}

	if expr.Empty() {
		return e.buildRoot(), nil
	}

	if expr.LastIsNeg {
		return e.buildTagDir(pos, neg, expr, nil, nil), nil
	}

	switch expr.LastRef.Kind {
	case pathexpr.KindGroup:
		if pos.lastGrp == nil {
			return Resolved{}, fmt.Errorf("%s: %w", expr.LastRef.Name, store.ErrNotFound)
		}
		return e.buildGroupDir(pos, neg, expr, pos.lastGrp), nil
	default:
		return e.buildTagDir(pos, neg, expr, pos.lastTag, nil), nil
	}
}

func (e *Engine) resolveFileLeaf(tx *store.Tx, expr pathexpr.Expr) (Resolved, error) {
	parentExpr := expr
	parentExpr.Terminal = pathexpr.TerminalNone

	pos, neg, err := e.resolveRefSets(tx, parentExpr)
	if err != nil {
		return Resolved{}, err
	}

	files, err := e.filesForSets(tx, pos, neg)
	if err != nil {
		return Resolved{}, err
	}

	for _, f := range files {
		if expr.File.Qualified {
			if f.Device == expr.File.Device && f.Inode == expr.File.Inode {
				return e.buildFile(tx, f), nil
			}
			continue
		}
		if f.PrimaryName == expr.File.Name {
			return e.buildFile(tx, f), nil
		}
	}
	return Resolved{}, fmt.Errorf("%s: %w", expr.File.Name, store.ErrNotFound)
}

func (e *Engine) buildRoot() Resolved {
	return Resolved{
		Kind: KindRoot,
		Attr: Attr{
			Inode: naming.RootInode,
			Kind:  KindRoot,
			UID:   e.mount.UID,
			GID:   e.mount.GID,
			Mode:  0755,
		},
	}
}

func (e *Engine) buildTagDir(pos, neg resolveRefSet, expr pathexpr.Expr, t *store.Tag, _ *store.TagGroup) Resolved {
	inode := naming.InodeForTags(pos.plainIDsAndAlts(), negativeFlatIDs(neg))
	attr := Attr{
		Inode: inode,
		Kind:  KindTagDir,
		Mode:  0755,
		UID:   e.mount.UID,
		GID:   e.mount.GID,
	}
	var tagID int64
	if t != nil {
		attr.UID = t.UID
		attr.GID = t.GID
		attr.Mode = t.Permissions
		attr.FileCount = t.FileCount
		attr.Mtime = unixTime(t.ModifiedAt)
		attr.Ctime = unixTime(t.CreatedAt)
		tagID = t.ID
	}
	return Resolved{Kind: KindTagDir, Attr: attr, TagID: tagID, Expr: expr}
}

func (e *Engine) buildGroupDir(pos, neg resolveRefSet, expr pathexpr.Expr, g *store.TagGroup) Resolved {
	inode := naming.InodeForTags(pos.plainIDsAndAlts(), negativeFlatIDs(neg))
	attr := Attr{
		Inode: inode,
		Kind:  KindGroupDir,
		Mode:  g.Permissions,
		UID:   g.UID,
		GID:   g.GID,
		Mtime: unixTime(g.ModifiedAt),
		Ctime: unixTime(g.CreatedAt),
	}
	return Resolved{Kind: KindGroupDir, Attr: attr, GroupID: g.ID, Expr: expr}
}

func (e *Engine) buildFiledir(pos, neg resolveRefSet, expr pathexpr.Expr) Resolved {
	inode := naming.InodeForFiledir(pos.plainIDsAndAlts(), negativeFlatIDs(neg))
	return Resolved{
		Kind: KindFiledir,
		Attr: Attr{
			Inode: inode,
			Kind:  KindFiledir,
			Mode:  0555,
			UID:   e.mount.UID,
			GID:   e.mount.GID,
		},
		Expr: expr,
	}
}

func (e *Engine) buildFile(tx *store.Tx, f store.File) Resolved {
	target := f.TargetPath
	if e.link != nil {
		if resolved, err := e.link.Resolve(f.AliasBlob, f.TargetPath); err == nil {
			target = resolved
		}
	}
	return Resolved{
		Kind:       KindFile,
		FileID:     f.ID,
		TargetPath: target,
		Attr: Attr{
			Inode: naming.InodeForFiledir([]int64{f.ID}, nil),
			Kind:  KindFile,
			Mode:  0120777,
			UID:   e.mount.UID,
			GID:   e.mount.GID,
			Mtime: unixTime(f.ModifiedAt),
			Ctime: unixTime(f.CreatedAt),
			Size:  uint64(len(target)),
		},
	}
}

// plainIDsAndAlts collapses a resolveRefSet into the flat id list
// InodeForTags hashes over: plain ids sorted by id (so segment order does
// not change the inode) plus, for each group alternative, every member id
// (so the inode changes if group membership changes, matching the spec's
// requirement that it only changes when the tag set it names changes).
func (rs resolveRefSet) plainIDsAndAlts() []int64 {
	out := naming.SortByID(rs.plainIDs)
	for _, alt := range rs.altSets {
		out = append(out, naming.SortByID(alt)...)
	}
	return out
}
