package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supertag/pkg/naming"
	"supertag/pkg/pathexpr"
	"supertag/pkg/store"
)

// Mkdir creates a new entry under parentRel named name.
//
// At the root, mkdir creates a tag, or a tag group if name carries the
// tag-group suffix. Anywhere deeper it behaves like "mkdir -p": name is
// treated as (and created as, if new) another tag, and the resulting
// tag set is pinned so it stays listable even while it holds no files.
func (e *Engine) Mkdir(ctx context.Context, parentRel, name string, uid, gid, mode uint32) (Resolved, error) {
	e.beginOp()
	defer e.endOp()

	parentExpr, _, _, err := pathexpr.Parse(parentRel, e.syms)
	if err != nil {
		return Resolved{}, fmt.Errorf("%s: %w", parentRel, store.ErrNameInvalid)
	}
	if naming.IsFiledir(name, e.syms) {
		return Resolved{}, fmt.Errorf("%s: %w", name, store.ErrNameInvalid)
	}

	var result Resolved
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		t := now()

		if parentExpr.Empty() {
			if strings.HasSuffix(name, e.syms.TagGroupStr) && name != e.syms.TagGroupStr {
				g, err := tx.CreateTagGroup(name, uid, gid, mode, t)
				if err != nil {
					return err
				}
				if err := tx.TouchRoot(t); err != nil {
					return err
				}
				result = e.buildGroupDir(resolveRefSet{}, resolveRefSet{}, pathexpr.Expr{}, &g)
				return nil
			}

			newTag, err := tx.CreateTag(name, uid, gid, mode, t)
			if err != nil {
				return err
			}
			if err := tx.TouchRoot(t); err != nil {
				return err
			}
			result = e.buildTagDir(resolveRefSet{plainIDs: []int64{newTag.ID}}, resolveRefSet{}, pathexpr.Expr{}, &newTag, nil)
			return nil
		}

		pos, neg, err := e.resolveRefSets(tx, parentExpr)
		if err != nil {
			return err
		}
		if len(neg.plainIDs) > 0 || len(neg.altSets) > 0 {
			return fmt.Errorf("%s: %w", parentRel, store.ErrNameInvalid)
		}

		newTag, err := tx.EnsureTag(name, uid, gid, mode, t)
		if err != nil {
			return err
		}

		idSet := append(append([]int64{}, pos.plainIDsAndAlts()...), newTag.ID)
		if _, err := tx.CreatePin(idSet, t); err != nil {
			return err
		}

		childExpr := parentExpr
		childExpr.Positive = append(append([]pathexpr.Ref{}, parentExpr.Positive...), pathexpr.Ref{Kind: pathexpr.KindTag, Name: name})
		result = e.buildTagDir(resolveRefSet{plainIDs: idSet}, neg, childExpr, &newTag, nil)
		return nil
	})
	return result, err
}

// Rmdir is always rejected: directories are tag intersections, not
// independently deletable containers, and removing a tag is done by
// renaming it away (see Rename) rather than unlinking a path.
func (e *Engine) Rmdir(ctx context.Context, rel string) error {
	e.beginOp()
	defer e.endOp()
	return fmt.Errorf("%s: %w", rel, store.ErrPermissionDenied)
}

// Symlink creates a virtual file named name under parentRel, pointing at
// target, tagged with every positive tag in parentRel's path. It does
// not support creating a file through a path containing a tag group: a
// group is a choice point for readers, not a concrete tag a new file can
// be filed under.
func (e *Engine) Symlink(ctx context.Context, parentRel, name, target string, device, inode uint64, uid, gid, mode uint32) (Resolved, error) {
	e.beginOp()
	defer e.endOp()

	parentExpr, _, _, err := pathexpr.Parse(parentRel, e.syms)
	if err != nil {
		return Resolved{}, fmt.Errorf("%s: %w", parentRel, store.ErrNameInvalid)
	}
	if parentExpr.Empty() {
		return Resolved{}, fmt.Errorf("%s: %w", parentRel, store.ErrPermissionDenied)
	}
	if naming.IsFiledir(name, e.syms) {
		return Resolved{}, fmt.Errorf("%s: %w", name, store.ErrNameInvalid)
	}

	var result Resolved
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		pos, _, err := e.resolveRefSets(tx, parentExpr)
		if err != nil {
			return err
		}
		if len(pos.altSets) > 0 {
			return fmt.Errorf("%s: %w", parentRel, store.ErrNameInvalid)
		}

		t := now()
		var blob []byte
		if e.link != nil {
			blob, _ = e.link.Record(target)
		}

		f, err := tx.LinkFile(device, inode, target, name, blob, pos.plainIDs, uid, gid, mode, t)
		if err != nil {
			return err
		}
		if err := tx.DropSupersededPins(pos.plainIDs); err != nil {
			return err
		}
		result = e.buildFile(tx, f)
		return nil
	})
	return result, err
}

// Unlink removes a file from a single tag directory (the deepest-only
// semantics: the file stays linked under any other tag it also carries,
// and is only deleted outright once its last tag association is gone).
func (e *Engine) Unlink(ctx context.Context, parentRel, name string) error {
	e.beginOp()
	defer e.endOp()

	parentExpr, _, _, err := pathexpr.Parse(parentRel, e.syms)
	if err != nil {
		return fmt.Errorf("%s: %w", parentRel, store.ErrNameInvalid)
	}
	if parentExpr.Empty() {
		return fmt.Errorf("%s: %w", parentRel, store.ErrPermissionDenied)
	}
	if parentExpr.LastIsNeg || parentExpr.LastRef.Kind != pathexpr.KindTag {
		return fmt.Errorf("%s: %w", parentRel, store.ErrNameInvalid)
	}

	return e.store.WithTx(ctx, func(tx *store.Tx) error {
		lastTag, err := tx.ResolveTag(parentExpr.LastRef.Name)
		if err != nil {
			return err
		}

		pos, neg, err := e.resolveRefSets(tx, parentExpr)
		if err != nil {
			return err
		}
		files, err := e.filesForSets(tx, pos, neg)
		if err != nil {
			return err
		}

		var target *store.File
		for _, f := range files {
			if f.PrimaryName == name {
				ff := f
				target = &ff
				break
			}
			if q := naming.Qualify(f.PrimaryName, f.Device, f.Inode, e.syms); q == name {
				ff := f
				target = &ff
				break
			}
		}
		if target == nil {
			return fmt.Errorf("%s: %w", name, store.ErrNotFound)
		}

		return tx.UnlinkFileFromTag(target.ID, lastTag.ID)
	})
}

// Rename implements merge semantics for tags and tag groups: renaming a
// tag directory onto a name nobody holds just renames it, but renaming
// it onto an existing tag untags every file at the source path's full
// intersection from the source's own (deepest) tag and retags it with
// every plain tag segment the destination path names — the destination
// does not need to share any prefix with the source, matching a plain
// `mv /a/b /c/d` between unrelated directories as well as a drag-and-drop
// `mv /src /dst/src` that repeats the source's own name under dst (see
// the same-name short-circuit below). It also implements tag<->group
// transmutation when dst carries the group suffix, and a fast path that
// just updates a device-backed file's display name when src and dst
// resolve to the same file under different names.
func (e *Engine) Rename(ctx context.Context, srcRel, dstRel string) error {
	e.beginOp()
	defer e.endOp()

	srcExpr, _, _, err := pathexpr.Parse(srcRel, e.syms)
	if err != nil {
		return fmt.Errorf("%s: %w", srcRel, store.ErrNameInvalid)
	}
	dstExpr, _, _, err := pathexpr.Parse(dstRel, e.syms)
	if err != nil {
		return fmt.Errorf("%s: %w", dstRel, store.ErrNameInvalid)
	}

	if srcExpr.Empty() || dstExpr.Empty() {
		return fmt.Errorf("%s: %w", srcRel, store.ErrPermissionDenied)
	}
	if srcExpr.LastIsNeg || dstExpr.LastIsNeg {
		return fmt.Errorf("%s: %w", srcRel, store.ErrNameInvalid)
	}

	// `mv /tagname <unlink_name>` at collection root deletes the tag
	// outright instead of merging it: a single plain tag with nothing
	// else in its path, renamed onto a single segment equal to the
	// configured sentinel.
	if srcExpr.Terminal == pathexpr.TerminalNone && dstExpr.Terminal == pathexpr.TerminalNone &&
		len(srcExpr.Positive) == 1 && len(srcExpr.Negative) == 0 && srcExpr.Positive[0].Kind == pathexpr.KindTag &&
		len(dstExpr.Positive) == 1 && len(dstExpr.Negative) == 0 &&
		dstExpr.Positive[0] == (pathexpr.Ref{Kind: pathexpr.KindTag, Name: e.syms.UnlinkName}) {
		return e.store.WithTx(ctx, func(tx *store.Tx) error {
			tag, err := tx.ResolveTag(srcExpr.Positive[0].Name)
			if err != nil {
				return err
			}
			if err := tx.DeleteTagByID(tag.ID); err != nil {
				return err
			}
			return tx.TouchRoot(now())
		})
	}

	if srcExpr.Terminal == pathexpr.TerminalFile || dstExpr.Terminal == pathexpr.TerminalFile {
		return e.store.WithTx(ctx, func(tx *store.Tx) error {
			return e.renameFileLeaf(tx, srcExpr, dstExpr, now())
		})
	}
	if srcExpr.Terminal == pathexpr.TerminalFiledir || dstExpr.Terminal == pathexpr.TerminalFiledir {
		return fmt.Errorf("%s: %w", srcRel, store.ErrNameInvalid)
	}

	return e.store.WithTx(ctx, func(tx *store.Tx) error {
		t := now()

		// A file browser doing a plain drag-move issues `mv /src
		// /dst/src`, repeating the source's own trailing name under
		// the destination directory. Detected by exact ref equality,
		// treat it as if that repeated segment were absent so the move
		// behaves like the merge `mv /src /dst` describes, rather than
		// failing on a nonsensical self-referential tag path.
		effDst := dstExpr
		effLast := dstExpr.LastRef
		if srcExpr.LastRef.Kind == pathexpr.KindTag && dstExpr.LastRef == srcExpr.LastRef {
			stripped, _, _, ok := dstExpr.WithoutLast()
			if !ok || len(stripped.Positive) == 0 {
				return fmt.Errorf("%s: %w", dstRel, store.ErrNameInvalid)
			}
			effDst = stripped
			effLast = effDst.Positive[len(effDst.Positive)-1]
		}

		if srcExpr.LastRef.Kind == pathexpr.KindGroup {
			if effLast.Kind != pathexpr.KindGroup {
				return fmt.Errorf("%s: %w", dstRel, store.ErrNameInvalid)
			}
			srcName, dstName := srcExpr.LastRef.Name, effLast.Name
			if srcName == dstName {
				return nil
			}
			if err := tx.RenameTagGroup(srcName, dstName, t); err != nil {
				return err
			}
			return tx.TouchRoot(t)
		}

		srcName := srcExpr.LastRef.Name
		srcTag, err := tx.ResolveTag(srcName)
		if err != nil {
			return err
		}

		if effLast.Kind == pathexpr.KindGroup {
			return e.transmuteTagToGroup(tx, srcTag, effLast.Name, t)
		}

		dstName := effLast.Name
		if dstName == srcName {
			return nil
		}

		if _, err := tx.ResolveTag(dstName); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err := tx.RenameTag(srcName, dstName, t); err != nil {
				return err
			}
			return tx.TouchRoot(t)
		}

		return e.mergeTagInto(tx, srcExpr, srcTag, effDst, t)
	})
}

// mergeTagInto is the general tag-directory merge: every file in
// files_at(srcExpr) - the source's full path intersection, not just
// every file srcTag ever touches - is untagged from srcTag and retagged
// with every plain tag segment dst names. dst is free to share no prefix
// at all with srcExpr.
func (e *Engine) mergeTagInto(tx *store.Tx, srcExpr pathexpr.Expr, srcTag store.Tag, dst pathexpr.Expr, t float64) error {
	files, err := e.filesForExpr(tx, srcExpr)
	if err != nil {
		return err
	}

	var dstTagIDs []int64
	for _, ref := range dst.Positive {
		if ref.Kind != pathexpr.KindTag {
			continue
		}
		tag, err := tx.ResolveTag(ref.Name)
		if err != nil {
			return err
		}
		dstTagIDs = append(dstTagIDs, tag.ID)
	}
	if len(dstTagIDs) == 0 {
		return fmt.Errorf("%s: %w", dst.String(), store.ErrNameInvalid)
	}

	if err := tx.MergeTag(files, srcTag.ID, dstTagIDs, e.mount.UID, e.mount.GID, 0644, t); err != nil {
		return err
	}
	return tx.TouchRoot(t)
}

// transmuteTagToGroup adds an existing tag to the tag group named
// groupName, creating the group if it does not exist. old stays a tag
// under its original name and every file tagged with it is left as-is (a
// tag group has no files of its own, only member tags).
func (e *Engine) transmuteTagToGroup(tx *store.Tx, old store.Tag, groupName string, t float64) error {
	g, err := tx.EnsureTagGroup(groupName, old.UID, old.GID, old.Permissions, t)
	if err != nil {
		return err
	}
	return tx.AddTagToGroup(old.ID, g.ID, t)
}

// renameFileLeaf handles a rename where either side names a file: a
// file leaf's Positive/Negative already describe its containing tags
// (the leaf segment itself was never folded into them), so the parent
// expression is the same expression with its terminal cleared.
func (e *Engine) renameFileLeaf(tx *store.Tx, srcExpr, dstExpr pathexpr.Expr, t float64) error {
	if srcExpr.Terminal != pathexpr.TerminalFile {
		return fmt.Errorf("%s: %w", srcExpr.String(), store.ErrNameInvalid)
	}

	parent := srcExpr
	parent.Terminal = pathexpr.TerminalNone

	pos, negSet, err := e.resolveRefSets(tx, parent)
	if err != nil {
		return err
	}
	files, err := e.filesForSets(tx, pos, negSet)
	if err != nil {
		return err
	}

	var target *store.File
	for _, f := range files {
		if srcExpr.File.Qualified {
			if f.Device == srcExpr.File.Device && f.Inode == srcExpr.File.Inode {
				ff := f
				target = &ff
				break
			}
			continue
		}
		if f.PrimaryName == srcExpr.File.Name {
			ff := f
			target = &ff
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%s: %w", srcExpr.File.Name, store.ErrNotFound)
	}

	newName := dstExpr.File.Name
	if dstExpr.Terminal != pathexpr.TerminalFile {
		newName = dstExpr.LastRef.Name
	}
	return tx.RenameFilePrimaryName(target.ID, newName, t)
}
