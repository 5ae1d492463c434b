package engine

import (
	"context"
	"fmt"

	"supertag/pkg/naming"
	"supertag/pkg/pathexpr"
	"supertag/pkg/store"
)

// Getattr answers a getattr(2) against rel.
func (e *Engine) Getattr(ctx context.Context, rel string) (Attr, error) {
	r, err := e.Resolve(ctx, rel)
	if err != nil {
		return Attr{}, err
	}
	return r.Attr, nil
}

// Readlink answers a readlink(2) against rel, valid only for a resolved
// file leaf.
func (e *Engine) Readlink(ctx context.Context, rel string) (string, error) {
	r, err := e.Resolve(ctx, rel)
	if err != nil {
		return "", err
	}
	if r.Kind != KindFile {
		return "", fmt.Errorf("%s: %w", rel, store.ErrNameInvalid)
	}
	return r.TargetPath, nil
}

// Statfs answers a statfs(2): synthetic totals over the collection.
func (e *Engine) Statfs(ctx context.Context) (files, tags int64, err error) {
	e.beginOp()
	defer e.endOp()
	err = e.store.ReadOnly(ctx, func(tx *store.Tx) error {
		files, tags, err = tx.StatFS()
		return err
	})
	return
}

// Readdir lists rel's children.
func (e *Engine) Readdir(ctx context.Context, rel string) ([]DirEntry, error) {
	e.beginOp()
	defer e.endOp()

	expr, _, _, err := pathexpr.Parse(rel, e.syms)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, store.ErrNameInvalid)
	}

	var entries []DirEntry
	err = e.store.ReadOnly(ctx, func(tx *store.Tx) error {
		es, err := e.readdirExpr(tx, expr)
		entries = es
		return err
	})
	return entries, err
}

func (e *Engine) readdirExpr(tx *store.Tx, expr pathexpr.Expr) ([]DirEntry, error) {
	if expr.Terminal == pathexpr.TerminalFiledir {
		return e.readdirFiledir(tx, expr)
	}
	if expr.Terminal == pathexpr.TerminalFile {
		return nil, fmt.Errorf("%s: %w", expr.File.Name, store.ErrNameInvalid)
	}

	if expr.Empty() {
		return e.readdirRoot(tx)
	}

	subs, err := e.subTagsForExpr(tx, expr)
	if err != nil {
		return nil, err
	}

	var entries []DirEntry
	for _, s := range subs {
		kind := KindTagDir
		if s.Group != nil {
			kind = KindGroupDir
		}
		entries = append(entries, DirEntry{Name: s.Name(), Kind: kind})
	}

	pos, _, err := e.resolveRefSets(tx, expr)
	if err != nil {
		return nil, err
	}
	children, err := tx.PinnedChildTags(pos.plainIDsAndAlts())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	for _, de := range entries {
		seen[de.Name] = true
	}
	for _, t := range children {
		if !seen[t.Name] {
			entries = append(entries, DirEntry{Name: t.Name, Kind: KindTagDir})
			seen[t.Name] = true
		}
	}

	entries = append(entries, DirEntry{Name: e.syms.FiledirStr, Kind: KindFiledir})
	return entries, nil
}

// readdirRoot lists every tag and tag group, except tags that belong to
// at least one group: those are reached through their group instead, the
// same exclusion the original root listing applied.
func (e *Engine) readdirRoot(tx *store.Tx) ([]DirEntry, error) {
	tags, err := tx.GetAllTags()
	if err != nil {
		return nil, err
	}
	groups, err := tx.GetAllTagGroups()
	if err != nil {
		return nil, err
	}

	grouped, err := groupMemberIDs(tx, groups)
	if err != nil {
		return nil, err
	}

	var entries []DirEntry
	for _, t := range tags {
		if grouped[t.ID] {
			continue
		}
		entries = append(entries, DirEntry{Name: t.Name, Kind: KindTagDir})
	}
	for _, g := range groups {
		entries = append(entries, DirEntry{Name: g.Name, Kind: KindGroupDir})
	}
	return entries, nil
}

func (e *Engine) readdirFiledir(tx *store.Tx, expr pathexpr.Expr) ([]DirEntry, error) {
	parent := expr
	parent.Terminal = pathexpr.TerminalNone
	files, err := e.filesForExpr(tx, parent)
	if err != nil {
		return nil, err
	}

	seenName := make(map[string]int)
	var entries []DirEntry
	for _, f := range files {
		seenName[f.PrimaryName]++
	}
	for _, f := range files {
		name := f.PrimaryName
		if seenName[name] > 1 {
			name = naming.Qualify(f.PrimaryName, f.Device, f.Inode, e.syms)
		}
		entries = append(entries, DirEntry{Name: name, Kind: KindFile})
	}
	return entries, nil
}
