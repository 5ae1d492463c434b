// Package engine implements the filesystem translator: it takes a path
// relative to a collection's root, parses it with pkg/pathexpr, resolves
// it against pkg/store's relational data, and answers with the
// directory/symlink semantics the bridge layer (pkg/fusefs) turns into
// kernel responses. It has no dependency on bazil.org/fuse so it can be
// exercised directly in tests.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"supertag/pkg/config"
	"supertag/pkg/linkbackend"
	"supertag/pkg/pathexpr"
	"supertag/pkg/store"
)

// Kind identifies what sort of node a resolved path names.
type Kind int

const (
	KindRoot Kind = iota
	KindTagDir
	KindGroupDir
	KindFiledir
	KindFile
)

// Attr is the platform-independent attribute set the bridge layer
// translates into a fuse.Attr.
type Attr struct {
	Inode     uint64
	Kind      Kind
	Size      uint64
	UID       uint32
	GID       uint32
	Mode      uint32
	Mtime     time.Time
	Ctime     time.Time
	Atime     time.Time
	FileCount int64
}

// DirEntry is one readdir result.
type DirEntry struct {
	Name string
	Kind Kind
}

// Resolved is what Resolve returns for any path the translator can name.
type Resolved struct {
	Kind       Kind
	Attr       Attr
	TargetPath string
	FileID     int64
	TagID      int64
	GroupID    int64
	Expr       pathexpr.Expr
}

// Engine is the translator. It is safe for concurrent use: every
// operation runs inside its own store transaction and the engine itself
// holds no mutable state beyond configuration, so there is nothing to
// protect with additional locking at this layer (the store serialises
// writers on its own).
type Engine struct {
	store   *store.Store
	syms    config.Symbols
	mount   config.Mount
	link    linkbackend.Backend
	log     *logrus.Logger
	mu      sync.Mutex // guards in-flight op bookkeeping, not the store itself
	inFlate int
}

// New builds an Engine over an already-open Store.
func New(st *store.Store, cfg config.Config, link linkbackend.Backend, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{store: st, syms: cfg.Symbols, mount: cfg.Mount, link: link, log: log}
}

// UpdateConfig swaps in a freshly loaded configuration, picked up by
// cmd/mount's config.toml watcher. Callers are expected to serialise
// this against Drain so the swap lands between operations rather than
// mid-resolve: live path expressions parsed with the old symbol set are
// not retroactively reinterpreted.
func (e *Engine) UpdateConfig(cfg config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syms = cfg.Symbols
	e.mount = cfg.Mount
}

// beginOp/endOp bracket a bridge call so Drain can wait for in-flight
// operations before the store is torn down.
func (e *Engine) beginOp() {
	e.mu.Lock()
	e.inFlate++
	e.mu.Unlock()
}

func (e *Engine) endOp() {
	e.mu.Lock()
	e.inFlate--
	e.mu.Unlock()
}

// Drain blocks until every in-flight operation started before the call
// has finished, used during unmount.
func (e *Engine) Drain() {
	for {
		e.mu.Lock()
		n := e.inFlate
		e.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func unixTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9))
}

// resolveRefSet is the resolved form of one side (positive or negative)
// of a parsed path expression: plain tag ids, plus one alternative-id
// set per tag group encountered (a file must carry at least one id from
// each alternative set; see resolveRefSets).
type resolveRefSet struct {
	plainIDs []int64
	altSets  [][]int64
	lastTag  *store.Tag
	lastGrp  *store.TagGroup
}

func (e *Engine) resolveSide(tx *store.Tx, refs []pathexpr.Ref) (resolveRefSet, error) {
	var rs resolveRefSet
	for _, ref := range refs {
		switch ref.Kind {
		case pathexpr.KindTag:
			t, err := tx.ResolveTag(ref.Name)
			if err != nil {
				return rs, fmt.Errorf("%s: %w", ref.Name, store.ErrNotFound)
			}
			rs.plainIDs = append(rs.plainIDs, t.ID)
			tt := t
			rs.lastTag = &tt
			rs.lastGrp = nil
		case pathexpr.KindGroup:
			g, err := tx.ResolveTagGroup(ref.Name)
			if err != nil {
				return rs, fmt.Errorf("%s: %w", ref.Name, store.ErrNotFound)
			}
			members, err := tx.TagIDsInGroup(g.ID)
			if err != nil {
				return rs, err
			}
			rs.altSets = append(rs.altSets, members)
			gg := g
			rs.lastGrp = &gg
			rs.lastTag = nil
		}
	}
	return rs, nil
}

// resolveRefSets resolves both halves of an expression.
func (e *Engine) resolveRefSets(tx *store.Tx, expr pathexpr.Expr) (pos, neg resolveRefSet, err error) {
	pos, err = e.resolveSide(tx, expr.Positive)
	if err != nil {
		return
	}
	neg, err = e.resolveSide(tx, expr.Negative)
	return
}

// negativeFlatIDs flattens a resolved negative side into the single
// exclude-if-tagged-with-any set IntersectFiles expects.
func negativeFlatIDs(neg resolveRefSet) []int64 {
	ids := append([]int64{}, neg.plainIDs...)
	for _, alt := range neg.altSets {
		ids = append(ids, alt...)
	}
	return ids
}

// filesForExpr evaluates the AND-of-OR file membership an expression
// describes: a file must carry every plain positive id, at least one id
// from each positive tag-group's member set, and none of the negative
// ids or negative tag-groups' member ids.
func (e *Engine) filesForExpr(tx *store.Tx, expr pathexpr.Expr) ([]store.File, error) {
	pos, neg, err := e.resolveRefSets(tx, expr)
	if err != nil {
		return nil, err
	}
	return e.filesForSets(tx, pos, neg)
}

func (e *Engine) filesForSets(tx *store.Tx, pos, neg resolveRefSet) ([]store.File, error) {
	excl := negativeFlatIDs(neg)

	if len(pos.altSets) == 0 {
		return tx.IntersectFiles(pos.plainIDs, excl)
	}

	candidates, err := tx.IntersectFiles(pos.plainIDs, excl)
	if err != nil {
		return nil, err
	}

	var out []store.File
	for _, f := range candidates {
		tagIDs, err := tx.FileTagIDs(f.ID)
		if err != nil {
			return nil, err
		}
		set := make(map[int64]bool, len(tagIDs))
		for _, id := range tagIDs {
			set[id] = true
		}
		ok := true
		for _, alt := range pos.altSets {
			matched := false
			for _, id := range alt {
				if set[id] {
					matched = true
					break
				}
			}
			if !matched {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// subTagsForExpr returns the set of tags/groups that can legally extend
// expr by one more path segment: every tag touching at least one file in
// expr's current intersection, minus tags already spent by expr itself.
func (e *Engine) subTagsForExpr(tx *store.Tx, expr pathexpr.Expr) ([]store.TagOrGroup, error) {
	if expr.Empty() {
		tags, err := tx.GetAllTags()
		if err != nil {
			return nil, err
		}
		groups, err := tx.GetAllTagGroups()
		if err != nil {
			return nil, err
		}
		exclude, err := groupMemberIDs(tx, groups)
		if err != nil {
			return nil, err
		}
		return mergeTagsAndGroups(tags, groups, exclude), nil
	}

	pos, neg, err := e.resolveRefSets(tx, expr)
	if err != nil {
		return nil, err
	}

	files, err := e.filesForSets(tx, pos, neg)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	// Only ids actually spent as plain positive/negative refs are excluded
	// here. A group's alt-set members are NOT spent by entering the group:
	// they're exactly what a readdir of the group's own directory needs to
	// list, so they must stay eligible below.
	used := make(map[int64]bool)
	for _, id := range pos.plainIDs {
		used[id] = true
	}
	for _, id := range negativeFlatIDs(neg) {
		used[id] = true
	}

	seen := make(map[int64]bool)
	var matchingTagIDs []int64
	for _, f := range files {
		tagIDs, err := tx.FileTagIDs(f.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range tagIDs {
			if used[id] || seen[id] {
				continue
			}
			seen[id] = true
			matchingTagIDs = append(matchingTagIDs, id)
		}
	}
	if len(matchingTagIDs) == 0 {
		return nil, nil
	}

	var tags []store.Tag
	for _, id := range matchingTagIDs {
		t, err := tx.ResolveTagByID(id)
		if err != nil {
			continue
		}
		tags = append(tags, t)
	}

	// Inside a group's own directory (the path's last segment is that
	// group), list its members plainly: don't collapse them back into the
	// group, and don't render any group entries at all, or `/actors+`
	// would list an `/actors+/actors+` child.
	if pos.lastGrp != nil {
		return mergeTagsAndGroups(tags, nil, nil), nil
	}

	groups, err := tx.TagGroupsForTags(matchingTagIDs)
	if err != nil {
		return nil, err
	}
	exclude, err := groupMemberIDs(tx, groups)
	if err != nil {
		return nil, err
	}

	return mergeTagsAndGroups(tags, groups, exclude), nil
}

// groupMemberIDs unions the tag ids belonging to every group in groups, for
// substituting a group entry in place of its members in a listing.
func groupMemberIDs(tx *store.Tx, groups []store.TagGroup) (map[int64]bool, error) {
	members := make(map[int64]bool)
	for _, g := range groups {
		ids, err := tx.TagIDsInGroup(g.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			members[id] = true
		}
	}
	return members, nil
}

func mergeTagsAndGroups(tags []store.Tag, groups []store.TagGroup, exclude map[int64]bool) []store.TagOrGroup {
	var out []store.TagOrGroup
	for _, t := range tags {
		if exclude[t.ID] {
			continue
		}
		tt := t
		out = append(out, store.TagOrGroup{Tag: &tt})
	}
	for _, g := range groups {
		gg := g
		out = append(out, store.TagOrGroup{Group: &gg})
	}
	return out
}
