// Package pathexpr implements C1, the path interpreter: it parses a posix
// path inside a collection into a structured tag expression, without
// touching the store or the filesystem. Order of segments is semantically
// irrelevant: Positive and Negative hold each distinct reference once, in
// the order first seen, and the engine treats them as sets.
package pathexpr

import (
	"fmt"
	"strconv"
	"strings"

	"supertag/pkg/config"
)

// RefKind distinguishes a plain tag from a tag-group reference.
type RefKind int

const (
	KindTag RefKind = iota
	KindGroup
)

// Ref names a Tag or TagGroup by its on-disk name (unresolved to an id).
type Ref struct {
	Kind RefKind
	Name string
}

func (r Ref) String() string {
	if r.Kind == KindGroup {
		return r.Name
	}
	return r.Name
}

// Terminal distinguishes what, if anything, the last path segment names.
type Terminal int

const (
	TerminalNone Terminal = iota
	TerminalFiledir
	TerminalFile
)

// FileLeaf is a terminal file-name segment, optionally fully qualified with
// a (device, inode) suffix.
type FileLeaf struct {
	// Name is the display name with any qualifying suffix stripped.
	Name string
	// Qualified is true when the segment carried an explicit device/inode
	// suffix, in which case Device/Inode are populated.
	Qualified bool
	Device    uint64
	Inode     uint64
}

// Expr is the parsed tag expression: a set of positive tags/groups that
// must all be present, a set of negative ones that must all be absent, and
// an optional terminal describing what the final path segment denotes.
//
// When Terminal is TerminalNone, the last segment parsed as an ordinary tag
// or group reference and was folded into Positive/Negative like any other
// segment — LastRef/LastIsNeg record it separately too, so a caller can
// form the expression of the segments that precede it (see WithoutLast).
// A bare (unqualified) final segment is a file leaf only when it follows a
// filedir segment; anywhere else it parses as a tag reference.
type Expr struct {
	Positive []Ref
	Negative []Ref
	Terminal Terminal
	File     FileLeaf

	// LastRef and LastIsNeg describe the final segment as parsed when
	// Terminal == TerminalNone; they let WithoutLast reconstruct the
	// "everything but the last segment" expression cheaply.
	LastRef    Ref
	LastIsNeg  bool
	hasLastRef bool
}

// parseState tracks whether the raw path carried the configured sync
// character anywhere in it, which Parse reports as syncFlush. The character
// itself is stripped from every segment before the rest of parsing runs.
type parseState struct {
	syms    config.Symbols
	sawSync bool
}

// Parse splits rel (a path relative to the collection root, with or without
// leading/trailing slashes) on "/" and interprets each segment as a tag
// reference, negation, tag-group reference, filedir terminal, or a file
// leaf: a qualified final segment, or any final segment that directly
// follows a non-leading filedir segment.
//
// segments is returned alongside Expr so a caller that needs the raw,
// sync-stripped segment strings (e.g. to flush per-prefix caches) doesn't
// have to re-split the path.
func Parse(rel string, syms config.Symbols) (expr Expr, segments []string, syncFlush bool, err error) {
	st := &parseState{syms: syms}

	raw := strings.Split(strings.Trim(rel, "/"), "/")
	if len(raw) == 1 && raw[0] == "" {
		// root: empty expression, no terminal.
		return Expr{}, nil, false, nil
	}

	segments = make([]string, len(raw))
	for i, seg := range raw {
		segments[i] = st.stripSync(seg)
	}

	for i, seg := range segments {
		last := i == len(segments)-1

		if last && isFiledir(seg, syms) {
			expr.Terminal = TerminalFiledir
			continue
		}

		// A filedir segment followed by exactly one more segment names a
		// file inside that filedir. A leading filedir segment is not read
		// this way and falls through to an ordinary tag name.
		if i > 0 && i == len(segments)-2 && isFiledir(seg, syms) {
			leaf, ok := parseQualifiedLeaf(segments[i+1], syms)
			if !ok {
				leaf = FileLeaf{Name: segments[i+1]}
			}
			expr.Terminal = TerminalFile
			expr.File = leaf
			break
		}

		negated := false
		body := seg
		if strings.HasPrefix(body, "-") && len(body) > 1 {
			negated = true
			body = body[1:]
		}

		if last {
			if leaf, ok := parseQualifiedLeaf(body, syms); ok {
				expr.Terminal = TerminalFile
				expr.File = leaf
				continue
			}
		}

		ref := refFor(body, syms)

		if negated {
			expr.Negative = appendUnique(expr.Negative, ref)
		} else {
			expr.Positive = appendUnique(expr.Positive, ref)
		}

		if last {
			expr.LastRef = ref
			expr.LastIsNeg = negated
			expr.hasLastRef = true
		}
	}

	return expr, segments, st.sawSync, nil
}

func (st *parseState) stripSync(seg string) string {
	if st.syms.SyncChar == "" {
		return seg
	}
	if strings.Contains(seg, st.syms.SyncChar) {
		st.sawSync = true
		seg = strings.ReplaceAll(seg, st.syms.SyncChar, "")
	}
	return seg
}

func isFiledir(seg string, syms config.Symbols) bool {
	return seg == syms.FiledirStr || seg == syms.FiledirCLIStr
}

func refFor(name string, syms config.Symbols) Ref {
	if syms.TagGroupStr != "" && strings.HasSuffix(name, syms.TagGroupStr) && name != syms.TagGroupStr {
		return Ref{Kind: KindGroup, Name: name}
	}
	return Ref{Kind: KindTag, Name: name}
}

// parseQualifiedLeaf recognises "name<device_char><device><inode_char><inode>",
// the form naming.Qualify produces, and also accepts an extra <inode_char>
// right after <device_char>.
func parseQualifiedLeaf(seg string, syms config.Symbols) (FileLeaf, bool) {
	dc := syms.DeviceChar
	ic := syms.InodeChar
	if dc == "" || ic == "" {
		return FileLeaf{}, false
	}

	devIdx := strings.LastIndex(seg, dc)
	if devIdx < 0 {
		return FileLeaf{}, false
	}

	suffix := strings.TrimPrefix(seg[devIdx+len(dc):], ic)
	parts := strings.SplitN(suffix, ic, 2)
	if len(parts) != 2 {
		return FileLeaf{}, false
	}

	device, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return FileLeaf{}, false
	}
	inode, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return FileLeaf{}, false
	}

	return FileLeaf{
		Name:      seg[:devIdx],
		Qualified: true,
		Device:    device,
		Inode:     inode,
	}, true
}

func appendUnique(refs []Ref, ref Ref) []Ref {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

// Contradictory reports whether the same tag/group appears in both Positive
// and Negative, which always yields the empty intersection.
func (e Expr) Contradictory() bool {
	for _, p := range e.Positive {
		for _, n := range e.Negative {
			if p == n {
				return true
			}
		}
	}
	return false
}

// WithoutLast returns the expression formed by every segment but the last,
// plus the last segment's ref and whether it was negated. The engine's
// Rename uses it to drop a destination segment that repeats the source's
// own name (`mv /src /dst/src`).
func (e Expr) WithoutLast() (Expr, Ref, bool, bool) {
	if !e.hasLastRef {
		return e, Ref{}, false, false
	}
	out := Expr{Terminal: e.Terminal}
	for _, p := range e.Positive {
		if p == e.LastRef && !e.LastIsNeg {
			continue
		}
		out.Positive = append(out.Positive, p)
	}
	for _, n := range e.Negative {
		if n == e.LastRef && e.LastIsNeg {
			continue
		}
		out.Negative = append(out.Negative, n)
	}
	return out, e.LastRef, e.LastIsNeg, true
}

// Empty reports whether the expression names the collection root: no tags,
// no terminal.
func (e Expr) Empty() bool {
	return len(e.Positive) == 0 && len(e.Negative) == 0 && e.Terminal == TerminalNone
}

func (e Expr) String() string {
	var b strings.Builder
	for _, p := range e.Positive {
		fmt.Fprintf(&b, "/%s", p.Name)
	}
	for _, n := range e.Negative {
		fmt.Fprintf(&b, "/-%s", n.Name)
	}
	switch e.Terminal {
	case TerminalFiledir:
		b.WriteString("/⋂")
	case TerminalFile:
		if e.File.Qualified {
			fmt.Fprintf(&b, "/%s(@%d-%d)", e.File.Name, e.File.Device, e.File.Inode)
		} else {
			fmt.Fprintf(&b, "/%s", e.File.Name)
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
