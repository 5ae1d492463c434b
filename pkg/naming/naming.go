// Package naming implements C4, the identity & naming service: stable
// inode allocation for virtual directory entries, collision-free display
// names, and recognition of the filedir string and its CLI alias.
//
// Everything here is pure: no I/O, no database access, so getattr/lookup
// agreeing across calls only depends on the canonical tag-id sequence
// handed in, never on process state.
package naming

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"supertag/pkg/config"
)

// RootInode is the fixed inode of the collection root, mirroring the
// teacher's convention of reserving inode 1 for "/".
const RootInode uint64 = 1

// InodeForTags deterministically derives a virtual directory's inode from
// the canonical (sorted) sequence of tag ids forming its path, so that
// getattr and lookup agree across calls and across mounts of the same
// collection.
//
// tagIDs must already be in canonical order (see SortByID); this function
// does not re-sort them.
func InodeForTags(tagIDs []int64, negatedIDs []int64) uint64 {
	h := blake3.New()
	var buf [8]byte
	for _, id := range tagIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}
	// 0xFF separates the positive and negative halves of the hash input.
	h.Write([]byte{0xFF})
	for _, id := range negatedIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	inode := binary.LittleEndian.Uint64(sum[:8])
	// Inode 0 and 1 are reserved (invalid / root); fold into the valid range.
	if inode <= RootInode {
		inode += RootInode + 1
	}
	return inode
}

// InodeForFiledir derives the inode of a filedir node (the "⋂" terminal
// listing a tag set's direct files), distinct from the inode
// InodeForTags would assign the same tag set's directory node.
func InodeForFiledir(tagIDs []int64, negatedIDs []int64) uint64 {
	h := blake3.New()
	var buf [8]byte
	for _, id := range tagIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}
	h.Write([]byte{0xEE})
	for _, id := range negatedIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	inode := binary.LittleEndian.Uint64(sum[:8])
	if inode <= RootInode {
		inode += RootInode + 1
	}
	return inode
}

// BlobHash computes the hash used to name a macOS alias blob under
// managed_files/<hash>, keyed by the File's natural (device, inode) key.
func BlobHash(device, inode uint64) string {
	h := blake3.New()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], device)
	binary.LittleEndian.PutUint64(buf[8:16], inode)
	h.Write(buf[:])
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Qualify fully-qualifies a display name with the <device_char><device>
// <inode_char><inode> suffix.
func Qualify(name string, device, inode uint64, syms config.Symbols) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(syms.DeviceChar)
	b.WriteString(strconv.FormatUint(device, 10))
	b.WriteString(syms.InodeChar)
	b.WriteString(strconv.FormatUint(inode, 10))
	return b.String()
}

// IsFiledir reports whether name is the configured filedir string or its
// CLI alias.
func IsFiledir(name string, syms config.Symbols) bool {
	return name == syms.FiledirStr || name == syms.FiledirCLIStr
}

// SortByID returns ids sorted ascending: the canonical representation of
// a tag set sorts by tag id regardless of the order it was typed in.
func SortByID(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
