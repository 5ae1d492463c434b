package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// --- tags & tag groups -----------------------------------------------------

// ResolveTag looks a tag up by name. Returns ErrNotFound if absent.
func (tx *Tx) ResolveTag(name string) (Tag, error) {
	var t Tag
	err := tx.tx.Get(&t, `SELECT id, name, created_at, modified_at, uid, gid, permissions, file_count
		FROM tags WHERE name = ?`, name)
	if err != nil {
		return Tag{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return t, nil
}

// ResolveTagByID looks a tag up by id. Returns ErrNotFound if absent.
func (tx *Tx) ResolveTagByID(id int64) (Tag, error) {
	var t Tag
	err := tx.tx.Get(&t, `SELECT id, name, created_at, modified_at, uid, gid, permissions, file_count
		FROM tags WHERE id = ?`, id)
	if err != nil {
		return Tag{}, fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// ResolveTagGroup looks a tag group up by name. Returns ErrNotFound if absent.
func (tx *Tx) ResolveTagGroup(name string) (TagGroup, error) {
	var g TagGroup
	err := tx.tx.Get(&g, `SELECT id, name, created_at, modified_at, uid, gid, permissions
		FROM tag_groups WHERE name = ?`, name)
	if err != nil {
		return TagGroup{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return g, nil
}

// GetAllTags returns every Tag in the collection, used for the root
// directory listing.
func (tx *Tx) GetAllTags() ([]Tag, error) {
	var tags []Tag
	err := tx.tx.Select(&tags, `SELECT id, name, created_at, modified_at, uid, gid, permissions, file_count
		FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// GetAllTagGroups returns every TagGroup in the collection.
func (tx *Tx) GetAllTagGroups() ([]TagGroup, error) {
	var groups []TagGroup
	err := tx.tx.Select(&groups, `SELECT id, name, created_at, modified_at, uid, gid, permissions
		FROM tag_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tag groups: %w", err)
	}
	return groups, nil
}

// CreateTag creates a new Tag, or returns ErrAlreadyExists if the name is
// taken by either a tag or a tag group.
func (tx *Tx) CreateTag(name string, uid, gid, perm uint32, now float64) (Tag, error) {
	if _, err := tx.ResolveTagGroup(name); err == nil {
		return Tag{}, fmt.Errorf("%s: %w", name, ErrAlreadyExists)
	}
	res, err := tx.tx.Exec(`INSERT INTO tags (name, created_at, modified_at, uid, gid, permissions, file_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)`, name, now, now, uid, gid, perm)
	if err != nil {
		return Tag{}, fmt.Errorf("%s: %w", name, ErrAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tag{}, fmt.Errorf("reading new tag id: %w", err)
	}
	return Tag{ID: id, Name: name, CreatedAt: now, ModifiedAt: now, UID: uid, GID: gid, Permissions: perm}, nil
}

// EnsureTag returns the existing tag named name, creating it if absent.
func (tx *Tx) EnsureTag(name string, uid, gid, perm uint32, now float64) (Tag, error) {
	if t, err := tx.ResolveTag(name); err == nil {
		return t, nil
	}
	return tx.CreateTag(name, uid, gid, perm, now)
}

// CreateTagGroup creates a new TagGroup, or returns ErrAlreadyExists if the
// name is taken by either a tag or a tag group.
func (tx *Tx) CreateTagGroup(name string, uid, gid, perm uint32, now float64) (TagGroup, error) {
	if _, err := tx.ResolveTag(name); err == nil {
		return TagGroup{}, fmt.Errorf("%s: %w", name, ErrAlreadyExists)
	}
	res, err := tx.tx.Exec(`INSERT INTO tag_groups (name, created_at, modified_at, uid, gid, permissions)
		VALUES (?, ?, ?, ?, ?, ?)`, name, now, now, uid, gid, perm)
	if err != nil {
		return TagGroup{}, fmt.Errorf("%s: %w", name, ErrAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TagGroup{}, fmt.Errorf("reading new tag group id: %w", err)
	}
	return TagGroup{ID: id, Name: name, CreatedAt: now, ModifiedAt: now, UID: uid, GID: gid, Permissions: perm}, nil
}

// EnsureTagGroup returns the existing tag group named name, creating it if
// absent.
func (tx *Tx) EnsureTagGroup(name string, uid, gid, perm uint32, now float64) (TagGroup, error) {
	if g, err := tx.ResolveTagGroup(name); err == nil {
		return g, nil
	}
	return tx.CreateTagGroup(name, uid, gid, perm, now)
}

// AddTagToGroup links tag to group.
func (tx *Tx) AddTagToGroup(tagID, groupID int64, now float64) error {
	_, err := tx.tx.Exec(`INSERT OR IGNORE INTO tag_group_members (group_id, tag_id, created_at)
		VALUES (?, ?, ?)`, groupID, tagID, now)
	if err != nil {
		return fmt.Errorf("adding tag %d to group %d: %w", tagID, groupID, err)
	}
	return nil
}

// TagIsInGroup reports whether tag is a member of group, by name.
func (tx *Tx) TagIsInGroup(groupName, tagName string) (bool, error) {
	var n int
	err := tx.tx.Get(&n, `SELECT COUNT(*) FROM tag_group_members tgm
		JOIN tag_groups g ON g.id = tgm.group_id
		JOIN tags t ON t.id = tgm.tag_id
		WHERE g.name = ? AND t.name = ?`, groupName, tagName)
	if err != nil {
		return false, fmt.Errorf("checking group membership: %w", err)
	}
	return n > 0, nil
}

// TagGroupsForTags returns every tag group containing at least one of
// tagIDs, ordered by name.
func (tx *Tx) TagGroupsForTags(tagIDs []int64) ([]TagGroup, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	query, args := inClauseQuery(`SELECT DISTINCT g.id, g.name, g.created_at, g.modified_at, g.uid, g.gid, g.permissions
		FROM tag_groups g
		JOIN tag_group_members tgm ON tgm.group_id = g.id
		WHERE tgm.tag_id IN (%s) ORDER BY g.name`, tagIDs)
	var groups []TagGroup
	if err := tx.tx.Select(&groups, query, args...); err != nil {
		return nil, fmt.Errorf("listing tag groups for tags: %w", err)
	}
	return groups, nil
}

// TagIDsInGroup returns the member tag ids of group, used to prune a
// tag-group-terminated intersection.
func (tx *Tx) TagIDsInGroup(groupID int64) ([]int64, error) {
	var ids []int64
	err := tx.tx.Select(&ids, `SELECT tag_id FROM tag_group_members WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	return ids, nil
}

// --- intersection queries ---------------------------------------------------

// IntersectFiles returns every File tagged with all of posIDs and none of
// negIDs. Empty posIDs and empty negIDs
// returns every File in the collection.
func (tx *Tx) IntersectFiles(posIDs, negIDs []int64) ([]File, error) {
	if overlaps(posIDs, negIDs) {
		return nil, nil
	}

	var query string
	var args []interface{}

	if len(posIDs) == 0 {
		query = `SELECT id, device, inode, primary_name, target_path, alias_blob, created_at, modified_at FROM files f`
	} else {
		b := &strings.Builder{}
		fmt.Fprintf(b, `SELECT f.id, f.device, f.inode, f.primary_name, f.target_path, f.alias_blob, f.created_at, f.modified_at
			FROM files f
			WHERE (SELECT COUNT(*) FROM file_tags ft WHERE ft.file_id = f.id AND ft.tag_id IN (%s)) = ?`,
			placeholders(len(posIDs)))
		query = b.String()
		for _, id := range posIDs {
			args = append(args, id)
		}
		args = append(args, len(posIDs))
	}

	if len(negIDs) > 0 {
		if len(posIDs) == 0 {
			query += ` WHERE `
		} else {
			query += ` AND `
		}
		query += fmt.Sprintf(`f.id NOT IN (SELECT file_id FROM file_tags WHERE tag_id IN (%s))`, placeholders(len(negIDs)))
		for _, id := range negIDs {
			args = append(args, id)
		}
	}

	var files []File
	if err := tx.tx.Select(&files, query, args...); err != nil {
		return nil, fmt.Errorf("intersecting files: %w", err)
	}
	return files, nil
}

// SubTags finds every tag that intersects the files of posIDs/negIDs and is
// not already present in posIDs/negIDs. When
// lastGroupID is non-zero, the result is pruned to members of that group
// only.
func (tx *Tx) SubTags(posIDs, negIDs []int64, lastGroupID int64) ([]Tag, error) {
	if overlaps(posIDs, negIDs) {
		return nil, nil
	}

	if len(posIDs) == 0 && len(negIDs) == 0 {
		return tx.GetAllTags()
	}

	files, err := tx.IntersectFiles(posIDs, negIDs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	fileIDs := make([]int64, len(files))
	for i, f := range files {
		fileIDs[i] = f.ID
	}

	query, args := inClauseQuery(`SELECT t.id, t.name, t.created_at, t.modified_at, t.uid, t.gid, t.permissions, t.file_count
		FROM tags t
		JOIN file_tags ft ON ft.tag_id = t.id
		WHERE ft.file_id IN (%s)
		GROUP BY t.id
		ORDER BY t.name`, fileIDs)

	var tags []Tag
	if err := tx.tx.Select(&tags, query, args...); err != nil {
		return nil, fmt.Errorf("computing sub tags: %w", err)
	}

	excluded := make(map[int64]bool, len(posIDs)+len(negIDs))
	for _, id := range posIDs {
		excluded[id] = true
	}
	for _, id := range negIDs {
		excluded[id] = true
	}

	var pruned []Tag
	var allowed map[int64]bool
	if lastGroupID != 0 {
		memberIDs, err := tx.TagIDsInGroup(lastGroupID)
		if err != nil {
			return nil, err
		}
		allowed = make(map[int64]bool, len(memberIDs))
		for _, id := range memberIDs {
			allowed[id] = true
		}
	}

	for _, t := range tags {
		if excluded[t.ID] {
			continue
		}
		if allowed != nil && !allowed[t.ID] {
			continue
		}
		pruned = append(pruned, t)
	}
	return pruned, nil
}

func overlaps(a, b []int64) bool {
	set := make(map[int64]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func inClauseQuery(tmpl string, ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(tmpl, placeholders(len(ids))), args
}

// --- files & file-tags -------------------------------------------------------

// GetFileByDeviceInode looks a File up by its natural key.
func (tx *Tx) GetFileByDeviceInode(device, inode uint64) (File, error) {
	var f File
	err := tx.tx.Get(&f, `SELECT id, device, inode, primary_name, target_path, alias_blob, created_at, modified_at
		FROM files WHERE device = ? AND inode = ?`, device, inode)
	if err != nil {
		return File{}, fmt.Errorf("device %d inode %d: %w", device, inode, ErrNotFound)
	}
	return f, nil
}

// LinkFile upserts the File identified by (device, inode) and inserts a
// FileTag for every tag in tagIDs, each carrying its own uid/gid/mode.
// Re-linking an already-tagged file to the same tag is a no-op for that
// tag.
func (tx *Tx) LinkFile(device, inode uint64, targetPath, primaryName string, aliasBlob []byte,
	tagIDs []int64, uid, gid, perm uint32, now float64) (File, error) {

	f, err := tx.GetFileByDeviceInode(device, inode)
	if err != nil {
		res, insErr := tx.tx.Exec(`INSERT INTO files (device, inode, primary_name, target_path, alias_blob, created_at, modified_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, device, inode, primaryName, targetPath, aliasBlob, now, now)
		if insErr != nil {
			return File{}, fmt.Errorf("creating file: %w", insErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return File{}, fmt.Errorf("reading new file id: %w", idErr)
		}
		f = File{ID: id, Device: device, Inode: inode, PrimaryName: primaryName, TargetPath: targetPath,
			AliasBlob: aliasBlob, CreatedAt: now, ModifiedAt: now}
	}

	for _, tagID := range tagIDs {
		res, err := tx.tx.Exec(`INSERT OR IGNORE INTO file_tags (file_id, tag_id, created_at, modified_at, uid, gid, permissions)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, f.ID, tagID, now, now, uid, gid, perm)
		if err != nil {
			return File{}, fmt.Errorf("linking file to tag %d: %w", tagID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if err := tx.bumpTagFileCount(tagID, 1); err != nil {
				return File{}, err
			}
		}
	}

	return f, nil
}

func (tx *Tx) bumpTagFileCount(tagID int64, delta int64) error {
	_, err := tx.tx.Exec(`UPDATE tags SET file_count = file_count + ? WHERE id = ?`, delta, tagID)
	if err != nil {
		return fmt.Errorf("updating file_count for tag %d: %w", tagID, err)
	}
	return nil
}

// UnlinkFileFromTag removes the single FileTag association between file
// and tag. If the File has no remaining
// FileTag rows afterward, it is deleted entirely.
func (tx *Tx) UnlinkFileFromTag(fileID, tagID int64) error {
	res, err := tx.tx.Exec(`DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?`, fileID, tagID)
	if err != nil {
		return fmt.Errorf("unlinking file %d from tag %d: %w", fileID, tagID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %d not linked to tag %d: %w", fileID, tagID, ErrNotFound)
	}
	if err := tx.bumpTagFileCount(tagID, -1); err != nil {
		return err
	}

	var remaining int
	if err := tx.tx.Get(&remaining, `SELECT COUNT(*) FROM file_tags WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("counting remaining tags for file %d: %w", fileID, err)
	}
	if remaining == 0 {
		if _, err := tx.tx.Exec(`DELETE FROM files WHERE id = ?`, fileID); err != nil {
			return fmt.Errorf("deleting orphaned file %d: %w", fileID, err)
		}
	}
	return nil
}

// AddFileTag links an already-existing file to tag, idempotently. Used by
// a rename-as-merge to retag files that survive a source tag's removal,
// as distinct from LinkFile which upserts the File row itself.
func (tx *Tx) AddFileTag(fileID, tagID int64, uid, gid, perm uint32, now float64) error {
	res, err := tx.tx.Exec(`INSERT OR IGNORE INTO file_tags (file_id, tag_id, created_at, modified_at, uid, gid, permissions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, fileID, tagID, now, now, uid, gid, perm)
	if err != nil {
		return fmt.Errorf("linking file %d to tag %d: %w", fileID, tagID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := tx.bumpTagFileCount(tagID, 1); err != nil {
			return err
		}
	}
	return nil
}

// FileTagIDs returns every tag id a File is linked to, used by the engine
// to evaluate AND-of-OR membership once a tag group appears in a path.
func (tx *Tx) FileTagIDs(fileID int64) ([]int64, error) {
	var ids []int64
	err := tx.tx.Select(&ids, `SELECT tag_id FROM file_tags WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for file %d: %w", fileID, err)
	}
	return ids, nil
}

// --- rename / merge / delete -------------------------------------------------

// RenameTag renames a tag, failing with ErrAlreadyExists if newName is
// taken.
func (tx *Tx) RenameTag(oldName, newName string, now float64) error {
	_, err := tx.tx.Exec(`UPDATE tags SET name = ?, modified_at = ? WHERE name = ?`, newName, now, oldName)
	if err != nil {
		return fmt.Errorf("renaming tag %s to %s: %w", oldName, newName, ErrAlreadyExists)
	}
	return nil
}

// RenameTagGroup renames a tag group, failing with ErrAlreadyExists if
// newName is taken.
func (tx *Tx) RenameTagGroup(oldName, newName string, now float64) error {
	_, err := tx.tx.Exec(`UPDATE tag_groups SET name = ?, modified_at = ? WHERE name = ?`, newName, now, oldName)
	if err != nil {
		return fmt.Errorf("renaming tag group %s to %s: %w", oldName, newName, ErrAlreadyExists)
	}
	return nil
}

// RenameFilePrimaryName renames a File's display name directly by its
// file id.
func (tx *Tx) RenameFilePrimaryName(fileID int64, newName string, now float64) error {
	_, err := tx.tx.Exec(`UPDATE files SET primary_name = ?, modified_at = ? WHERE id = ?`, newName, now, fileID)
	if err != nil {
		return fmt.Errorf("renaming file %d: %w", fileID, err)
	}
	return nil
}

// MergeTag implements rename-as-merge: every file in files (the caller's
// files_at(from_expr), not necessarily every file srcTagID ever touches)
// is untagged from srcTagID and tagged with every id in dstTagIDs. If
// srcTagID ends up with no files left anywhere, it is deleted outright -
// a merge that drains a tag's only files removes the now-empty directory
// along with them, rather than leaving a dangling empty tag behind.
func (tx *Tx) MergeTag(files []File, srcTagID int64, dstTagIDs []int64, uid, gid, perm uint32, now float64) error {
	for _, f := range files {
		for _, dstID := range dstTagIDs {
			if err := tx.AddFileTag(f.ID, dstID, uid, gid, perm, now); err != nil {
				return err
			}
		}
		if err := tx.UnlinkFileFromTag(f.ID, srcTagID); err != nil {
			return err
		}
	}

	srcTag, err := tx.ResolveTagByID(srcTagID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if srcTag.FileCount == 0 {
		return tx.DeleteTagByID(srcTagID)
	}
	return nil
}

// DeleteTag deletes a tag by name.
func (tx *Tx) DeleteTag(name string, now float64) error {
	t, err := tx.ResolveTag(name)
	if err != nil {
		return err
	}
	return tx.DeleteTagByID(t.ID)
}

// DeleteTagByID cascades FileTag and TagGroupMember rows (foreign keys),
// deletes every File whose only tag was this one, and drops any Pin that
// references the tag.
func (tx *Tx) DeleteTagByID(tagID int64) error {
	var orphanFileIDs []int64
	err := tx.tx.Select(&orphanFileIDs, `SELECT file_id FROM file_tags ft
		WHERE ft.tag_id = ? AND (SELECT COUNT(*) FROM file_tags WHERE file_id = ft.file_id) = 1`, tagID)
	if err != nil {
		return fmt.Errorf("finding files orphaned by deleting tag %d: %w", tagID, err)
	}

	if _, err := tx.tx.Exec(`DELETE FROM tags WHERE id = ?`, tagID); err != nil {
		return fmt.Errorf("deleting tag %d: %w", tagID, err)
	}

	for _, fid := range orphanFileIDs {
		if _, err := tx.tx.Exec(`DELETE FROM files WHERE id = ?`, fid); err != nil {
			return fmt.Errorf("deleting orphaned file %d: %w", fid, err)
		}
	}

	if err := tx.deletePinsReferencingTag(tagID); err != nil {
		return err
	}
	return nil
}

// --- pins ---------------------------------------------------------------

func canonicalKey(tagIDs []int64) (string, []int64) {
	sorted := make([]int64, len(tagIDs))
	copy(sorted, tagIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ","), sorted
}

// CreatePin creates a Pin over tagIDs (canonicalised) if one doesn't
// already exist there.
func (tx *Tx) CreatePin(tagIDs []int64, now float64) (Pin, error) {
	key, sorted := canonicalKey(tagIDs)
	blob, err := cbor.Marshal(sorted)
	if err != nil {
		return Pin{}, fmt.Errorf("encoding pin tag ids: %w", err)
	}

	res, err := tx.tx.Exec(`INSERT OR IGNORE INTO pins (tag_ids_canon, tag_ids_blob, created_at)
		VALUES (?, ?, ?)`, key, blob, now)
	if err != nil {
		return Pin{}, fmt.Errorf("creating pin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		var existing Pin
		if getErr := tx.tx.Get(&existing.ID, `SELECT id FROM pins WHERE tag_ids_canon = ?`, key); getErr != nil {
			return Pin{}, fmt.Errorf("reading existing pin: %w", getErr)
		}
		existing.TagIDs = sorted
		existing.CreatedAt = now
		return existing, nil
	}
	return Pin{ID: id, TagIDs: sorted, CreatedAt: now}, nil
}

// PinExact reports whether a Pin exists at exactly tagIDs.
func (tx *Tx) PinExact(tagIDs []int64) (bool, error) {
	key, _ := canonicalKey(tagIDs)
	var n int
	if err := tx.tx.Get(&n, `SELECT COUNT(*) FROM pins WHERE tag_ids_canon = ?`, key); err != nil {
		return false, fmt.Errorf("checking pin: %w", err)
	}
	return n > 0, nil
}

// DropSupersededPins removes the Pin whose tag set is exactly tagIDs,
// called after a file is linked into that exact intersection.
func (tx *Tx) DropSupersededPins(tagIDs []int64) error {
	key, _ := canonicalKey(tagIDs)
	_, err := tx.tx.Exec(`DELETE FROM pins WHERE tag_ids_canon = ?`, key)
	if err != nil {
		return fmt.Errorf("dropping superseded pin: %w", err)
	}
	return nil
}

// PinnedChildTags returns, for every Pin whose tag set is exactly posIDs
// plus one extra tag, that extra Tag — the "extant sub-pins whose
// prefix equals expr.positive" readdir must list.
func (tx *Tx) PinnedChildTags(posIDs []int64) ([]Tag, error) {
	var pins []Pin
	rows, err := tx.tx.Queryx(`SELECT id, tag_ids_blob, created_at FROM pins`)
	if err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	defer rows.Close()

	prefix := make(map[int64]bool, len(posIDs))
	for _, id := range posIDs {
		prefix[id] = true
	}

	var childIDs []int64
	for rows.Next() {
		var id int64
		var blob []byte
		var createdAt float64
		if err := rows.Scan(&id, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning pin: %w", err)
		}
		var tagIDs []int64
		if err := cbor.Unmarshal(blob, &tagIDs); err != nil {
			return nil, fmt.Errorf("decoding pin %d: %w", id, err)
		}
		if len(tagIDs) != len(posIDs)+1 {
			continue
		}
		var extra int64
		matched := 0
		for _, tid := range tagIDs {
			if prefix[tid] {
				matched++
			} else {
				extra = tid
			}
		}
		if matched == len(posIDs) {
			childIDs = append(childIDs, extra)
		}
		pins = append(pins, Pin{ID: id, TagIDs: tagIDs, CreatedAt: createdAt})
	}

	if len(childIDs) == 0 {
		return nil, nil
	}
	query, args := inClauseQuery(`SELECT id, name, created_at, modified_at, uid, gid, permissions, file_count
		FROM tags WHERE id IN (%s) ORDER BY name`, childIDs)
	var tags []Tag
	if err := tx.tx.Select(&tags, query, args...); err != nil {
		return nil, fmt.Errorf("resolving pinned child tags: %w", err)
	}
	return tags, nil
}

func (tx *Tx) deletePinsReferencingTag(tagID int64) error {
	rows, err := tx.tx.Queryx(`SELECT id, tag_ids_blob FROM pins`)
	if err != nil {
		return fmt.Errorf("listing pins: %w", err)
	}
	defer rows.Close()

	var toDelete []int64
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("scanning pin: %w", err)
		}
		var tagIDs []int64
		if err := cbor.Unmarshal(blob, &tagIDs); err != nil {
			return fmt.Errorf("decoding pin %d: %w", id, err)
		}
		for _, tid := range tagIDs {
			if tid == tagID {
				toDelete = append(toDelete, id)
				break
			}
		}
	}
	rows.Close()

	for _, id := range toDelete {
		if _, err := tx.tx.Exec(`DELETE FROM pins WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting pin %d: %w", id, err)
		}
	}
	return nil
}
