package store

// File is the natural (device, inode) keyed entity backing a virtual
// symlink.
type File struct {
	ID          int64   `db:"id"`
	Device      uint64  `db:"device"`
	Inode       uint64  `db:"inode"`
	PrimaryName string  `db:"primary_name"`
	TargetPath  string  `db:"target_path"`
	AliasBlob   []byte  `db:"alias_blob"`
	CreatedAt   float64 `db:"created_at"`
	ModifiedAt  float64 `db:"modified_at"`
}

// Tag renders as a directory; FileCount is denormalised and kept in sync
// with file_tags on every link/unlink.
type Tag struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	CreatedAt   float64 `db:"created_at"`
	ModifiedAt  float64 `db:"modified_at"`
	UID         uint32  `db:"uid"`
	GID         uint32  `db:"gid"`
	Permissions uint32  `db:"permissions"`
	FileCount   int64   `db:"file_count"`
}

// FileTag is the per-association mode a file's symlink carries inside one
// particular tag's directory.
type FileTag struct {
	FileID      int64   `db:"file_id"`
	TagID       int64   `db:"tag_id"`
	CreatedAt   float64 `db:"created_at"`
	ModifiedAt  float64 `db:"modified_at"`
	UID         uint32  `db:"uid"`
	GID         uint32  `db:"gid"`
	Permissions uint32  `db:"permissions"`
}

// TagGroup substitutes for its member tags in listings while remaining
// individually addressable.
type TagGroup struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	CreatedAt   float64 `db:"created_at"`
	ModifiedAt  float64 `db:"modified_at"`
	UID         uint32  `db:"uid"`
	GID         uint32  `db:"gid"`
	Permissions uint32  `db:"permissions"`
}

// Pin forces an intersection to be listable even when it holds no files,
// the persisted result of an explicit mkdir -p style directory creation.
type Pin struct {
	ID        int64   `db:"id"`
	TagIDs    []int64 `db:"-"`
	CreatedAt float64 `db:"created_at"`
}

// Metadata is the collection-wide singleton row tracking schema/software
// version and the root directory's last modification time.
type Metadata struct {
	MigrationVersion int64   `db:"migration_version"`
	SoftwareVersion  string  `db:"software_version"`
	RootModifiedAt   float64 `db:"root_modified_at"`
}

// TagOrGroup is the tagged-variant result of a sub-tag listing: a readdir
// entry is either a plain Tag or a TagGroup substituting for its members.
type TagOrGroup struct {
	Tag   *Tag
	Group *TagGroup
}

func (tg TagOrGroup) Name() string {
	if tg.Group != nil {
		return tg.Group.Name
	}
	return tg.Tag.Name
}

func (tg TagOrGroup) ID() int64 {
	if tg.Group != nil {
		return tg.Group.ID
	}
	return tg.Tag.ID
}
