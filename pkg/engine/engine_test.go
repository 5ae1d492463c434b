package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"supertag/pkg/config"
	"supertag/pkg/linkbackend"
	"supertag/pkg/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "db.sqlite3"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	return New(st, cfg, linkbackend.New(), nil)
}

func TestMkdirCreatesTagAtRoot(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	r, err := e.Mkdir(ctx, "/", "work", 1000, 1000, 0755)
	require.NoError(t, err)
	require.Equal(t, KindTagDir, r.Kind)

	entries, err := e.Readdir(ctx, "/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "work", entries[0].Name)
}

func TestMkdirWithGroupSuffixCreatesGroup(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cfg := config.Default()
	groupName := "status" + cfg.Symbols.TagGroupStr

	r, err := e.Mkdir(ctx, "/", groupName, 1000, 1000, 0755)
	require.NoError(t, err)
	require.Equal(t, KindGroupDir, r.Kind)
}

func TestSymlinkAndReaddirFiledir(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "work", 1000, 1000, 0755)
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("hi"), 0644))

	_, err = e.Symlink(ctx, "/work", "report.txt", tmp, 99, 42, 1000, 1000, 0644)
	require.NoError(t, err)

	entries, err := e.Readdir(ctx, "/work/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "report.txt", entries[0].Name)

	target, err := e.Readlink(ctx, "/work/"+e.syms.FiledirStr+"/report.txt")
	require.NoError(t, err)
	require.Equal(t, tmp, target)
}

func TestUnlinkIsDeepestOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "work", 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/", "urgent", 1000, 1000, 0755)
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0644))

	_, err = e.Symlink(ctx, "/work", "x.txt", tmp, 1, 1, 1000, 1000, 0644)
	require.NoError(t, err)

	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		urgent, err := tx.ResolveTag("urgent")
		if err != nil {
			return err
		}
		_, err = tx.LinkFile(1, 1, tmp, "x.txt", nil, []int64{urgent.ID}, 1000, 1000, 0644, 0)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, e.Unlink(ctx, "/work", "x.txt"))

	entries, err := e.Readdir(ctx, "/urgent/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = e.Readdir(ctx, "/work/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 0)
}

func TestRenameMergesTags(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "draft", 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/", "final", 1000, 1000, 0755)
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("doc"), 0644))
	_, err = e.Symlink(ctx, "/draft", "doc.txt", tmp, 5, 5, 1000, 1000, 0644)
	require.NoError(t, err)

	require.NoError(t, e.Rename(ctx, "/draft", "/final"))

	_, err = e.Resolve(ctx, "/draft")
	require.Error(t, err)

	entries, err := e.Readdir(ctx, "/final/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRenameMergesTagsAcrossUnrelatedParents(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "pdf_documents", 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/", "archive", 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/archive", "pdfs", 1000, 1000, 0755)
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("doc"), 0644))
	_, err = e.Symlink(ctx, "/pdf_documents", "doc.txt", tmp, 7, 7, 1000, 1000, 0644)
	require.NoError(t, err)

	require.NoError(t, e.Rename(ctx, "/pdf_documents", "/archive/pdfs"))

	_, err = e.Resolve(ctx, "/pdf_documents")
	require.Error(t, err)

	entries, err := e.Readdir(ctx, "/archive/pdfs/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "doc.txt", entries[0].Name)
}

func TestRenameDragAndDropSameNameShortCircuit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "src", 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/", "dst", 1000, 1000, 0755)
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0644))
	_, err = e.Symlink(ctx, "/src", "x.txt", tmp, 9, 9, 1000, 1000, 0644)
	require.NoError(t, err)

	// A file manager's drag-and-drop issues this as `mv /src /dst/src`,
	// repeating the source's own name under the destination directory.
	require.NoError(t, e.Rename(ctx, "/src", "/dst/src"))

	_, err = e.Resolve(ctx, "/src")
	require.Error(t, err)

	entries, err := e.Readdir(ctx, "/dst/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "x.txt", entries[0].Name)
}

func TestRenameToUnlinkSentinelDeletesTag(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "obsolete", 1000, 1000, 0755)
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0644))
	_, err = e.Symlink(ctx, "/obsolete", "x.txt", tmp, 11, 11, 1000, 1000, 0644)
	require.NoError(t, err)

	require.NoError(t, e.Rename(ctx, "/obsolete", "/"+e.syms.UnlinkName))

	_, err = e.Resolve(ctx, "/obsolete")
	require.Error(t, err)

	entries, err := e.Readdir(ctx, "/")
	require.NoError(t, err)
	for _, en := range entries {
		require.NotEqual(t, "obsolete", en.Name)
	}
}

func TestRmdirIsAlwaysRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "work", 1000, 1000, 0755)
	require.NoError(t, err)

	require.Error(t, e.Rmdir(ctx, "/work"))
}

func TestContradictoryPathIsEmptyNotError(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Mkdir(ctx, "/", "work", 1000, 1000, 0755)
	require.NoError(t, err)

	r, err := e.Resolve(ctx, "/work/-work")
	require.NoError(t, err)
	require.Equal(t, KindTagDir, r.Kind)
}

func TestTagGroupProjectionAtRootAndMembersInsideGroup(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cfg := config.Default()
	groupDirName := "actors" + cfg.Symbols.TagGroupStr

	_, err := e.Mkdir(ctx, "/", groupDirName, 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/", "al_pacino", 1000, 1000, 0755)
	require.NoError(t, err)
	_, err = e.Mkdir(ctx, "/", "tom_hanks", 1000, 1000, 0755)
	require.NoError(t, err)

	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		group, err := tx.ResolveTagGroup(groupDirName)
		if err != nil {
			return err
		}
		alPacino, err := tx.ResolveTag("al_pacino")
		if err != nil {
			return err
		}
		tomHanks, err := tx.ResolveTag("tom_hanks")
		if err != nil {
			return err
		}
		if err := tx.AddTagToGroup(alPacino.ID, group.ID, 0); err != nil {
			return err
		}
		return tx.AddTagToGroup(tomHanks.ID, group.ID, 0)
	})
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "heat.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("heat"), 0644))
	_, err = e.Symlink(ctx, "/al_pacino", "heat.txt", tmp, 3, 3, 1000, 1000, 0644)
	require.NoError(t, err)

	root, err := e.Readdir(ctx, "/")
	require.NoError(t, err)
	var names []string
	for _, d := range root {
		names = append(names, d.Name)
	}
	require.Contains(t, names, groupDirName)
	require.NotContains(t, names, "al_pacino")
	require.NotContains(t, names, "tom_hanks")

	members, err := e.Readdir(ctx, "/"+groupDirName)
	require.NoError(t, err)
	var memberNames []string
	for _, d := range members {
		memberNames = append(memberNames, d.Name)
		if d.Name == e.syms.FiledirStr {
			require.Equal(t, KindFiledir, d.Kind)
			continue
		}
		require.Equal(t, KindTagDir, d.Kind)
	}
	require.Contains(t, memberNames, "al_pacino")

	r, err := e.Resolve(ctx, "/al_pacino")
	require.NoError(t, err)
	require.Equal(t, KindTagDir, r.Kind)

	entries, err := e.Readdir(ctx, "/al_pacino/"+e.syms.FiledirStr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "heat.txt", entries[0].Name)
}
