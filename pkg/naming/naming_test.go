package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"supertag/pkg/config"
)

func TestInodeForTagsIsStable(t *testing.T) {
	a := InodeForTags([]int64{1, 2, 3}, nil)
	b := InodeForTags([]int64{1, 2, 3}, nil)
	assert.Equal(t, a, b)
}

func TestInodeForTagsDependsOnNegation(t *testing.T) {
	withoutNeg := InodeForTags([]int64{1, 2}, nil)
	withNeg := InodeForTags([]int64{1}, []int64{2})
	assert.NotEqual(t, withoutNeg, withNeg)
}

func TestInodeForTagsAvoidsReservedRange(t *testing.T) {
	for _, ids := range [][]int64{{}, {0}, {1}} {
		inode := InodeForTags(ids, nil)
		assert.Greater(t, inode, RootInode)
	}
}

func TestQualify(t *testing.T) {
	syms := config.Default().Symbols
	got := Qualify("README", 5, 42, syms)
	assert.Equal(t, "README"+syms.DeviceChar+"5"+syms.InodeChar+"42", got)
}

func TestIsFiledir(t *testing.T) {
	syms := config.Default().Symbols
	assert.True(t, IsFiledir(syms.FiledirStr, syms))
	assert.True(t, IsFiledir(syms.FiledirCLIStr, syms))
	assert.False(t, IsFiledir("notit", syms))
}

func TestSortByID(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, SortByID([]int64{3, 1, 2}))
}

func TestBlobHashIsStable(t *testing.T) {
	assert.Equal(t, BlobHash(1, 2), BlobHash(1, 2))
	assert.NotEqual(t, BlobHash(1, 2), BlobHash(2, 1))
}
