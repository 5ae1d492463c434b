package pathexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supertag/pkg/config"
)

func testSymbols() config.Symbols {
	return config.Default().Symbols
}

func TestParseRoot(t *testing.T) {
	for _, rel := range []string{"", "/"} {
		expr, segs, sync, err := Parse(rel, testSymbols())
		require.NoError(t, err)
		assert.True(t, expr.Empty())
		assert.Nil(t, segs)
		assert.False(t, sync)
	}
}

func TestParsePositiveTags(t *testing.T) {
	expr, segs, _, err := Parse("a/b/c", testSymbols())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, segs)
	assert.ElementsMatch(t, []Ref{{Kind: KindTag, Name: "a"}, {Kind: KindTag, Name: "b"}, {Kind: KindTag, Name: "c"}}, expr.Positive)
	assert.Empty(t, expr.Negative)
	assert.Equal(t, TerminalNone, expr.Terminal)
}

func TestParseNegation(t *testing.T) {
	expr, _, _, err := Parse("a/-b", testSymbols())
	require.NoError(t, err)
	assert.ElementsMatch(t, []Ref{{Kind: KindTag, Name: "a"}}, expr.Positive)
	assert.ElementsMatch(t, []Ref{{Kind: KindTag, Name: "b"}}, expr.Negative)
}

func TestParseContradiction(t *testing.T) {
	expr, _, _, err := Parse("a/-a", testSymbols())
	require.NoError(t, err)
	assert.True(t, expr.Contradictory())
}

func TestParseDuplicatePositiveIsIdempotent(t *testing.T) {
	expr, _, _, err := Parse("a/a/b", testSymbols())
	require.NoError(t, err)
	assert.Len(t, expr.Positive, 2)
}

func TestParseTagGroup(t *testing.T) {
	expr, _, _, err := Parse("actors+", testSymbols())
	require.NoError(t, err)
	require.Len(t, expr.Positive, 1)
	assert.Equal(t, KindGroup, expr.Positive[0].Kind)
	assert.Equal(t, "actors+", expr.Positive[0].Name)
}

func TestParseFiledirTerminal(t *testing.T) {
	for _, name := range []string{"⋂", "_"} {
		expr, _, _, err := Parse("a/b/"+name, testSymbols())
		require.NoError(t, err)
		assert.Equal(t, TerminalFiledir, expr.Terminal)
		assert.Len(t, expr.Positive, 2)
	}
}

func TestParseFiledirOnlyValidAsLastSegment(t *testing.T) {
	expr, _, _, err := Parse("⋂/a", testSymbols())
	require.NoError(t, err)
	// A leading "⋂" that is not the last segment is just an ordinary (if
	// unusual) tag name.
	assert.Equal(t, TerminalNone, expr.Terminal)
	assert.Contains(t, expr.Positive, Ref{Kind: KindTag, Name: "⋂"})
}

func TestParseQualifiedFileLeaf(t *testing.T) {
	expr, _, _, err := Parse("docs/README﹫-5-42", testSymbols())
	require.NoError(t, err)
	assert.Equal(t, TerminalFile, expr.Terminal)
	assert.Equal(t, FileLeaf{Name: "README", Qualified: true, Device: 5, Inode: 42}, expr.File)
	assert.ElementsMatch(t, []Ref{{Kind: KindTag, Name: "docs"}}, expr.Positive)
}

func TestParseOrderIsIrrelevantToSets(t *testing.T) {
	e1, _, _, err := Parse("a/b/c", testSymbols())
	require.NoError(t, err)
	e2, _, _, err := Parse("c/b/a", testSymbols())
	require.NoError(t, err)
	assert.ElementsMatch(t, e1.Positive, e2.Positive)
}

func TestWithoutLast(t *testing.T) {
	expr, _, _, err := Parse("a/b/readme", testSymbols())
	require.NoError(t, err)

	parent, lastRef, negated, ok := expr.WithoutLast()
	require.True(t, ok)
	assert.False(t, negated)
	assert.Equal(t, Ref{Kind: KindTag, Name: "readme"}, lastRef)
	assert.ElementsMatch(t, []Ref{{Kind: KindTag, Name: "a"}, {Kind: KindTag, Name: "b"}}, parent.Positive)
}

func TestParseSyncCharIsStrippedAndDetected(t *testing.T) {
	syms := testSymbols()
	expr, segs, sync, err := Parse("a"+syms.SyncChar+"/b", syms)
	require.NoError(t, err)
	assert.True(t, sync)
	assert.Equal(t, []string{"a", "b"}, segs)
	assert.Contains(t, expr.Positive, Ref{Kind: KindTag, Name: "a"})
}
