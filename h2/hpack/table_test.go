package hpack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableSeedsStaticEntries(t *testing.T) {
	req := NewTable(RequestTable)
	assert.Equal(t, 30, req.Len())
	assert.Equal(t, ":scheme", req.At(1).Name)
	assert.Equal(t, "http", req.At(1).Value)

	resp := NewTable(ResponseTable)
	assert.Equal(t, 30, resp.Len())
	assert.Equal(t, ":status", resp.At(1).Name)
	assert.Equal(t, "200", resp.At(1).Value)
}

func TestTableEvictsFromFrontWhenOverLimit(t *testing.T) {
	tbl := &Table{limit: 100}
	tbl.InsertIncremental("a", strings.Repeat("x", 20)) // size 20+1+32=53
	before := tbl.Len()
	require.Equal(t, 1, before)

	// A second entry of the same size pushes total past 100, evicting the
	// first (oldest) entry to make room (§3's "eviction from the front").
	tbl.InsertIncremental("b", strings.Repeat("y", 20))
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "b", tbl.At(1).Name)
	assert.LessOrEqual(t, tbl.size(), tbl.limit)
}

func TestTableDropsEntryThatNeverFits(t *testing.T) {
	tbl := &Table{limit: 10}
	tbl.InsertIncremental("name", "value-too-big-for-the-limit")
	assert.Equal(t, 0, tbl.Len())
}

func TestTableSubstitutePreservesPosition(t *testing.T) {
	tbl := NewTable(RequestTable)
	idx := tbl.findName(":method")
	require.NotZero(t, idx)

	tbl.Substitute(idx, ":method", "post")
	assert.Equal(t, "post", tbl.At(idx).Value)
	assert.Equal(t, idx, tbl.findName(":method"))
}

func TestTableSubstituteEvictsFromFrontWhenGrowing(t *testing.T) {
	tbl := &Table{limit: 200}
	tbl.InsertIncremental("a", strings.Repeat("1", 10)) // size 43
	tbl.InsertIncremental("b", strings.Repeat("2", 10)) // size 43
	tbl.InsertIncremental("c", strings.Repeat("3", 10)) // size 43
	require.Equal(t, 3, tbl.Len())

	idx := tbl.findName("b")
	require.Equal(t, 2, idx)

	// Growing "b" to 100 bytes would push the table to 219, past the
	// 200 limit, unless "a" is evicted from the front first.
	tbl.Substitute(idx, "b", strings.Repeat("x", 100))

	assert.LessOrEqual(t, tbl.size(), tbl.limit)
	assert.Zero(t, tbl.findName("a"), "oldest entry evicted to make room for the grown substitution")
	assert.NotZero(t, tbl.findName("b"))
	assert.Equal(t, strings.Repeat("x", 100), tbl.At(tbl.findName("b")).Value)
	assert.NotZero(t, tbl.findName("c"), "entry after the substituted slot survives")
}

func TestTableSubstituteDropsEntryThatNeverFitsEvenAlone(t *testing.T) {
	tbl := &Table{limit: 50}
	tbl.InsertIncremental("a", "x") // size 34
	require.Equal(t, 1, tbl.Len())

	tbl.Substitute(1, "a", strings.Repeat("y", 100))

	assert.Equal(t, 0, tbl.Len())
}

func TestTableFindReturnsZeroWhenAbsent(t *testing.T) {
	tbl := NewTable(RequestTable)
	assert.Zero(t, tbl.find("x-custom", "v"))
	assert.Zero(t, tbl.findName("x-custom"))
}
