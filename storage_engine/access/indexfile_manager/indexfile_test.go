package indexfile

import (
	"SeqIndex/types"
	"fmt"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Order, opts.Fill = 5, 4
	opts.Order2, opts.Fill2 = 4, 3
	opts.PageSize = 512
	opts.CacheSize = 32
	opts.KwLimit = 8
	return opts
}

func occurrence(id string, dbno int32, off int64) IDRecord {
	return IDRecord{ID: id, DBNo: dbno, Offset: off, RefOffset: -1}
}

// TestIDIndexLifecycle tests insert, sync, reopen and read-only refusal
func TestIDIndexLifecycle(t *testing.T) {
	dir := t.TempDir()
	ix, err := CreateIDIndex(dir, "id", testOptions())
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		ok, err := ix.InsertID(occurrence(fmt.Sprintf("P%05d", i), 0, int64(i)*100))
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := ix.InsertID(occurrence("P00007", 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ix.Tree().Check()
	require.NoError(t, err)
	level := ix.Tree().Level()
	require.Greater(t, level, 0)
	require.NoError(t, ix.Close())

	_, err = os.Stat(ParamPath(dir, "id", IDExt))
	require.NoError(t, err)

	ro, err := OpenIDIndex(dir, "id", ModeRead, Options{})
	require.NoError(t, err)
	defer ro.Close()
	assert.Equal(t, int64(300), ro.Count())
	assert.Equal(t, level, ro.Tree().Level())
	assert.Equal(t, 5, ro.Options().Order, "shape comes from the parameter file")

	rec, found, err := ro.IDFromKey("P00123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(12300), rec.Offset)

	_, found, err = ro.IDFromKey("Q1")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = ro.InsertID(occurrence("new", 0, 1))
	assert.True(t, errors.Is(err, types.ErrReadOnly))
	_, err = ro.DeleteID("P00001")
	assert.True(t, errors.Is(err, types.ErrReadOnly))
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := OpenIDIndex(t.TempDir(), "nothere", ModeWrite, testOptions())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestOpenWrongKind(t *testing.T) {
	dir := t.TempDir()
	kx, err := CreateKeywordIndex(dir, "des", testOptions())
	require.NoError(t, err)
	require.NoError(t, kx.Close())

	// same name, other extension: the id index files do not exist
	_, err = OpenIDIndex(dir, "des", ModeWrite, testOptions())
	assert.Error(t, err)
}

// TestDuplicateChaining tests the id, id+suffix and numeric chain stages
func TestDuplicateChaining(t *testing.T) {
	ix, err := CreateIDIndex(t.TempDir(), "id", testOptions())
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.InsertDupID(occurrence("HBA", 0, 500)))
	require.NoError(t, ix.InsertDupID(occurrence("HBA", 0, 100)))

	all, err := ix.DupFromKey("HBA")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(500), all[0].Offset, "the first occurrence is not overwritten")
	assert.Equal(t, "HBA", all[1].ID)
	assert.Equal(t, int64(100), all[1].Offset)

	first, _, err := ix.IDFromKey("HBA")
	require.NoError(t, err)
	assert.Equal(t, int32(1), first.Dups)

	for i := 0; i < 60; i++ {
		require.NoError(t, ix.InsertDupID(occurrence("HBA", 1, int64(1000+i))))
	}
	all, err = ix.DupFromKey("HBA")
	require.NoError(t, err)
	require.Len(t, all, 62)
	assert.Equal(t, int64(500), all[0].Offset)
	assert.Equal(t, int64(100), all[1].Offset)
	for i, r := range all[2:] {
		assert.Equal(t, int64(1000+i), r.Offset)
		assert.Equal(t, "HBA", r.ID)
	}

	first, _, err = ix.IDFromKey("HBA")
	require.NoError(t, err)
	assert.Equal(t, int32(61), first.Dups)
	head, found, err := ix.IDFromKey("HBA" + DupSuffix)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int32(61), head.Dups)

	chain, err := ix.numTree(types.PageNo(head.Offset))
	require.NoError(t, err)
	_, err = chain.Check()
	require.NoError(t, err)

	// a plain insert of the same id is refused
	ok, err := ix.InsertID(occurrence("HBA", 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := ix.DeleteID("HBA")
	require.NoError(t, err)
	assert.True(t, removed)
	_, found, err = ix.IDFromKey("HBA" + DupSuffix)
	require.NoError(t, err)
	assert.False(t, found)
	all, err = ix.DupFromKey("HBA")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDuplicateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ix, err := CreateIDIndex(dir, "id", testOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, ix.InsertDupID(occurrence("X", 0, int64(i*10))))
	}
	require.NoError(t, ix.Close())

	ix, err = OpenIDIndex(dir, "id", ModeWrite, testOptions())
	require.NoError(t, err)
	defer ix.Close()
	all, err := ix.DupFromKey("X")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

// TestListFromKeyW tests wildcard listing with duplicates expanded and sorted by location
func TestListFromKeyW(t *testing.T) {
	ix, err := CreateIDIndex(t.TempDir(), "id", testOptions())
	require.NoError(t, err)
	defer ix.Close()

	ids := []string{"abc", "abd", "abxyz", "b1", "bxyz", "cab"}
	for i, id := range ids {
		require.NoError(t, ix.InsertDupID(occurrence(id, int32(i%2), int64(1000-i*10))))
	}
	require.NoError(t, ix.InsertDupID(occurrence("abd", 0, 5)))
	require.NoError(t, ix.InsertDupID(occurrence("abd", 0, 7)))

	got, err := ix.ListFromKeyW("ab*")
	require.NoError(t, err)
	var offsets []int64
	for _, r := range got {
		offsets = append(offsets, r.Offset)
		assert.Contains(t, []string{"abc", "abd", "abxyz"}, r.ID)
	}
	// abc dbno 0 @1000, abd dbno 1 @990 with dbno 0 dups @5 @7, abxyz dbno 0 @980
	assert.Equal(t, []int64{5, 7, 980, 1000, 990}, offsets)

	got, err = ix.ListFromKeyW("*xyz")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bxyz", got[0].ID)
	assert.Equal(t, "abxyz", got[1].ID)

	it := ix.IDFromKeyW("*")
	var seen []string
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		seen = append(seen, r.ID)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, ids, seen, "duplicate markers are not listed")
}

func TestReplaceID(t *testing.T) {
	ix, err := CreateIDIndex(t.TempDir(), "id", testOptions())
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.InsertDupID(occurrence("a", 0, 1)))
	require.NoError(t, ix.InsertDupID(occurrence("a", 0, 2)))

	ok, err := ix.ReplaceID(IDRecord{ID: "a", DBNo: 4, Offset: 77})
	require.NoError(t, err)
	assert.True(t, ok)
	rec, _, err := ix.IDFromKey("a")
	require.NoError(t, err)
	assert.Equal(t, int64(77), rec.Offset)
	assert.Equal(t, int32(1), rec.Dups, "the duplicate count is kept")

	ok, err = ix.ReplaceID(IDRecord{ID: "zz"})
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestTornIndexRefusesWork tests that a fatal error is latched
func TestTornIndexRefusesWork(t *testing.T) {
	ix, err := CreateIDIndex(t.TempDir(), "id", testOptions())
	require.NoError(t, err)

	require.NoError(t, ix.InsertDupID(occurrence("a", 0, 1)))
	ix.fail(types.Corruptf("simulated"))
	assert.True(t, ix.Stats().Torn)

	_, err = ix.InsertID(occurrence("b", 0, 2))
	assert.True(t, errors.Is(err, types.ErrTorn))
	_, _, err = ix.IDFromKey("a")
	assert.True(t, errors.Is(err, types.ErrTorn))
	assert.True(t, errors.Is(ix.Sync(), types.ErrTorn))
	require.NoError(t, ix.Close())

	_, _, err = ix.IDFromKey("a")
	assert.True(t, errors.Is(err, ErrClosed))
}

// TestTornIndexClosesWithoutWriteBack tests that a torn index keeps its
// data file as of the last sync and is refused by later opens
func TestTornIndexClosesWithoutWriteBack(t *testing.T) {
	dir := t.TempDir()
	ix, err := CreateIDIndex(dir, "id", testOptions())
	require.NoError(t, err)

	require.NoError(t, ix.InsertDupID(occurrence("a", 0, 1)))
	require.NoError(t, ix.Sync())
	synced, err := os.ReadFile(DataPath(dir, "id", IDExt))
	require.NoError(t, err)

	// few enough to stay resident, so nothing is written by eviction
	for i := 0; i < 8; i++ {
		require.NoError(t, ix.InsertDupID(occurrence(fmt.Sprintf("b%03d", i), 0, int64(i))))
	}
	ix.fail(types.Corruptf("simulated"))
	require.NoError(t, ix.Close())

	after, err := os.ReadFile(DataPath(dir, "id", IDExt))
	require.NoError(t, err)
	assert.Equal(t, synced, after, "no page written after the fatal error")

	params, err := os.ReadFile(ParamPath(dir, "id", IDExt))
	require.NoError(t, err)
	assert.Contains(t, string(params), "Torn ")
	assert.Contains(t, string(params), "simulated")
	assert.Contains(t, string(params), "Count     1\n", "counters stay as of the last sync")

	for _, mode := range []Mode{ModeWrite, ModeRead} {
		_, err = OpenIDIndex(dir, "id", mode, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrTorn), "mode %v", mode)
	}
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := testOptions()
	opts.CacheSize = 3
	assert.Error(t, opts.Validate())

	opts = testOptions()
	opts.Fill2 = 1
	assert.Error(t, opts.Validate())

	opts = testOptions()
	opts.Order = 2
	assert.Error(t, opts.Validate())

	_, err := CreateIDIndex(t.TempDir(), "id", opts)
	assert.Error(t, err)
}

func TestCheckIndexes(t *testing.T) {
	dir := t.TempDir()
	ix, err := CreateIDIndex(dir, "id", testOptions())
	require.NoError(t, err)
	defer ix.Close()

	for i := 0; i < 40; i++ {
		require.NoError(t, ix.InsertDupID(occurrence(fmt.Sprintf("K%02d", i%10), 0, int64(i))))
	}
	require.NoError(t, ix.InsertDupID(occurrence("single", 0, 99)))
	require.NoError(t, ix.InsertDupID(occurrence("pair", 0, 100)))
	require.NoError(t, ix.InsertDupID(occurrence("pair", 0, 101)))

	r, err := ix.Check()
	require.NoError(t, err)
	assert.Equal(t, 11, r.Trees, "the primary tree and ten chains")
	assert.Equal(t, ix.Count()+40-10, r.Entries)

	kx, err := CreateKeywordIndex(dir, "des", testOptions())
	require.NoError(t, err)
	defer kx.Close()
	for i := 0; i < 30; i++ {
		_, err := kx.InsertKeyword(fmt.Sprintf("w%d", i%3), fmt.Sprintf("ID%02d", i))
		require.NoError(t, err)
	}
	r, err = kx.Check()
	require.NoError(t, err)
	assert.Equal(t, 4, r.Trees)
	assert.Equal(t, int64(33), r.Entries)
}

// TestDuplicateSameLocation tests that re-adding a known occurrence is a no-op at every chaining stage
func TestDuplicateSameLocation(t *testing.T) {
	ix, err := CreateIDIndex(t.TempDir(), "id", testOptions())
	require.NoError(t, err)
	defer ix.Close()

	dups := func() int32 {
		first, found, err := ix.IDFromKey("P1")
		require.NoError(t, err)
		require.True(t, found)
		return first.Dups
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, ix.InsertDupID(occurrence("P1", 0, 100)))
	}
	all, err := ix.DupFromKey("P1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, int32(0), dups())

	require.NoError(t, ix.InsertDupID(occurrence("P1", 1, 100)))
	require.NoError(t, ix.InsertDupID(occurrence("P1", 1, 100)))
	all, err = ix.DupFromKey("P1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int32(1), dups())

	require.NoError(t, ix.InsertDupID(occurrence("P1", 0, 200)))
	require.NoError(t, ix.InsertDupID(occurrence("P1", 0, 200)))
	require.NoError(t, ix.InsertDupID(occurrence("P1", 0, 100)))
	all, err = ix.DupFromKey("P1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int32(2), dups())

	_, err = ix.Check()
	require.NoError(t, err)
}
