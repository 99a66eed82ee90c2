package bplus

import (
	"SeqIndex/storage_engine/bufferpool"
	diskmanager "SeqIndex/storage_engine/disk_manager"
	"SeqIndex/types"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string) IDEntry {
	return IDEntry{ID: id, Offset: int64(len(id)) * 100, RefOffset: 7}
}

func mustCheck[K any, E any](t *testing.T, tree *Tree[K, E]) CheckReport {
	t.Helper()
	rep, err := tree.Check()
	require.NoError(t, err)
	return rep
}

// TestScenarioInsertLookupDelete tests the five-id example on a tiny tree
func TestScenarioInsertLookupDelete(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)

	for _, id := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		ok, err := tree.Insert(rec(id))
		require.NoError(t, err)
		require.True(t, ok, id)
		mustCheck(t, tree)
	}
	assert.Equal(t, int64(5), tree.Count())

	e, found, err := tree.Lookup("gamma")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "gamma", e.ID)
	assert.Equal(t, rec("gamma"), e)

	_, found, err = tree.Lookup("zeta")
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := tree.Delete("beta")
	require.NoError(t, err)
	assert.True(t, removed)
	mustCheck(t, tree)

	_, found, err = tree.Lookup("beta")
	require.NoError(t, err)
	assert.False(t, found)
	for _, id := range []string{"alpha", "gamma"} {
		_, found, err = tree.Lookup(id)
		require.NoError(t, err)
		assert.True(t, found, id)
	}

	removed, err = tree.Delete("beta")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, int64(4), tree.Count())
}

// TestEmptyTree tests operations on a tree that never had an entry
func TestEmptyTree(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)

	_, found, err := tree.Lookup("x")
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := tree.Delete("x")
	require.NoError(t, err)
	assert.False(t, removed)

	replaced, err := tree.Replace(rec("x"))
	require.NoError(t, err)
	assert.False(t, replaced)

	all, err := List(tree, "*")
	require.NoError(t, err)
	assert.Empty(t, all)

	rep := mustCheck(t, tree)
	assert.Equal(t, int64(0), rep.Entries)
	assert.Equal(t, 0, tree.Level())
}

// TestInsertDuplicateKey tests that a present key is left untouched
func TestInsertDuplicateKey(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)

	ok, err := tree.Insert(IDEntry{ID: "P1", Offset: 1})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tree.Insert(IDEntry{ID: "P1", Offset: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	e, _, err := tree.Lookup("P1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Offset)
	assert.Equal(t, int64(1), tree.Count())
}

// TestInsertKeyTooLong tests the size limit on keys
func TestInsertKeyTooLong(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)

	_, err := tree.Insert(rec(strings.Repeat("x", tree.MaxKeyLen()+1)))
	assert.ErrorIs(t, err, ErrKeyTooLong)

	ok, err := tree.Insert(rec(strings.Repeat("x", tree.MaxKeyLen())))
	require.NoError(t, err)
	assert.True(t, ok)
	mustCheck(t, tree)
}

// TestReplace tests in-place field updates
func TestReplace(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)
	for i := 0; i < 50; i++ {
		_, err := tree.Insert(rec(fmt.Sprintf("id%03d", i)))
		require.NoError(t, err)
	}
	level := tree.Level()

	ok, err := tree.Replace(IDEntry{ID: "id017", DBNo: 4, Offset: 99, RefOffset: 98})
	require.NoError(t, err)
	require.True(t, ok)

	e, found, err := tree.Lookup("id017")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, IDEntry{ID: "id017", DBNo: 4, Offset: 99, RefOffset: 98}, e)
	assert.Equal(t, level, tree.Level())
	mustCheck(t, tree)
}

// TestSequentialGrowth tests splits all the way up through several levels
func TestSequentialGrowth(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)

	const n = 400
	for i := 0; i < n; i++ {
		ok, err := tree.Insert(rec(fmt.Sprintf("seq%05d", i)))
		require.NoError(t, err)
		require.True(t, ok)
	}
	rep := mustCheck(t, tree)
	assert.Equal(t, int64(n), rep.Entries)
	assert.GreaterOrEqual(t, tree.Level(), 3)

	var got []string
	require.NoError(t, tree.Walk(func(e IDEntry) bool {
		got = append(got, e.ID)
		return true
	}))
	require.Len(t, got, n)
	assert.True(t, sort.StringsAreSorted(got))
}

// TestDeleteAllCollapses tests shrinking back to a root leaf and regrowing
func TestDeleteAllCollapses(t *testing.T) {
	tree := newIDTree(t, 5, 3, 16)

	ids := make([]string, 300)
	for i := range ids {
		ids[i] = fmt.Sprintf("del%04d", i)
		_, err := tree.Insert(rec(ids[i]))
		require.NoError(t, err)
	}
	require.Greater(t, tree.Level(), 1)

	r := rand.New(rand.NewPCG(3, 4))
	r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	for i, id := range ids {
		removed, err := tree.Delete(id)
		require.NoError(t, err)
		require.True(t, removed, id)
		if i%25 == 0 {
			mustCheck(t, tree)
		}
	}

	assert.Equal(t, 0, tree.Level())
	assert.Equal(t, int64(0), tree.Count())
	rep := mustCheck(t, tree)
	assert.Equal(t, int64(0), rep.Entries)

	ok, err := tree.Insert(rec("again"))
	require.NoError(t, err)
	assert.True(t, ok)
	_, found, err := tree.Lookup("again")
	require.NoError(t, err)
	assert.True(t, found)
}

// TestRandomInsertDelete runs seeded random insert/delete sequences and checks
// every structural property along the way
func TestRandomInsertDelete(t *testing.T) {
	shapes := []struct {
		order, fill, capacity, keyLen int
	}{
		{4, 2, 8, 6},
		{5, 3, 12, 6},
		{6, 4, 16, 6},
		{4, 2, 16, 250}, // long keys: node and bucket overflow chains
		{16, 8, 32, 12},
	}

	for si, sh := range shapes {
		t.Run(fmt.Sprintf("order%d_fill%d_key%d", sh.order, sh.fill, sh.keyLen), func(t *testing.T) {
			tree := newIDTree(t, sh.order, sh.fill, sh.capacity)
			r := rand.New(rand.NewPCG(uint64(si), 42))
			live := map[string]IDEntry{}

			key := func() string {
				return fmt.Sprintf("%0*d", sh.keyLen, r.IntN(600))
			}

			for step := 0; step < 1500; step++ {
				k := key()
				if r.IntN(3) > 0 {
					e := IDEntry{ID: k, DBNo: int32(step % 7), Offset: int64(step)}
					ok, err := tree.Insert(e)
					require.NoError(t, err)
					_, had := live[k]
					require.Equal(t, !had, ok, "insert %s", k)
					if ok {
						live[k] = e
					}
				} else {
					removed, err := tree.Delete(k)
					require.NoError(t, err)
					_, had := live[k]
					require.Equal(t, had, removed, "delete %s", k)
					delete(live, k)
				}
				if step%100 == 0 {
					rep := mustCheck(t, tree)
					require.Equal(t, int64(len(live)), rep.Entries)
				}
			}

			rep := mustCheck(t, tree)
			assert.Equal(t, int64(len(live)), rep.Entries)
			assert.Equal(t, int64(len(live)), tree.Count())
			for k, want := range live {
				got, found, err := tree.Lookup(k)
				require.NoError(t, err)
				require.True(t, found, k)
				assert.Equal(t, want, got)
			}
			for i := 0; i < 50; i++ {
				k := fmt.Sprintf("%0*d", sh.keyLen, 600+i)
				_, found, err := tree.Lookup(k)
				require.NoError(t, err)
				assert.False(t, found)
			}
		})
	}
}

// TestDeleteReinsertIdentical tests that delete followed by re-insert restores
// the record field for field
func TestDeleteReinsertIdentical(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)
	for i := 0; i < 120; i++ {
		_, err := tree.Insert(IDEntry{ID: fmt.Sprintf("r%03d", i), DBNo: int32(i % 3), Dups: 0, Offset: int64(i) * 17, RefOffset: int64(i)})
		require.NoError(t, err)
	}

	before, found, err := tree.Lookup("r061")
	require.NoError(t, err)
	require.True(t, found)

	removed, err := tree.Delete("r061")
	require.NoError(t, err)
	require.True(t, removed)
	ok, err := tree.Insert(before)
	require.NoError(t, err)
	require.True(t, ok)

	after, found, err := tree.Lookup("r061")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, before, after)
	mustCheck(t, tree)
}

// TestNumericTree tests the int64 keyed layout under random operations
func TestNumericTree(t *testing.T) {
	cfg := Config{Order: 4, Fill: 3, PageSize: testPageSize}
	tree, err := CreateTree[int64, NumEntry](newTestPool(t, 12), cfg, NumKeys{}, NumEntries{}, Options[int64]{})
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(9, 9))
	live := map[int64]bool{}
	for i := 0; i < 800; i++ {
		off := int64(r.IntN(2000)) * 64
		if r.IntN(4) == 0 {
			removed, err := tree.Delete(off)
			require.NoError(t, err)
			assert.Equal(t, live[off], removed)
			delete(live, off)
			continue
		}
		ok, err := tree.Insert(NumEntry{Offset: off, RefOffset: off + 1, DBNo: 2})
		require.NoError(t, err)
		assert.Equal(t, !live[off], ok)
		live[off] = true
	}

	rep := mustCheck(t, tree)
	assert.Equal(t, int64(len(live)), rep.Entries)

	var prev int64 = -1
	n := 0
	it := tree.First()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		assert.Greater(t, e.Offset, prev)
		assert.True(t, live[e.Offset])
		assert.Equal(t, e.Offset+1, e.RefOffset)
		prev = e.Offset
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, len(live), n)
}

// TestNodeCacheEnabled tests that cached decodes never go stale across writes
func TestNodeCacheEnabled(t *testing.T) {
	nodes, err := NewNodeCache[string](1 << 20)
	require.NoError(t, err)
	defer nodes.Close()

	tree, err := CreateTree[string, IDEntry](newTestPool(t, 16),
		Config{Order: 4, Fill: 2, PageSize: testPageSize}, StringKeys{}, IDEntries{},
		Options[string]{Nodes: nodes})
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(5, 6))
	live := map[string]bool{}
	for i := 0; i < 1000; i++ {
		k := fmt.Sprintf("c%03d", r.IntN(300))
		if r.IntN(3) == 0 {
			_, err := tree.Delete(k)
			require.NoError(t, err)
			delete(live, k)
		} else {
			_, err := tree.Insert(rec(k))
			require.NoError(t, err)
			live[k] = true
		}
		if i%50 == 0 {
			rep := mustCheck(t, tree)
			require.Equal(t, int64(len(live)), rep.Entries)
		}
	}
	for k := range live {
		_, found, err := tree.Lookup(k)
		require.NoError(t, err)
		require.True(t, found, k)
	}
}

// TestNodeCacheRewriteSameKeyCount rewrites one node over and over without
// changing its key count; every read must see the last write.
func TestNodeCacheRewriteSameKeyCount(t *testing.T) {
	nodes, err := NewNodeCache[string](1 << 20)
	require.NoError(t, err)
	defer nodes.Close()

	tree, err := CreateTree[string, IDEntry](newTestPool(t, 16),
		Config{Order: 4, Fill: 2, PageSize: testPageSize}, StringKeys{}, IDEntries{},
		Options[string]{Nodes: nodes})
	require.NoError(t, err)

	for i := 0; i < 50000; i++ {
		n, err := tree.readNode(tree.Root())
		require.NoError(t, err)
		n.keys = []string{fmt.Sprintf("a%d", i)}
		n.ptrs = []types.PageNo{types.NoPage, types.NoPage}
		require.NoError(t, tree.writeNode(n))

		n, err = tree.readNode(tree.Root())
		require.NoError(t, err)
		require.Equal(t, []string{fmt.Sprintf("a%d", i)}, n.keys, "iteration %d", i)
	}
}

// TestNodeCacheLateSet tests that a set applied after the delete of its page
// is never served
func TestNodeCacheLateSet(t *testing.T) {
	nodes, err := NewNodeCache[string](1 << 20)
	require.NoError(t, err)
	defer nodes.Close()

	nodes.put(4096, []string{"old"}, []types.PageNo{1, 2}, 1)
	nodes.del(4096)
	nodes.c.Wait()
	_, _, ok := nodes.get(4096, 1)
	assert.False(t, ok)
}

// TestReopenTree tests that a synced tree reads back from disk with its level
func TestReopenTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.xid")
	cfg := Config{Order: 4, Fill: 2, PageSize: testPageSize}

	dm, err := diskmanager.Open(path, diskmanager.ModeCreate)
	require.NoError(t, err)
	pool := bufferpool.NewBufferPool(dm, testPageSize, 16, nil)
	tree, err := CreateTree[string, IDEntry](pool, cfg, StringKeys{}, IDEntries{}, Options[string]{})
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		_, err := tree.Insert(rec(fmt.Sprintf("k%04d", i)))
		require.NoError(t, err)
	}
	level := tree.Level()
	require.NoError(t, pool.Sync(tree.Root()))
	require.NoError(t, pool.Close())

	dm, err = diskmanager.Open(path, diskmanager.ModeRead)
	require.NoError(t, err)
	pool = bufferpool.NewBufferPool(dm, testPageSize, 16, nil)
	defer pool.Close()

	reopened, err := OpenTree[string, IDEntry](pool, cfg, StringKeys{}, IDEntries{}, 0, Options[string]{})
	require.NoError(t, err)
	assert.Equal(t, level, reopened.Level())
	rep := mustCheck(t, reopened)
	assert.Equal(t, int64(200), rep.Entries)

	e, found, err := reopened.Lookup("k0123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec("k0123"), e)

	_, err = reopened.Insert(rec("new"))
	assert.Error(t, err, "read-only index must refuse writes")
}

// TestInspectAndStats tests the debugging dump
func TestInspectAndStats(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)
	for i := 0; i < 30; i++ {
		_, err := tree.Insert(rec(fmt.Sprintf("x%02d", i)))
		require.NoError(t, err)
	}

	var sb strings.Builder
	require.NoError(t, tree.Inspect(&sb, true))
	out := sb.String()
	assert.Contains(t, out, "Level 0:")
	assert.Contains(t, out, "ROOT")
	assert.Contains(t, out, "LEAF")
	assert.Contains(t, out, "x17")

	st, err := tree.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(30), st.Entries)
	assert.Equal(t, tree.Level(), st.Level)
	assert.LessOrEqual(t, st.MaxFill, 2)
	assert.Greater(t, st.FillRate, 0.0)
}
