package bplus

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"abc", "abc", true},
		{"abc", "abcd", false},
		{"ab*", "ab", true},
		{"ab*", "abzzz", true},
		{"ab*", "a", false},
		{"*xyz", "xyz", true},
		{"*xyz", "123xyz", true},
		{"*xyz", "xyz1", false},
		{"a?c*", "abc", true},
		{"a?c*", "axcdef", true},
		{"a?c*", "ac", false},
		{"*", "", true},
		{"?", "", false},
		{"a*b*c", "aXXbYYc", true},
		{"a*b*c", "aXXbYY", false},
		{"**a", "bba", true},
		{"sp|P6990?|*", "sp|P69905|HBA_HUMAN", true},
		{"gi/*", "gi/123/x/y", true},
		{"a?c", "a/c", true},
		{"[ab]*", "[ab]1", true},
		{"[ab]*", "a1", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Match(c.pattern, c.s), "%q ~ %q", c.pattern, c.s)
	}

	assert.Equal(t, "sp|P", LiteralPrefix("sp|P*"))
	assert.Equal(t, "", LiteralPrefix("?x"))
	assert.Equal(t, "plain", LiteralPrefix("plain"))
	assert.True(t, HasWildcard("a?"))
	assert.False(t, HasWildcard("abc"))
}

func wildTree(t *testing.T) (*Tree[string, IDEntry], []string) {
	t.Helper()
	tree := newIDTree(t, 5, 3, 64)
	var ids []string
	for _, p := range []string{"aa", "ab", "abc", "b", "zz"} {
		for i := 0; i < 40; i++ {
			id := fmt.Sprintf("%s%03d", p, i)
			if i%7 == 0 {
				id += "xyz"
			}
			ok, err := tree.Insert(rec(id))
			require.NoError(t, err)
			require.True(t, ok)
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return tree, ids
}

func ids(entries []IDEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func filter(all []string, pattern string) []string {
	var out []string
	for _, s := range all {
		if Match(pattern, s) {
			out = append(out, s)
		}
	}
	return out
}

// TestListPatterns tests that prefix and full scans return exactly the matching keys in order
func TestListPatterns(t *testing.T) {
	tree, all := wildTree(t)
	require.Greater(t, tree.Level(), 0)

	for _, pattern := range []string{"ab*", "*xyz", "a?c*", "abc017", "b0?5", "*", "zz03*", "q*", "abc*xyz"} {
		got, err := List(tree, pattern)
		require.NoError(t, err, pattern)
		assert.Equal(t, filter(all, pattern), ids(got), pattern)
	}

	got, err := List(tree, "ab*")
	require.NoError(t, err)
	assert.Len(t, got, 80, "ab and abc ids")
	assert.True(t, sort.StringsAreSorted(ids(got)))
}

// TestWildIteratorStopsAtPrefix tests that a prefix scan is cut off after the prefix range
func TestWildIteratorStopsAtPrefix(t *testing.T) {
	tree, _ := wildTree(t)

	w := NewWildIterator(tree, "aa0*")
	n := 0
	for {
		e, ok := w.Next()
		if !ok {
			break
		}
		assert.Equal(t, "aa0", e.ID[:3])
		n++
	}
	require.NoError(t, w.Err())
	assert.Equal(t, 10, n)
	assert.True(t, w.done)

	_, ok := w.Next()
	assert.False(t, ok)
}

func TestListEmptyTree(t *testing.T) {
	tree := newIDTree(t, 4, 2, 16)
	for _, pattern := range []string{"*", "a*", "abc"} {
		got, err := List(tree, pattern)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}
