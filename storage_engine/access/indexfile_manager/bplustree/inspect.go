// Tree inspection for debugging: a breadth-first dump of nodes and buckets.

package bplus

import (
	"SeqIndex/types"
	"fmt"
	"io"
	"strings"
)

// Inspect writes a human-readable dump of the tree to w: every node level by
// level with its keys and links, and, when withEntries is set, the entries of
// every bucket under each leaf.
func (t *Tree[K, E]) Inspect(w io.Writer, withEntries bool) error {
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Tree root=%d level=%d order=%d fill=%d pagesize=%d\n",
		t.root, t.level, t.cfg.Order, t.cfg.Fill, t.cfg.PageSize)

	queue := []types.PageNo{t.root}
	for depth := 0; len(queue) > 0; depth++ {
		p("  Level %d:\n", depth)
		var next []types.PageNo
		for _, no := range queue {
			n, err := t.readNode(no)
			if err != nil {
				return err
			}
			keys := make([]string, len(n.keys))
			for i, k := range n.keys {
				keys[i] = t.keys.Format(k)
			}

			if !t.isLeaf(depth) {
				p("    [page %d] %s prev=%d keys=[%s] children=%v\n",
					no, strings.ToUpper(n.typ.String()), n.prev, strings.Join(keys, " "), n.ptrs)
				next = append(next, n.ptrs...)
				continue
			}

			p("    [page %d] %s prev=%d left=%d right=%d keys=[%s]\n",
				no, strings.ToUpper(n.typ.String()), n.prev, n.left, n.right, strings.Join(keys, " "))
			for _, b := range n.ptrs {
				if b == types.NoPage {
					p("      (no buckets)\n")
					continue
				}
				bk, err := t.readBucket(b)
				if err != nil {
					return err
				}
				p("      bucket %d: %d/%d entries\n", b, len(bk.entries), t.cfg.Fill)
				if !withEntries {
					continue
				}
				t.sortEntries(bk.entries)
				for _, e := range bk.entries {
					p("        %+v\n", e)
				}
			}
		}
		queue = next
	}
	return nil
}

// TreeStats summarizes the shape of a tree.
type TreeStats struct {
	Level    int
	Nodes    int
	Leaves   int
	Buckets  int
	Entries  int64
	MaxFill  int
	FillRate float64 // entries / (buckets * fill)
}

// Stats walks the whole tree. It is as expensive as Check.
func (t *Tree[K, E]) Stats() (TreeStats, error) {
	st := TreeStats{Level: t.level}
	queue := []types.PageNo{t.root}
	for depth := 0; len(queue) > 0; depth++ {
		var next []types.PageNo
		for _, no := range queue {
			n, err := t.readNode(no)
			if err != nil {
				return st, err
			}
			st.Nodes++
			if !t.isLeaf(depth) {
				next = append(next, n.ptrs...)
				continue
			}
			st.Leaves++
			for _, b := range n.ptrs {
				if b == types.NoPage {
					continue
				}
				cnt, err := t.countEntries(b)
				if err != nil {
					return st, err
				}
				st.Buckets++
				st.Entries += int64(cnt)
				if cnt > st.MaxFill {
					st.MaxFill = cnt
				}
			}
		}
		queue = next
	}
	if st.Buckets > 0 {
		st.FillRate = float64(st.Entries) / float64(st.Buckets*t.cfg.Fill)
	}
	return st, nil
}
