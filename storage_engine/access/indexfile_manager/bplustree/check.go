package bplus

import (
	"SeqIndex/types"
)

// CheckReport is what Check counted while verifying a tree.
type CheckReport struct {
	Level   int
	Nodes   int
	Leaves  int
	Buckets int
	Entries int64
}

// Check walks the whole tree and verifies its structure: node types and
// block numbers, key order and bounds, minimum and maximum fill, bucket
// capacity, entry placement, parent links and the leaf chain. The first
// violation is returned as a corruption error.
func (t *Tree[K, E]) Check() (CheckReport, error) {
	c := &checker[K, E]{t: t}
	if err := c.node(t.root, 0, types.NoPage, nil, nil); err != nil {
		return c.report, err
	}
	c.report.Level = t.level

	if t.level > 0 {
		for i, l := range c.leaves {
			wantLeft, wantRight := types.NoPage, types.NoPage
			if i > 0 {
				wantLeft = c.leaves[i-1].no
			}
			if i+1 < len(c.leaves) {
				wantRight = c.leaves[i+1].no
			}
			if l.left != wantLeft || l.right != wantRight {
				return c.report, types.Corruptf("leaf %d: chain left=%d right=%d, want left=%d right=%d",
					l.no, l.left, l.right, wantLeft, wantRight)
			}
		}
	}
	return c.report, nil
}

type checker[K any, E any] struct {
	t      *Tree[K, E]
	report CheckReport
	leaves []*node[K]
	last   *K
}

func (c *checker[K, E]) node(no types.PageNo, depth int, parent types.PageNo, lo, hi *K) error {
	t := c.t
	n, err := t.readNode(no)
	if err != nil {
		return err
	}
	c.report.Nodes++

	want := types.NodeInternal
	switch {
	case no == t.root:
		want = types.NodeRoot
	case t.isLeaf(depth):
		want = types.NodeLeaf
	}
	if n.typ != want {
		return types.Corruptf("page %d at depth %d is %s, want %s", no, depth, n.typ, want)
	}

	if no != t.root {
		if n.prev != parent {
			return types.Corruptf("page %d: parent link %d, want %d", no, n.prev, parent)
		}
		if len(n.keys) < t.cfg.MinKeys() {
			return types.Corruptf("page %d: %d keys below minimum %d", no, len(n.keys), t.cfg.MinKeys())
		}
	}
	for i := 1; i < len(n.keys); i++ {
		if t.keys.Compare(n.keys[i-1], n.keys[i]) >= 0 {
			return types.Corruptf("page %d: keys %s and %s out of order", no,
				t.keys.Format(n.keys[i-1]), t.keys.Format(n.keys[i]))
		}
	}
	if lo != nil && len(n.keys) > 0 && t.keys.Compare(n.keys[0], *lo) < 0 {
		return types.Corruptf("page %d: key %s below bound %s", no,
			t.keys.Format(n.keys[0]), t.keys.Format(*lo))
	}
	if hi != nil && len(n.keys) > 0 && t.keys.Compare(n.keys[len(n.keys)-1], *hi) >= 0 {
		return types.Corruptf("page %d: key %s not below bound %s", no,
			t.keys.Format(n.keys[len(n.keys)-1]), t.keys.Format(*hi))
	}

	bounds := func(i int) (*K, *K) {
		clo, chi := lo, hi
		if i > 0 {
			clo = &n.keys[i-1]
		}
		if i < len(n.keys) {
			chi = &n.keys[i]
		}
		return clo, chi
	}

	if !t.isLeaf(depth) {
		for i, child := range n.ptrs {
			clo, chi := bounds(i)
			if err := c.node(child, depth+1, no, clo, chi); err != nil {
				return err
			}
		}
		return nil
	}

	c.report.Leaves++
	c.leaves = append(c.leaves, n)
	if n.ptrs[0] == types.NoPage {
		if no != t.root || len(n.keys) != 0 {
			return types.Corruptf("leaf %d: missing bucket", no)
		}
		return nil
	}

	for i, p := range n.ptrs {
		clo, chi := bounds(i)
		b, err := t.readBucket(p)
		if err != nil {
			return err
		}
		c.report.Buckets++
		c.report.Entries += int64(len(b.entries))
		t.sortEntries(b.entries)
		for _, e := range b.entries {
			k := t.ents.Key(e)
			if (clo != nil && t.keys.Compare(k, *clo) < 0) || (chi != nil && t.keys.Compare(k, *chi) >= 0) {
				return types.Corruptf("bucket %d of leaf %d: key %s outside its bounds", p, no, t.keys.Format(k))
			}
			if c.last != nil && t.keys.Compare(*c.last, k) >= 0 {
				return types.Corruptf("bucket %d of leaf %d: key %s repeated or out of order", p, no, t.keys.Format(k))
			}
			c.last = &k
		}
	}
	return nil
}
