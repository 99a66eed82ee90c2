package bplus

import (
	"SeqIndex/types"
	"sort"
)

// childIndex returns the pointer to follow for key: the first i with
// key < keys[i], or len(keys) when key is not below any of them.
func (t *Tree[K, E]) childIndex(keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool {
		return t.keys.Compare(key, keys[i]) < 0
	})
}

// findInsert descends from the root to the leaf responsible for key. The
// returned path holds every internal node visited with the child index
// taken; it is empty when the root is the leaf.
func (t *Tree[K, E]) findInsert(key K) ([]frame, *node[K], error) {
	path := make([]frame, 0, t.level)
	no := t.root
	for depth := 0; ; depth++ {
		n, err := t.readNode(no)
		if err != nil {
			return nil, nil, err
		}
		if t.isLeaf(depth) {
			if depth > 0 && n.typ != types.NodeLeaf {
				return nil, nil, types.Corruptf("page %d at leaf level is %s", no, n.typ)
			}
			return path, n, nil
		}
		if depth > 0 && n.typ != types.NodeInternal {
			return nil, nil, types.Corruptf("page %d at depth %d is %s", no, depth, n.typ)
		}
		i := t.childIndex(n.keys, key)
		path = append(path, frame{no: no, idx: i})
		no = n.ptrs[i]
	}
}

// leftmostLeaf is where a full scan starts.
func (t *Tree[K, E]) leftmostLeaf() (*node[K], error) {
	no := t.root
	for depth := 0; ; depth++ {
		n, err := t.readNode(no)
		if err != nil {
			return nil, err
		}
		if t.isLeaf(depth) {
			return n, nil
		}
		no = n.ptrs[0]
	}
}

// locate resolves the bucket responsible for key.
func (t *Tree[K, E]) locate(key K) ([]frame, *node[K], int, *bucket[E], error) {
	path, leaf, err := t.findInsert(key)
	if err != nil {
		return nil, nil, 0, nil, err
	}
	if leaf.ptrs[0] == types.NoPage {
		return path, leaf, 0, nil, nil
	}
	i := t.childIndex(leaf.keys, key)
	b, err := t.readBucket(leaf.ptrs[i])
	if err != nil {
		return nil, nil, 0, nil, err
	}
	return path, leaf, i, b, nil
}
