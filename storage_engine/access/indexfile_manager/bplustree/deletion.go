package bplus

import "SeqIndex/types"

// Delete removes the entry stored under key and rebalances on the way back
// up. It reports false when there is no such entry.
func (t *Tree[K, E]) Delete(key K) (bool, error) {
	removed, err := t.findBalance(t.root, 0, key)
	if err != nil {
		return false, err
	}
	if removed {
		t.count--
	}
	return removed, nil
}

// findBalance deletes key from the subtree at no. After the recursive call
// a separator equal to key is replaced by the new minimum of its right
// subtree, and an underfull child is rebalanced against its siblings.
func (t *Tree[K, E]) findBalance(no types.PageNo, depth int, key K) (bool, error) {
	n, err := t.readNode(no)
	if err != nil {
		return false, err
	}

	if t.isLeaf(depth) {
		return t.deleteFromLeaf(n, key)
	}

	i := t.childIndex(n.keys, key)
	removed, err := t.findBalance(n.ptrs[i], depth+1, key)
	if err != nil || !removed {
		return removed, err
	}

	if n, err = t.readNode(no); err != nil {
		return false, err
	}
	if i > 0 && t.keys.Compare(n.keys[i-1], key) == 0 {
		min, ok, err := t.findMin(n.ptrs[i], depth+1)
		if err != nil {
			return false, err
		}
		if ok {
			n.keys[i-1] = min
			if err := t.writeNode(n); err != nil {
				return false, err
			}
		}
	}

	child, err := t.readNode(n.ptrs[i])
	if err != nil {
		return false, err
	}
	if len(child.keys) < t.cfg.MinKeys() {
		if err := t.rebalance(n, i, t.isLeaf(depth+1)); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (t *Tree[K, E]) deleteFromLeaf(leaf *node[K], key K) (bool, error) {
	if leaf.ptrs[0] == types.NoPage {
		return false, nil
	}
	i := t.childIndex(leaf.keys, key)
	rest, removed, err := t.removeEntry(leaf.ptrs[i], key)
	if err != nil || !removed {
		return removed, err
	}

	// keep the bucket's lower bound a live key
	if i > 0 && len(rest) > 0 && t.keys.Compare(leaf.keys[i-1], key) == 0 {
		min := t.ents.Key(rest[0])
		for _, e := range rest[1:] {
			if k := t.ents.Key(e); t.keys.Compare(k, min) < 0 {
				min = k
			}
		}
		leaf.keys[i-1] = min
		if err := t.writeNode(leaf); err != nil {
			return false, err
		}
	}
	return true, t.adjustBuckets(leaf)
}

// findMin returns the smallest key under the subtree at no when it sits in
// the first bucket of the leftmost leaf. Such a key is below every separator
// of the subtree, so it can stand as the subtree's new lower bound. An empty
// first bucket reports false and the old bound stays.
func (t *Tree[K, E]) findMin(no types.PageNo, depth int) (K, bool, error) {
	var zero K
	for ; !t.isLeaf(depth); depth++ {
		n, err := t.readNode(no)
		if err != nil {
			return zero, false, err
		}
		no = n.ptrs[0]
	}

	leaf, err := t.readNode(no)
	if err != nil {
		return zero, false, err
	}
	if leaf.ptrs[0] == types.NoPage {
		return zero, false, nil
	}
	b, err := t.readBucket(leaf.ptrs[0])
	if err != nil || len(b.entries) == 0 {
		return zero, false, err
	}
	t.sortEntries(b.entries)
	return t.ents.Key(b.entries[0]), true, nil
}
