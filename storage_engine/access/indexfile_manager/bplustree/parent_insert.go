package bplus

import (
	"SeqIndex/types"
)

// insertKey places key between the children less and greater in the parent
// recorded at the end of path. A full parent is split and the median moves
// one level up; a full root splits in place and the tree grows by one level.
func (t *Tree[K, E]) insertKey(path []frame, key K, less, greater types.PageNo) error {
	if len(path) == 0 {
		return types.Corruptf("insert of separator %s above the root", t.keys.Format(key))
	}
	pf := path[len(path)-1]
	parent, err := t.readNode(pf.no)
	if err != nil {
		return err
	}

	pos := pf.idx
	if pos >= len(parent.ptrs) || parent.ptrs[pos] != less {
		pos = indexOf(parent.ptrs, less)
		if pos < 0 {
			return types.Corruptf("page %d does not point to child %d", parent.no, less)
		}
	}
	if err := t.setPrev(greater, parent.no); err != nil {
		return err
	}

	keys := insertAt(parent.keys, pos, key)
	ptrs := insertAt(parent.ptrs, pos+1, greater)

	if len(keys) <= t.cfg.MaxKeys() {
		return t.insertNonFull(path, parent, keys, ptrs)
	}
	if parent.no == t.root {
		return t.splitRoot(parent, keys, ptrs)
	}
	return t.splitInternal(path[:len(path)-1], parent, keys, ptrs)
}

// insertNonFull stores keys and ptrs in a node that has room for them and,
// when that fills it, shifts one key to a sibling.
func (t *Tree[K, E]) insertNonFull(path []frame, n *node[K], keys []K, ptrs []types.PageNo) error {
	n.keys, n.ptrs = keys, ptrs
	if err := t.writeNode(n); err != nil {
		return err
	}
	if n.no == t.root || len(n.keys) < t.cfg.MaxKeys() {
		return nil
	}
	_, err := t.insertShift(path[:len(path)-1], n)
	return err
}

func insertAt[T any](s []T, i int, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...)
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func indexOf(ptrs []types.PageNo, no types.PageNo) int {
	for i, p := range ptrs {
		if p == no {
			return i
		}
	}
	return -1
}
