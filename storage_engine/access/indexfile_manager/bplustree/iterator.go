package bplus

import "SeqIndex/types"

// Iterator walks the entries in key order along the leaf chain. It loads one
// leaf at a time and holds no page between calls, so the tree must not be
// modified while an iterator is in use.
type Iterator[K any, E any] struct {
	tree *Tree[K, E]
	leaf types.PageNo
	next types.PageNo
	buf  []E
	pos  int
	done bool
	err  error
}

// SeekGE positions an iterator at the first entry with key >= target.
func (t *Tree[K, E]) SeekGE(target K) *Iterator[K, E] {
	it := &Iterator[K, E]{tree: t}
	_, leaf, err := t.findInsert(target)
	if err != nil {
		it.fail(err)
		return it
	}
	if err := it.load(leaf); err != nil {
		it.fail(err)
		return it
	}
	for it.pos < len(it.buf) && t.keys.Compare(t.ents.Key(it.buf[it.pos]), target) < 0 {
		it.pos++
	}
	return it
}

// First positions an iterator at the smallest entry.
func (t *Tree[K, E]) First() *Iterator[K, E] {
	it := &Iterator[K, E]{tree: t}
	leaf, err := t.leftmostLeaf()
	if err != nil {
		it.fail(err)
		return it
	}
	if err := it.load(leaf); err != nil {
		it.fail(err)
	}
	return it
}

// Next returns the next entry, or false at the end of the tree or on error.
func (it *Iterator[K, E]) Next() (E, bool) {
	var zero E
	for it.pos >= len(it.buf) {
		if it.done || it.next == types.NoPage {
			it.done = true
			return zero, false
		}
		leaf, err := it.tree.readNode(it.next)
		if err != nil {
			it.fail(err)
			return zero, false
		}
		if leaf.typ != types.NodeLeaf {
			it.fail(types.Corruptf("page %d in the leaf chain is %s", leaf.no, leaf.typ))
			return zero, false
		}
		if err := it.load(leaf); err != nil {
			it.fail(err)
			return zero, false
		}
	}
	e := it.buf[it.pos]
	it.pos++
	return e, true
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator[K, E]) Err() error {
	return it.err
}

// load reads every bucket of leaf, sorted. A root leaf ends the chain since
// its Right field holds the tree height.
func (it *Iterator[K, E]) load(leaf *node[K]) error {
	entries, err := it.tree.collect(leaf)
	if err != nil {
		return err
	}
	it.leaf = leaf.no
	it.buf = entries
	it.pos = 0
	it.next = leaf.right
	if leaf.no == it.tree.root {
		it.next = types.NoPage
	}
	return nil
}

func (it *Iterator[K, E]) fail(err error) {
	it.err = err
	it.done = true
	it.buf = nil
	it.pos = 0
}

// Walk calls fn for every entry in key order until fn returns false.
func (t *Tree[K, E]) Walk(fn func(E) bool) error {
	it := t.First()
	for {
		e, ok := it.Next()
		if !ok {
			return it.Err()
		}
		if !fn(e) {
			return nil
		}
	}
}
