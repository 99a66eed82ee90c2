package bplus

import (
	"SeqIndex/types"
)

/*
Node page layout after the 52 byte header:

	string keys   nkeys x uint32 key length
	              nkeys x { key bytes, NUL, int64 pointer }
	              int64 trailing pointer
	int64 keys    nkeys x int64 key, nkeys+1 x int64 pointer

Anything that does not fit continues on the page's overflow chain.
*/

// readNode decodes the node stored at no.
func (t *Tree[K, E]) readNode(no types.PageNo) (*node[K], error) {
	pg, err := t.pool.ReadPage(no)
	if err != nil {
		return nil, err
	}
	typ := pg.Type()
	if !typ.IsNode() {
		return nil, types.Corruptf("page %d: expected a tree node, found %s", no, typ)
	}
	if pg.BlockNumber() != no {
		return nil, types.Corruptf("page %d: block number %d does not match its offset", no, pg.BlockNumber())
	}

	n := &node[K]{
		no:    no,
		typ:   typ,
		left:  pg.Left(),
		right: pg.Right(),
		prev:  pg.Prev(),
	}
	nkeys := pg.NKeys()
	if nkeys > t.cfg.MaxKeys() {
		return nil, types.Corruptf("page %d: %d keys exceeds order %d", no, nkeys, t.cfg.Order)
	}

	if keys, ptrs, ok := t.nodes.get(no, nkeys); ok {
		n.keys, n.ptrs = keys, ptrs
		return n, nil
	}
	if err := t.decodeKeys(n, nkeys); err != nil {
		return nil, err
	}
	t.nodes.put(no, n.keys, n.ptrs, t.nodeCost(n))
	return n, nil
}

func (t *Tree[K, E]) decodeKeys(n *node[K], nkeys int) error {
	pg, err := t.pool.ReadPage(n.no)
	if err != nil {
		return err
	}
	r := newChainReader(t.pool, pg)
	defer r.close()

	n.keys = make([]K, nkeys)
	n.ptrs = make([]types.PageNo, nkeys+1)

	if fs := t.keys.FixedSize(); fs > 0 {
		for i := range n.keys {
			b, err := r.next(fs)
			if err != nil {
				return err
			}
			n.keys[i] = t.keys.Get(b)
		}
		for i := range n.ptrs {
			b, err := r.next(ptrSize)
			if err != nil {
				return err
			}
			n.ptrs[i] = types.PageNo(le.Uint64(b))
		}
		return nil
	}

	lens := make([]int, nkeys)
	for i := range lens {
		b, err := r.next(4)
		if err != nil {
			return err
		}
		lens[i] = int(le.Uint32(b))
	}
	for i, l := range lens {
		b, err := r.next(l + 1 + ptrSize)
		if err != nil {
			return err
		}
		if b[l] != 0 {
			return types.Corruptf("page %d: key %d is not NUL terminated", n.no, i)
		}
		n.keys[i] = t.keys.Get(b[:l])
		n.ptrs[i] = types.PageNo(le.Uint64(b[l+1:]))
	}
	b, err := r.next(ptrSize)
	if err != nil {
		return err
	}
	n.ptrs[nkeys] = types.PageNo(le.Uint64(b))
	return nil
}

// writeNode encodes n onto its page, reusing the page's overflow chain.
func (t *Tree[K, E]) writeNode(n *node[K]) error {
	if len(n.ptrs) != len(n.keys)+1 {
		return types.Corruptf("page %d: %d keys with %d pointers", n.no, len(n.keys), len(n.ptrs))
	}
	if len(n.keys) > t.cfg.MaxKeys() {
		return types.Corruptf("page %d: %d keys exceeds order %d", n.no, len(n.keys), t.cfg.Order)
	}
	if n.no == t.root {
		n.typ = types.NodeRoot
		n.left, n.right, n.prev = types.NoPage, types.PageNo(t.level), types.NoPage
	}

	pg, err := t.pool.WritePage(n.no)
	if err != nil {
		return err
	}
	ovfl := types.NoPage
	if pg.Type().IsNode() {
		ovfl = pg.Overflow()
	}

	totLen := 0
	for _, k := range n.keys {
		totLen += t.keys.Len(k)
	}
	pg.SetType(n.typ)
	pg.SetBlockNumber(n.no)
	pg.SetNKeys(len(n.keys))
	pg.SetTotalLen(totLen)
	pg.SetLeft(n.left)
	pg.SetRight(n.right)
	pg.SetPrev(n.prev)
	pg.SetOverflow(ovfl)

	t.nodes.del(n.no)

	w := newChainWriter(t.pool, t.logger, pg)
	defer w.close()

	if fs := t.keys.FixedSize(); fs > 0 {
		for _, k := range n.keys {
			b, err := w.reserve(fs)
			if err != nil {
				return err
			}
			t.keys.Put(b, k)
		}
		for _, p := range n.ptrs {
			b, err := w.reserve(ptrSize)
			if err != nil {
				return err
			}
			le.PutUint64(b, uint64(p))
		}
		return nil
	}

	for _, k := range n.keys {
		b, err := w.reserve(4)
		if err != nil {
			return err
		}
		le.PutUint32(b, uint32(t.keys.Len(k)))
	}
	for i, k := range n.keys {
		l := t.keys.Len(k)
		b, err := w.reserve(l + 1 + ptrSize)
		if err != nil {
			return err
		}
		t.keys.Put(b[:l], k)
		b[l] = 0
		le.PutUint64(b[l+1:], uint64(n.ptrs[i]))
	}
	b, err := w.reserve(ptrSize)
	if err != nil {
		return err
	}
	le.PutUint64(b, uint64(n.ptrs[len(n.keys)]))
	return nil
}

// newNode allocates an empty node page of type typ.
func (t *Tree[K, E]) newNode(typ types.NodeType) (*node[K], error) {
	pg, err := t.pool.NewPage(typ)
	if err != nil {
		return nil, err
	}
	return &node[K]{no: pg.No, typ: typ}, nil
}

// setPrev rewrites the parent link of a node without decoding it.
func (t *Tree[K, E]) setPrev(no, parent types.PageNo) error {
	pg, err := t.pool.WritePage(no)
	if err != nil {
		return err
	}
	pg.SetPrev(parent)
	return nil
}

func (t *Tree[K, E]) setLeft(no, left types.PageNo) error {
	pg, err := t.pool.WritePage(no)
	if err != nil {
		return err
	}
	pg.SetLeft(left)
	return nil
}

func (t *Tree[K, E]) nodeCost(n *node[K]) int64 {
	cost := int64(64 + len(n.ptrs)*ptrSize)
	for _, k := range n.keys {
		cost += int64(t.keys.Len(k)) + 16
	}
	return cost
}

// isLeaf reports whether a node at depth is on the leaf level.
func (t *Tree[K, E]) isLeaf(depth int) bool {
	return depth == t.level
}
