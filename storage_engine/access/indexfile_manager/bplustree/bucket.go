package bplus

import (
	"SeqIndex/types"
	"sort"
)

/*
Bucket page layout after the 24 byte header:

	variable entries  nentries x uint32 entry length, then the entries
	fixed entries     nentries x entry

Entries continue on the bucket's overflow chain when the page is full.
*/

type bucket[E any] struct {
	no      types.PageNo
	entries []E
}

// readBucket decodes the bucket at no, with room for one more entry.
func (t *Tree[K, E]) readBucket(no types.PageNo) (*bucket[E], error) {
	pg, err := t.pool.ReadPage(no)
	if err != nil {
		return nil, err
	}
	if want := t.ents.BucketType(); pg.Type() != want {
		return nil, types.Corruptf("page %d: expected %s, found %s", no, want, pg.Type())
	}
	if pg.BlockNumber() != no {
		return nil, types.Corruptf("page %d: block number %d does not match its offset", no, pg.BlockNumber())
	}
	n := pg.NEntries()
	if n > t.cfg.Fill {
		return nil, types.Corruptf("bucket %d: %d entries over capacity %d", no, n, t.cfg.Fill)
	}

	r := newChainReader(t.pool, pg)
	defer r.close()

	b := &bucket[E]{no: no, entries: make([]E, 0, n+1)}
	if fs := t.ents.FixedSize(); fs > 0 {
		for i := 0; i < n; i++ {
			buf, err := r.next(fs)
			if err != nil {
				return nil, err
			}
			b.entries = append(b.entries, t.ents.Get(buf))
		}
		return b, nil
	}

	lens := make([]int, n)
	for i := range lens {
		buf, err := r.next(4)
		if err != nil {
			return nil, err
		}
		lens[i] = int(le.Uint32(buf))
		if lens[i] < t.ents.Overhead() {
			return nil, types.Corruptf("bucket %d: entry %d has length %d", no, i, lens[i])
		}
	}
	for _, l := range lens {
		buf, err := r.next(l)
		if err != nil {
			return nil, err
		}
		b.entries = append(b.entries, t.ents.Get(buf))
	}
	return b, nil
}

// writeBucket encodes b onto its page, reusing the page's overflow chain.
func (t *Tree[K, E]) writeBucket(b *bucket[E]) error {
	if len(b.entries) > t.cfg.Fill {
		return types.Corruptf("bucket %d: %d entries over capacity %d", b.no, len(b.entries), t.cfg.Fill)
	}
	pg, err := t.pool.WritePage(b.no)
	if err != nil {
		return err
	}
	ovfl := types.NoPage
	if pg.Type() == t.ents.BucketType() {
		ovfl = pg.Overflow()
	}
	pg.SetType(t.ents.BucketType())
	pg.SetBlockNumber(b.no)
	pg.SetNEntries(len(b.entries))
	pg.SetOverflow(ovfl)

	w := newChainWriter(t.pool, t.logger, pg)
	defer w.close()

	if fs := t.ents.FixedSize(); fs > 0 {
		for _, e := range b.entries {
			buf, err := w.reserve(fs)
			if err != nil {
				return err
			}
			t.ents.Put(buf, e)
		}
		return nil
	}

	for _, e := range b.entries {
		buf, err := w.reserve(4)
		if err != nil {
			return err
		}
		le.PutUint32(buf, uint32(t.ents.Len(e)))
	}
	for _, e := range b.entries {
		buf, err := w.reserve(t.ents.Len(e))
		if err != nil {
			return err
		}
		t.ents.Put(buf, e)
	}
	return nil
}

// newBucket allocates a bucket page holding entries.
func (t *Tree[K, E]) newBucket(entries []E) (types.PageNo, error) {
	pg, err := t.pool.NewPage(t.ents.BucketType())
	if err != nil {
		return types.NoPage, err
	}
	return pg.No, t.writeBucket(&bucket[E]{no: pg.No, entries: entries})
}

func (t *Tree[K, E]) countEntries(no types.PageNo) (int, error) {
	pg, err := t.pool.ReadPage(no)
	if err != nil {
		return 0, err
	}
	if want := t.ents.BucketType(); pg.Type() != want {
		return 0, types.Corruptf("page %d: expected %s, found %s", no, want, pg.Type())
	}
	return pg.NEntries(), nil
}

// addEntry appends e to the bucket at no, which must have room.
func (t *Tree[K, E]) addEntry(no types.PageNo, e E) error {
	b, err := t.readBucket(no)
	if err != nil {
		return err
	}
	if len(b.entries) >= t.cfg.Fill {
		return types.Corruptf("bucket %d: add to a full bucket", no)
	}
	b.entries = append(b.entries, e)
	return t.writeBucket(b)
}

// removeEntry deletes the entry with key from the bucket at no by moving
// the last entry into its slot. It returns the remaining entries.
func (t *Tree[K, E]) removeEntry(no types.PageNo, key K) ([]E, bool, error) {
	b, err := t.readBucket(no)
	if err != nil {
		return nil, false, err
	}
	i := t.findEntry(b.entries, key)
	if i < 0 {
		return b.entries, false, nil
	}
	last := len(b.entries) - 1
	b.entries[i] = b.entries[last]
	b.entries = b.entries[:last]
	return b.entries, true, t.writeBucket(b)
}

func (t *Tree[K, E]) findEntry(entries []E, key K) int {
	for i, e := range entries {
		if t.keys.Compare(t.ents.Key(e), key) == 0 {
			return i
		}
	}
	return -1
}

// collect reads every bucket of a leaf into one sorted list.
func (t *Tree[K, E]) collect(leaf *node[K]) ([]E, error) {
	var all []E
	for _, p := range leaf.ptrs {
		if p == types.NoPage {
			continue
		}
		b, err := t.readBucket(p)
		if err != nil {
			return nil, err
		}
		all = append(all, b.entries...)
	}
	t.sortEntries(all)
	return all, nil
}

func (t *Tree[K, E]) sortEntries(entries []E) {
	sort.Slice(entries, func(i, j int) bool {
		return t.keys.Compare(t.ents.Key(entries[i]), t.ents.Key(entries[j])) < 0
	})
}

// bucketsFor is the number of half-full buckets needed for n entries,
// clamped to [lo, Order] and to n.
func (t *Tree[K, E]) bucketsFor(n, lo int) int {
	half := t.cfg.Half()
	nb := (n + half - 1) / half
	if nb < lo {
		nb = lo
	}
	if nb > t.cfg.Order {
		nb = t.cfg.Order
	}
	if nb > n {
		nb = n
	}
	if nb < 1 {
		nb = 1
	}
	return nb
}

// minBuckets is the least bucket count a leaf keeps.
func (t *Tree[K, E]) minBuckets(leaf *node[K]) int {
	if leaf.no == t.root {
		return 1
	}
	return t.cfg.MinKeys() + 1
}

// rebucket spreads sorted entries evenly over nb buckets of leaf, taking
// pages from spare before allocating, and rewrites the leaf's keys as the
// first key of every bucket but the first. The leaf itself is not written.
func (t *Tree[K, E]) rebucket(leaf *node[K], entries []E, nb int, spare *[]types.PageNo) error {
	n := len(entries)
	keys := make([]K, 0, nb-1)
	ptrs := make([]types.PageNo, 0, nb)

	start := 0
	for i := 0; i < nb; i++ {
		end := start + (n-start)/(nb-i)
		if (n-start)%(nb-i) != 0 {
			end++
		}
		chunk := append([]E(nil), entries[start:end]...)

		var no types.PageNo
		if len(*spare) > 0 {
			no = (*spare)[0]
			*spare = (*spare)[1:]
			if err := t.writeBucket(&bucket[E]{no: no, entries: chunk}); err != nil {
				return err
			}
		} else {
			var err error
			if no, err = t.newBucket(chunk); err != nil {
				return err
			}
		}

		if i > 0 {
			keys = append(keys, t.ents.Key(chunk[0]))
		}
		ptrs = append(ptrs, no)
		start = end
	}

	leaf.keys = keys
	leaf.ptrs = ptrs
	return nil
}

// reorderBuckets redistributes the entries of a leaf into half-full
// buckets. It returns false, changing nothing, when that would need more
// buckets than a node can point to; the leaf must then be split.
func (t *Tree[K, E]) reorderBuckets(leaf *node[K]) (bool, error) {
	entries, err := t.collect(leaf)
	if err != nil {
		return false, err
	}
	half := t.cfg.Half()
	if (len(entries)+half-1)/half > t.cfg.Order {
		return false, nil
	}

	nb := t.bucketsFor(len(entries), t.minBuckets(leaf))
	spare := append([]types.PageNo(nil), leaf.ptrs...)
	if err := t.rebucket(leaf, entries, nb, &spare); err != nil {
		return false, err
	}
	return true, t.writeNode(leaf)
}

// adjustBuckets repacks a leaf after a removal left one of its buckets
// empty. An empty leaf keeps zero keys and a single empty bucket.
func (t *Tree[K, E]) adjustBuckets(leaf *node[K]) error {
	empty := false
	for _, p := range leaf.ptrs {
		n, err := t.countEntries(p)
		if err != nil {
			return err
		}
		if n == 0 {
			empty = true
			break
		}
	}
	if !empty {
		return nil
	}

	entries, err := t.collect(leaf)
	if err != nil {
		return err
	}
	spare := append([]types.PageNo(nil), leaf.ptrs...)
	if len(entries) == 0 {
		leaf.keys = leaf.keys[:0]
		leaf.ptrs = spare[:1]
		if err := t.writeBucket(&bucket[E]{no: spare[0]}); err != nil {
			return err
		}
		return t.writeNode(leaf)
	}

	nb := t.bucketsFor(len(entries), t.minBuckets(leaf))
	if err := t.rebucket(leaf, entries, nb, &spare); err != nil {
		return err
	}
	return t.writeNode(leaf)
}
