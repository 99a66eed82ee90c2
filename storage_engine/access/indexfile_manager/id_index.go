package indexfile

import (
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"SeqIndex/types"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
Duplicate ids

The first occurrence of an id is stored under the id itself and counts the
others in its Dups field. The second occurrence is stored under id+DupSuffix.
When a third arrives, that second entry turns into a chain head: a numeric
tree keyed by file offset is allocated in the same file and takes both, the
head's Offset becomes the numeric root and its Dups the number of chained
occurrences.

	id        {Dups: 3, Offset: first}
	id\x01    {Dups: 3, Offset: root of ─┐
	                                     └─ numeric tree: second, third, fourth
*/

// DupSuffix marks the synthetic key of the second occurrence of an id.
const DupSuffix = "\x01"

// IDRecord is one indexed occurrence of an id.
type IDRecord = bplus.IDEntry

// IDIndex maps record ids to their location in the source files.
type IDIndex struct {
	*index
	tree *bplus.Tree[string, bplus.IDEntry]
}

func CreateIDIndex(dir, name string, opts Options) (*IDIndex, error) {
	return OpenIDIndex(dir, name, ModeCreate, opts)
}

// OpenIDIndex opens <dir>/<name>.xid and its parameter file.
func OpenIDIndex(dir, name string, mode Mode, opts Options) (*IDIndex, error) {
	x, cp, err := openIndex(dir, name, IDExt, KindID, mode, opts)
	if err != nil {
		return nil, err
	}
	tree, err := primaryTree[bplus.IDEntry](x, bplus.IDEntries{}, cp)
	if err != nil {
		x.abort()
		return nil, errors.Wrapf(err, "open id index %s", name)
	}
	return &IDIndex{index: x, tree: tree}, nil
}

// Tree exposes the primary tree for inspection.
func (ix *IDIndex) Tree() *bplus.Tree[string, bplus.IDEntry] { return ix.tree }

// Count is the number of entries in the primary tree, chain heads included.
func (ix *IDIndex) Count() int64 { return ix.tree.Count() }

// InsertID adds rec. It returns false, changing nothing, if the id is
// already indexed.
func (ix *IDIndex) InsertID(rec IDRecord) (bool, error) {
	if err := ix.guard(true); err != nil {
		return false, err
	}
	ok, err := ix.tree.Insert(rec)
	return ok, ix.fail(err)
}

// InsertDupID adds rec, chaining it behind earlier occurrences of the same
// id instead of refusing it. An occurrence at a location already recorded
// for the id changes nothing.
func (ix *IDIndex) InsertDupID(rec IDRecord) error {
	if err := ix.guard(true); err != nil {
		return err
	}
	return ix.fail(ix.insertDup(rec))
}

func (ix *IDIndex) insertDup(rec IDRecord) error {
	if strings.HasSuffix(rec.ID, DupSuffix) {
		return errors.Errorf("id %q ends in the duplicate marker", rec.ID)
	}
	rec.Dups = 0

	first, found, err := ix.tree.Lookup(rec.ID)
	if err != nil {
		return err
	}
	if !found {
		_, err := ix.tree.Insert(rec)
		return err
	}
	if sameLocation(first, rec) {
		ix.knownLocation(rec)
		return nil
	}

	headKey := rec.ID + DupSuffix
	head, found, err := ix.tree.Lookup(headKey)
	if err != nil {
		return err
	}
	if found && head.Dups == 0 && sameLocation(head, rec) {
		ix.knownLocation(rec)
		return nil
	}

	switch {
	case !found:
		second := rec
		second.ID = headKey
		if _, err := ix.tree.Insert(second); err != nil {
			return err
		}

	case head.Dups == 0:
		// third occurrence: move the second into a new chain
		chain, err := ix.numTree(types.NoPage)
		if err != nil {
			return err
		}
		for _, r := range []IDRecord{head, rec} {
			if _, err := chain.Insert(numEntry(r)); err != nil {
				return err
			}
		}
		head.Offset = int64(chain.Root())
		head.RefOffset = 0
		head.Dups = int32(chainLen(chain))
		if _, err := ix.tree.Replace(head); err != nil {
			return err
		}

	default:
		chain, err := ix.numTree(types.PageNo(head.Offset))
		if err != nil {
			return err
		}
		ok, err := chain.Insert(numEntry(rec))
		if err != nil {
			return err
		}
		if !ok {
			ix.knownLocation(rec)
			return nil
		}
		head.Dups++
		if _, err := ix.tree.Replace(head); err != nil {
			return err
		}
	}

	first.Dups++
	_, err = ix.tree.Replace(first)
	return err
}

func sameLocation(a, b IDRecord) bool {
	return a.DBNo == b.DBNo && a.Offset == b.Offset
}

func (ix *IDIndex) knownLocation(rec IDRecord) {
	ix.logger.Debug("duplicate occurrence at a known location", zap.String("id", rec.ID),
		zap.Int32("dbno", rec.DBNo), zap.Int64("offset", rec.Offset))
}

func numEntry(r IDRecord) bplus.NumEntry {
	return bplus.NumEntry{Offset: r.Offset, RefOffset: r.RefOffset, DBNo: r.DBNo}
}

func chainLen(t *bplus.Tree[int64, bplus.NumEntry]) int {
	n := 0
	t.Walk(func(bplus.NumEntry) bool { n++; return true })
	return n
}

// IDFromKey returns the first occurrence of id.
func (ix *IDIndex) IDFromKey(id string) (IDRecord, bool, error) {
	if err := ix.guard(false); err != nil {
		return IDRecord{}, false, err
	}
	rec, found, err := ix.tree.Lookup(id)
	return rec, found, ix.fail(err)
}

// DupFromKey returns every occurrence of id, the first one first and the
// chained ones in offset order, all carrying id itself as their ID.
func (ix *IDIndex) DupFromKey(id string) ([]IDRecord, error) {
	if err := ix.guard(false); err != nil {
		return nil, err
	}
	out, err := ix.dupFromKey(id)
	return out, ix.fail(err)
}

func (ix *IDIndex) dupFromKey(id string) ([]IDRecord, error) {
	first, found, err := ix.tree.Lookup(id)
	if err != nil || !found {
		return nil, err
	}
	first.Dups = 0
	out := []IDRecord{first}

	head, found, err := ix.tree.Lookup(id + DupSuffix)
	if err != nil || !found {
		return out, err
	}
	if head.Dups == 0 {
		head.ID = id
		return append(out, head), nil
	}

	chain, err := ix.numTree(types.PageNo(head.Offset))
	if err != nil {
		return nil, err
	}
	err = chain.Walk(func(e bplus.NumEntry) bool {
		out = append(out, IDRecord{ID: id, DBNo: e.DBNo, Offset: e.Offset, RefOffset: e.RefOffset})
		return true
	})
	return out, err
}

// DeleteID removes id together with its duplicate chain. Pages of the chain
// are not reclaimed.
func (ix *IDIndex) DeleteID(id string) (bool, error) {
	if err := ix.guard(true); err != nil {
		return false, err
	}
	removed, err := ix.tree.Delete(id)
	if err != nil || !removed {
		return removed, ix.fail(err)
	}
	_, err = ix.tree.Delete(id + DupSuffix)
	return true, ix.fail(err)
}

// ReplaceID overwrites the stored fields of rec.ID in place. The duplicate
// count is kept.
func (ix *IDIndex) ReplaceID(rec IDRecord) (bool, error) {
	if err := ix.guard(true); err != nil {
		return false, err
	}
	old, found, err := ix.tree.Lookup(rec.ID)
	if err != nil || !found {
		return false, ix.fail(err)
	}
	rec.Dups = old.Dups
	ok, err := ix.tree.Replace(rec)
	return ok, ix.fail(err)
}

// IDIterator yields the first occurrence of every id matching a wildcard
// pattern, in id order.
type IDIterator struct {
	ix *IDIndex
	w  *bplus.WildIterator[bplus.IDEntry]
}

// IDFromKeyW starts a wildcard scan over the ids.
func (ix *IDIndex) IDFromKeyW(pattern string) *IDIterator {
	return &IDIterator{ix: ix, w: bplus.NewWildIterator(ix.tree, pattern)}
}

func (it *IDIterator) Next() (IDRecord, bool) {
	if it.ix.guard(false) != nil {
		return IDRecord{}, false
	}
	for {
		rec, ok := it.w.Next()
		if !ok {
			return IDRecord{}, false
		}
		if !strings.HasSuffix(rec.ID, DupSuffix) {
			return rec, true
		}
	}
}

func (it *IDIterator) Err() error {
	if err := it.ix.guard(false); err != nil {
		return err
	}
	return it.ix.fail(it.w.Err())
}

// ListFromKeyW returns every occurrence of every id matching pattern,
// duplicates expanded, sorted by database number and offset with repeated
// locations removed.
func (ix *IDIndex) ListFromKeyW(pattern string) ([]IDRecord, error) {
	if err := ix.guard(false); err != nil {
		return nil, err
	}

	var out []IDRecord
	it := ix.IDFromKeyW(pattern)
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		if rec.Dups == 0 {
			out = append(out, rec)
			continue
		}
		all, err := ix.dupFromKey(rec.ID)
		if err != nil {
			return nil, ix.fail(err)
		}
		out = append(out, all...)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return SortRecords(out), nil
}

// SortRecords orders records by database number then offset and drops
// repeats of the same location.
func SortRecords(recs []IDRecord) []IDRecord {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].DBNo != recs[j].DBNo {
			return recs[i].DBNo < recs[j].DBNo
		}
		return recs[i].Offset < recs[j].Offset
	})
	out := recs[:0]
	for _, r := range recs {
		if n := len(out); n > 0 && r.DBNo == out[n-1].DBNo && r.Offset == out[n-1].Offset {
			continue
		}
		out = append(out, r)
	}
	return out
}
