package indexfile

import (
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"SeqIndex/types"
	"strings"
)

// CheckReport sums what Check verified over every tree of an index.
type CheckReport struct {
	Trees   int
	Nodes   int
	Entries int64
}

func (r *CheckReport) add(c bplus.CheckReport) {
	r.Trees++
	r.Nodes += c.Nodes
	r.Entries += c.Entries
}

// Check verifies the primary tree, every duplicate chain, and that the
// duplicate counts agree with the chains.
func (ix *IDIndex) Check() (CheckReport, error) {
	if err := ix.guard(false); err != nil {
		return CheckReport{}, err
	}
	r, err := ix.check()
	return r, ix.fail(err)
}

func (ix *IDIndex) check() (CheckReport, error) {
	var r CheckReport
	c, err := ix.tree.Check()
	if err != nil {
		return r, err
	}
	r.add(c)
	if c.Entries != ix.tree.Count() {
		return r, types.Corruptf("index %s: %d entries, count says %d", ix.name, c.Entries, ix.tree.Count())
	}

	var heads []IDRecord
	err = ix.tree.Walk(func(e bplus.IDEntry) bool {
		if strings.HasSuffix(e.ID, DupSuffix) {
			heads = append(heads, e)
		}
		return true
	})
	if err != nil {
		return r, err
	}

	for _, head := range heads {
		id := strings.TrimSuffix(head.ID, DupSuffix)
		first, found, err := ix.tree.Lookup(id)
		if err != nil {
			return r, err
		}
		if !found {
			return r, types.Corruptf("index %s: duplicate marker of %q without its first occurrence", ix.name, id)
		}
		chained := int32(1)
		if head.Dups > 0 {
			chain, err := ix.numTree(types.PageNo(head.Offset))
			if err != nil {
				return r, err
			}
			c, err := chain.Check()
			if err != nil {
				return r, err
			}
			r.add(c)
			if c.Entries != int64(head.Dups) {
				return r, types.Corruptf("index %s: chain of %q holds %d, head says %d", ix.name, id, c.Entries, head.Dups)
			}
			chained = head.Dups
		}
		if first.Dups != chained {
			return r, types.Corruptf("index %s: %q counts %d duplicates, found %d", ix.name, id, first.Dups, chained)
		}
	}
	return r, nil
}

// Check verifies the keyword tree and every secondary tree.
func (kx *KeywordIndex) Check() (CheckReport, error) {
	if err := kx.guard(false); err != nil {
		return CheckReport{}, err
	}
	r, err := kx.check()
	return r, kx.fail(err)
}

func (kx *KeywordIndex) check() (CheckReport, error) {
	var r CheckReport
	c, err := kx.tree.Check()
	if err != nil {
		return r, err
	}
	r.add(c)

	var entries []bplus.KeywordEntry
	if err := kx.tree.Walk(func(e bplus.KeywordEntry) bool {
		entries = append(entries, e)
		return true
	}); err != nil {
		return r, err
	}
	for _, e := range entries {
		sec, err := kx.secTree(e.TreeRoot)
		if err != nil {
			return r, err
		}
		c, err := sec.Check()
		if err != nil {
			return r, err
		}
		if c.Entries == 0 {
			return r, types.Corruptf("index %s: keyword %q has no ids", kx.name, e.Keyword)
		}
		r.add(c)
	}
	return r, nil
}
