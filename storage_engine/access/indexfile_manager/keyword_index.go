package indexfile

import (
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"SeqIndex/types"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// KeywordIndex maps keywords to the set of ids they occur with. Every
// keyword entry points at a secondary tree of ids, created on the first
// insert of that keyword, in the same file.
type KeywordIndex struct {
	*index
	tree *bplus.Tree[string, bplus.KeywordEntry]
}

func CreateKeywordIndex(dir, name string, opts Options) (*KeywordIndex, error) {
	return OpenKeywordIndex(dir, name, ModeCreate, opts)
}

// OpenKeywordIndex opens <dir>/<name>.xkw and its parameter file.
func OpenKeywordIndex(dir, name string, mode Mode, opts Options) (*KeywordIndex, error) {
	x, cp, err := openIndex(dir, name, KeywordExt, KindKeyword, mode, opts)
	if err != nil {
		return nil, err
	}
	tree, err := primaryTree[bplus.KeywordEntry](x, bplus.KeywordEntries{}, cp)
	if err != nil {
		x.abort()
		return nil, errors.Wrapf(err, "open keyword index %s", name)
	}
	return &KeywordIndex{index: x, tree: tree}, nil
}

func (kx *KeywordIndex) Tree() *bplus.Tree[string, bplus.KeywordEntry] { return kx.tree }

// Count is the number of distinct keywords.
func (kx *KeywordIndex) Count() int64 { return kx.tree.Count() }

// Normalize lower-cases keyword and cuts it to the index's keyword limit.
func (kx *KeywordIndex) Normalize(keyword string) string {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if lim := kx.opts.KwLimit; lim > 0 && len(kw) > lim {
		kw = kw[:lim]
	}
	return kw
}

// InsertKeyword records that id carries keyword. It returns false when the
// pair was already known or the keyword is empty.
func (kx *KeywordIndex) InsertKeyword(keyword, id string) (bool, error) {
	if err := kx.guard(true); err != nil {
		return false, err
	}
	ok, err := kx.insertKeyword(kx.Normalize(keyword), id)
	return ok, kx.fail(err)
}

func (kx *KeywordIndex) insertKeyword(kw, id string) (bool, error) {
	if kw == "" || id == "" {
		return false, nil
	}
	e, found, err := kx.tree.Lookup(kw)
	if err != nil {
		return false, err
	}

	var sec *bplus.Tree[string, bplus.SecIDEntry]
	if found {
		sec, err = kx.secTree(e.TreeRoot)
	} else {
		if len(kw) > kx.tree.MaxKeyLen() {
			return false, errors.Wrapf(bplus.ErrKeyTooLong, "keyword %q", kw)
		}
		if sec, err = kx.secTree(types.NoPage); err == nil {
			_, err = kx.tree.Insert(bplus.KeywordEntry{Keyword: kw, TreeRoot: sec.Root()})
		}
	}
	if err != nil {
		return false, err
	}
	return sec.Insert(bplus.SecIDEntry{ID: id})
}

// KeywordIDs returns the ids carrying keyword, sorted.
func (kx *KeywordIndex) KeywordIDs(keyword string) ([]string, error) {
	if err := kx.guard(false); err != nil {
		return nil, err
	}
	e, found, err := kx.tree.Lookup(kx.Normalize(keyword))
	if err != nil || !found {
		return nil, kx.fail(err)
	}
	ids, err := kx.ids(e, nil)
	return ids, kx.fail(err)
}

func (kx *KeywordIndex) ids(e bplus.KeywordEntry, into []string) ([]string, error) {
	sec, err := kx.secTree(e.TreeRoot)
	if err != nil {
		return nil, err
	}
	err = sec.Walk(func(s bplus.SecIDEntry) bool {
		into = append(into, s.ID)
		return true
	})
	return into, err
}

// ListFromKeywordW returns the union of the ids of every keyword matching
// pattern, sorted and without repeats.
func (kx *KeywordIndex) ListFromKeywordW(pattern string) ([]string, error) {
	if err := kx.guard(false); err != nil {
		return nil, err
	}
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if !bplus.HasWildcard(pattern) {
		pattern = kx.Normalize(pattern)
	}

	entries, err := bplus.List(kx.tree, pattern)
	if err != nil {
		return nil, kx.fail(err)
	}
	var all []string
	for _, e := range entries {
		if all, err = kx.ids(e, all); err != nil {
			return nil, kx.fail(err)
		}
	}

	sort.Strings(all)
	out := all[:0]
	for _, id := range all {
		if n := len(out); n > 0 && out[n-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// DeleteKeyword removes id from keyword's set, and the keyword itself once
// its set is empty.
func (kx *KeywordIndex) DeleteKeyword(keyword, id string) (bool, error) {
	if err := kx.guard(true); err != nil {
		return false, err
	}
	ok, err := kx.deleteKeyword(kx.Normalize(keyword), id)
	return ok, kx.fail(err)
}

func (kx *KeywordIndex) deleteKeyword(kw, id string) (bool, error) {
	e, found, err := kx.tree.Lookup(kw)
	if err != nil || !found {
		return false, err
	}
	sec, err := kx.secTree(e.TreeRoot)
	if err != nil {
		return false, err
	}
	removed, err := sec.Delete(id)
	if err != nil || !removed {
		return removed, err
	}

	empty := true
	if err := sec.Walk(func(bplus.SecIDEntry) bool { empty = false; return false }); err != nil {
		return true, err
	}
	if empty {
		if _, err := kx.tree.Delete(kw); err != nil {
			return true, err
		}
	}
	return true, nil
}
