package storageengine

import (
	heapfile "SeqIndex/storage_engine/access/heapfile_manager"
	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	"strings"

	"go.uber.org/zap"
)

// Lookup returns every occurrence of id, first occurrence first.
func (se *StorageEngine) Lookup(id string) ([]indexfile.IDRecord, error) {
	ids, err := se.idIndex()
	if err != nil {
		return nil, err
	}
	return ids.DupFromKey(id)
}

// Search returns the occurrences of every id matching a '*'/'?' pattern,
// ordered by flat file and offset.
func (se *StorageEngine) Search(pattern string) ([]indexfile.IDRecord, error) {
	ids, err := se.idIndex()
	if err != nil {
		return nil, err
	}
	return ids.ListFromKeyW(pattern)
}

// Keyword returns the ids whose description holds a word matching pattern.
func (se *StorageEngine) Keyword(pattern string) ([]string, error) {
	des, err := se.keywordIndex()
	if err != nil {
		return nil, err
	}
	return des.ListFromKeywordW(pattern)
}

// Fetch returns the text of the record rec points at.
func (se *StorageEngine) Fetch(rec indexfile.IDRecord) (string, error) {
	return se.HeapManager.ReadRecordAt(rec.DBNo, rec.Offset)
}

// Delete removes id and all its occurrences from both indexes. The words to
// unlink are read back from the flat files; an occurrence whose file is
// gone leaves its keywords behind.
func (se *StorageEngine) Delete(id string) (bool, error) {
	if err := se.requireWritable(); err != nil {
		return false, err
	}
	se.mu.Lock()
	defer se.mu.Unlock()

	ids, err := se.idIndex()
	if err != nil {
		return false, err
	}
	des, err := se.keywordIndex()
	if err != nil {
		return false, err
	}

	recs, err := ids.DupFromKey(id)
	if err != nil || len(recs) == 0 {
		return false, err
	}
	for _, r := range recs {
		text, err := se.Fetch(r)
		if err != nil {
			se.logger.Warn("cannot read deleted record", zap.String("id", id), zap.Int32("dbno", r.DBNo),
				zap.Int64("offset", r.Offset), zap.Error(err))
			continue
		}
		header, _, _ := strings.Cut(text, "\n")
		for _, w := range heapfile.ParseHeader(header).Words {
			if _, err := des.DeleteKeyword(w, id); err != nil {
				return false, err
			}
		}
	}
	return ids.DeleteID(id)
}

// Check verifies both indexes.
func (se *StorageEngine) Check() (map[string]indexfile.CheckReport, error) {
	out := make(map[string]indexfile.CheckReport, 2)

	ids, err := se.idIndex()
	if err != nil {
		return out, err
	}
	if out[IDIndexName], err = ids.Check(); err != nil {
		return out, err
	}

	des, err := se.keywordIndex()
	if err != nil {
		return out, err
	}
	out[KeywordIndexName], err = des.Check()
	return out, err
}
