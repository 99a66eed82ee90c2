package storageengine

import (
	heapfile "SeqIndex/storage_engine/access/heapfile_manager"
	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// buildQueue is how many parsed records may wait for the index writer.
const buildQueue = 256

// Build indexes every record of the flat file at path: its id with
// duplicates chained, and every word of its description. A file already
// built is refused.
//
// One goroutine parses the file while another does all index writes.
func (se *StorageEngine) Build(ctx context.Context, path string) (BuildStats, error) {
	var st BuildStats
	if err := se.requireWritable(); err != nil {
		return st, err
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return st, errors.Wrap(err, "failed to stat flat file")
	}
	src, err := se.CatalogManager.RegisterSource(path, info.Size())
	if err != nil {
		return st, err
	}
	if src.Built {
		return st, errors.Errorf("%s already indexed as dbno %d", src.Path, src.DBNo)
	}
	st.DBNo = src.DBNo
	st.Bytes = info.Size()

	hf, err := se.HeapManager.LoadHeapFile(src.Path, src.DBNo)
	if err != nil {
		return st, err
	}
	ids, err := se.idIndex()
	if err != nil {
		return st, err
	}
	des, err := se.keywordIndex()
	if err != nil {
		return st, err
	}
	scanner, err := hf.Scanner()
	if err != nil {
		return st, err
	}

	start := time.Now()
	se.logger.Info("build started", zap.String("path", src.Path), zap.Int32("dbno", src.DBNo),
		zap.Int64("bytes", st.Bytes))

	recs := make(chan heapfile.Record, buildQueue)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(recs)
		for {
			rec, ok := scanner.Next()
			if !ok {
				return scanner.Err()
			}
			select {
			case recs <- rec:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for rec := range recs {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := se.indexRecord(ids, des, rec, &st); err != nil {
				return errors.Wrapf(err, "record %q at offset %d", rec.ID, rec.Offset)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		se.logger.Error("build failed", zap.String("path", src.Path), zap.Int64("records", st.Records), zap.Error(err))
		return st, err
	}

	if err := se.IndexManager.SyncAll(); err != nil {
		return st, err
	}
	if err := se.CatalogManager.MarkBuilt(src.DBNo, st.Records); err != nil {
		return st, err
	}
	se.logger.Info("build finished", zap.String("path", src.Path), zap.Int64("records", st.Records),
		zap.Int64("skipped", st.Skipped), zap.Int64("keywords", st.Keywords), zap.Duration("took", time.Since(start)))
	return st, nil
}

func (se *StorageEngine) indexRecord(ids *indexfile.IDIndex, des *indexfile.KeywordIndex, rec heapfile.Record, st *BuildStats) error {
	st.Records++
	if rec.ID == "" {
		st.Skipped++
		se.logger.Warn("record without id", zap.Int64("offset", rec.Offset))
		return nil
	}

	err := ids.InsertDupID(indexfile.IDRecord{ID: rec.ID, DBNo: rec.DBNo, Offset: rec.Offset, RefOffset: rec.SeqOffset})
	if errors.Is(err, bplus.ErrKeyTooLong) {
		st.Skipped++
		se.logger.Warn("id too long to index", zap.String("id", rec.ID), zap.Int64("offset", rec.Offset))
		return nil
	}
	if err != nil {
		return err
	}

	for _, w := range rec.Words {
		ok, err := des.InsertKeyword(w, rec.ID)
		if errors.Is(err, bplus.ErrKeyTooLong) {
			continue
		}
		if err != nil {
			return err
		}
		if ok {
			st.Keywords++
		}
	}
	return nil
}
