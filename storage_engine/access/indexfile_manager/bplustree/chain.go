package bplus

import (
	"SeqIndex/storage_engine/bufferpool"
	"SeqIndex/storage_engine/page"
	"SeqIndex/types"

	"go.uber.org/zap"
)

/*
Nodes and buckets share one payload layout: a run of items written after the
page header, continued on Overflow pages when the next item does not fit.
An item never straddles two pages, so reader and writer agree on where each
item lives by applying the same "pos+n > pagesize" rule.
*/

// chainWriter appends items to a page and its overflow chain, reusing the
// existing continuation pages before allocating new ones.
type chainWriter struct {
	pool    *bufferpool.BufferPool
	logger  *zap.Logger
	cur     *page.Page
	release func()
	pos     int
	pages   int
}

func newChainWriter(pool *bufferpool.BufferPool, logger *zap.Logger, head *page.Page) *chainWriter {
	return &chainWriter{
		pool:    pool,
		logger:  logger,
		cur:     head,
		release: pool.Pin(head),
		pos:     head.HeaderSize(),
		pages:   1,
	}
}

// reserve returns the next n payload bytes, moving to the next overflow page
// when the current one is full.
func (w *chainWriter) reserve(n int) ([]byte, error) {
	ps := len(w.cur.Data)
	if w.pos+n > ps {
		if page.OverflowHeaderSize+n > ps {
			return nil, types.Corruptf("item of %d bytes cannot fit page %d", n, w.cur.No)
		}
		next, err := w.nextPage()
		if err != nil {
			return nil, err
		}
		w.release()
		w.cur = next
		w.release = w.pool.Pin(next)
		w.pos = page.OverflowHeaderSize
		w.pages++
	}
	buf := w.cur.Data[w.pos : w.pos+n]
	w.pos += n
	return buf, nil
}

func (w *chainWriter) nextPage() (*page.Page, error) {
	if no := w.cur.Overflow(); no != types.NoPage {
		pg, err := w.pool.WritePage(no)
		if err != nil {
			return nil, err
		}
		if pg.Type() != types.NodeOverflow || pg.BlockNumber() != no {
			return nil, types.Corruptf("page %d linked as overflow of %d is %s", no, w.cur.No, pg.Type())
		}
		return pg, nil
	}

	pg, err := w.pool.NewPage(types.NodeOverflow)
	if err != nil {
		return nil, err
	}
	w.cur.SetOverflow(pg.No)
	w.logger.Debug("overflow page", zap.Int64("page", int64(pg.No)), zap.Int64("from", int64(w.cur.No)))
	return pg, nil
}

func (w *chainWriter) close() {
	w.release()
}

// chainReader walks the same layout. Returned slices alias page memory and
// are only valid until the next call.
type chainReader struct {
	pool    *bufferpool.BufferPool
	cur     *page.Page
	release func()
	pos     int
}

func newChainReader(pool *bufferpool.BufferPool, head *page.Page) *chainReader {
	return &chainReader{
		pool:    pool,
		cur:     head,
		release: pool.Pin(head),
		pos:     head.HeaderSize(),
	}
}

func (r *chainReader) next(n int) ([]byte, error) {
	ps := len(r.cur.Data)
	if r.pos+n > ps {
		no := r.cur.Overflow()
		if no == types.NoPage {
			return nil, types.Corruptf("page %d: payload runs past the end of its overflow chain", r.cur.No)
		}
		pg, err := r.pool.ReadPage(no)
		if err != nil {
			return nil, err
		}
		if pg.Type() != types.NodeOverflow || pg.BlockNumber() != no {
			return nil, types.Corruptf("page %d linked as overflow of %d is %s", no, r.cur.No, pg.Type())
		}
		r.release()
		r.cur = pg
		r.release = r.pool.Pin(pg)
		r.pos = page.OverflowHeaderSize
		if r.pos+n > ps {
			return nil, types.Corruptf("item of %d bytes cannot fit page %d", n, no)
		}
	}
	buf := r.cur.Data[r.pos : r.pos+n]
	r.pos += n
	return buf, nil
}

func (r *chainReader) close() {
	r.release()
}
