package indexfile

import (
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"SeqIndex/storage_engine/bufferpool"
	diskmanager "SeqIndex/storage_engine/disk_manager"
	"SeqIndex/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Mode = diskmanager.Mode

const (
	ModeRead   = diskmanager.ModeRead
	ModeWrite  = diskmanager.ModeWrite
	ModeCreate = diskmanager.ModeCreate
)

// Options shape a new index and size its caches. When an existing index is
// opened the shape (orders, fills, pagesize, kwlimit) comes from its
// parameter file and only the cache sizes and the logger are taken from
// here.
type Options struct {
	Order     int // primary tree order
	Fill      int // primary bucket fill
	Order2    int // secondary (keyword id) tree order
	Fill2     int // secondary bucket fill
	PageSize  int
	CacheSize int // resident pages
	KwLimit   int // keywords are truncated to this many bytes, 0 keeps them whole

	// NodeCacheCost bounds the decoded node cache in bytes, 0 disables it.
	NodeCacheCost int64

	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Order:         32,
		Fill:          16,
		Order2:        16,
		Fill2:         16,
		PageSize:      types.DefaultPageSize,
		CacheSize:     256,
		KwLimit:       15,
		NodeCacheCost: 4 << 20,
	}
}

func (o Options) Validate() error {
	if o.CacheSize < bufferpool.MinCapacity {
		return errors.Errorf("cachesize %d below the locked working set of %d pages", o.CacheSize, bufferpool.MinCapacity)
	}
	if o.KwLimit < 0 {
		return errors.Errorf("negative kwlimit %d", o.KwLimit)
	}
	if o.NodeCacheCost < 0 {
		return errors.Errorf("negative node cache cost %d", o.NodeCacheCost)
	}
	if err := o.primary().Validate(0, 0); err != nil {
		return errors.Wrap(err, "primary tree")
	}
	if err := o.secondary().Validate(0, 0); err != nil {
		return errors.Wrap(err, "secondary tree")
	}
	return nil
}

func (o Options) primary() bplus.Config {
	return bplus.Config{Order: o.Order, Fill: o.Fill, PageSize: o.PageSize}
}

func (o Options) secondary() bplus.Config {
	return bplus.Config{Order: o.Order2, Fill: o.Fill2, PageSize: o.PageSize}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
