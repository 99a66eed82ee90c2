package diskmanager

import (
	"SeqIndex/types"
	"io"
	"os"

	"github.com/pkg/errors"
)

/*
This is main file for disk manager
It owns:
The os.File of a single index data file
Reading/writing raw bytes at specific offsets (ReadAt, WriteAt)
The on-disk size, which the buffer pool compares against when it allocates

There is no partial-I/O recovery: a short transfer is retried up to
MaxRetries times and then surfaces as types.ErrIoFailure.
*/

// Open opens (or for ModeCreate, creates and truncates) the file at path.
func Open(path string, mode Mode) (*DiskManager, error) {
	flag := os.O_RDONLY
	switch mode {
	case ModeWrite:
		flag = os.O_RDWR
	case ModeCreate:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open index file %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat index file %s", path)
	}

	return &DiskManager{
		file:     file,
		filePath: path,
		mode:     mode,
		size:     stat.Size(),
	}, nil
}

// ReadAt fills buf from offset off. Bytes past the end of the file read as
// zero, which lets a page that was allocated but never flushed come back
// empty.
func (dm *DiskManager) ReadAt(buf []byte, off int64) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return errors.Wrap(types.ErrIoFailure, "read on closed index file")
	}
	if off < 0 {
		return errors.Wrapf(types.ErrIoFailure, "seek to negative offset %d", off)
	}

	done := 0
	for tries := 0; done < len(buf); tries++ {
		if tries >= MaxRetries {
			return errors.Wrapf(types.ErrIoFailure, "short read at offset %d: %d of %d bytes after %d tries",
				off, done, len(buf), tries)
		}
		n, err := dm.file.ReadAt(buf[done:], off+int64(done))
		done += n
		if err == io.EOF {
			for i := done; i < len(buf); i++ {
				buf[i] = 0
			}
			return nil
		}
		if err != nil && n == 0 {
			return errors.Wrapf(types.ErrIoFailure, "failed to read %d bytes at offset %d: %v", len(buf), off, err)
		}
	}
	return nil
}

// WriteAt writes all of buf at offset off.
func (dm *DiskManager) WriteAt(buf []byte, off int64) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return errors.Wrap(types.ErrIoFailure, "write on closed index file")
	}
	if dm.mode == ModeRead {
		return errors.Wrap(types.ErrReadOnly, dm.filePath)
	}
	if off < 0 {
		return errors.Wrapf(types.ErrIoFailure, "seek to negative offset %d", off)
	}

	done := 0
	for tries := 0; done < len(buf); tries++ {
		if tries >= MaxRetries {
			return errors.Wrapf(types.ErrIoFailure, "short write at offset %d: %d of %d bytes after %d tries",
				off, done, len(buf), tries)
		}
		n, err := dm.file.WriteAt(buf[done:], off+int64(done))
		done += n
		if err != nil && n == 0 {
			return errors.Wrapf(types.ErrIoFailure, "failed to write %d bytes at offset %d: %v", len(buf), off, err)
		}
	}

	if end := off + int64(len(buf)); end > dm.size {
		dm.size = end
	}
	return nil
}

// Size returns the number of bytes on disk.
func (dm *DiskManager) Size() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.size
}

func (dm *DiskManager) Mode() Mode {
	return dm.mode
}

func (dm *DiskManager) Path() string {
	return dm.filePath
}

// Sync flushes the OS buffers of a writable file.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return errors.Wrap(types.ErrIoFailure, "sync on closed index file")
	}
	if dm.mode == ModeRead {
		return nil
	}
	if err := dm.file.Sync(); err != nil {
		return errors.Wrapf(types.ErrIoFailure, "failed to sync %s: %v", dm.filePath, err)
	}
	return nil
}

// Close syncs (if writable) and closes the file. Closing twice is a no-op.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return nil
	}

	if dm.mode != ModeRead {
		if err := dm.file.Sync(); err != nil {
			dm.file.Close()
			dm.file = nil
			return errors.Wrap(types.ErrIoFailure, "failed to sync before close: "+err.Error())
		}
	}

	err := dm.file.Close()
	dm.file = nil
	return errors.Wrap(err, "failed to close index file")
}
