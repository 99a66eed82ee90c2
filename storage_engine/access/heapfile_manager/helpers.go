package heapfile

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

/*
This file contains helpers related to HeapFileManager and Heapfile
*/

func (hfm *HeapFileManager) GetHeapFileByID(dbno int32) (*HeapFile, error) {
	hfm.mu.RLock()
	hf, exists := hfm.files[dbno]
	hfm.mu.RUnlock()

	if !exists {
		return nil, errors.Errorf("flat file %d not loaded", dbno)
	}
	return hf, nil
}

// ReadRecordAt returns the text of the record of file dbno starting at
// offset.
func (hfm *HeapFileManager) ReadRecordAt(dbno int32, offset int64) (string, error) {
	hf, err := hfm.GetHeapFileByID(dbno)
	if err != nil {
		return "", err
	}
	return hf.ReadRecordAt(offset)
}

// ReadRecordAt returns the record starting at offset: its header line and
// every line up to the next header.
func (hf *HeapFile) ReadRecordAt(offset int64) (string, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()

	if hf.file == nil {
		return "", errors.Errorf("flat file %s is closed", hf.filePath)
	}
	if offset < 0 || offset >= hf.size {
		return "", errors.Errorf("offset %d outside flat file %s of %d bytes", offset, hf.filePath, hf.size)
	}

	r := bufio.NewReader(io.NewSectionReader(hf.file, offset, hf.size-offset))
	header, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrapf(err, "failed to read record at %d", offset)
	}
	if !strings.HasPrefix(header, ">") {
		return "", errors.Errorf("offset %d of %s is not a record start", offset, hf.filePath)
	}

	var b strings.Builder
	b.WriteString(header)
	for err == nil {
		var line string
		line, err = r.ReadString('\n')
		if strings.HasPrefix(line, ">") {
			break
		}
		b.WriteString(line)
	}
	if err != nil && err != io.EOF {
		return "", errors.Wrapf(err, "failed to read record at %d", offset)
	}
	return b.String(), nil
}
