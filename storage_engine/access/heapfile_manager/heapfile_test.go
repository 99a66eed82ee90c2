package heapfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "junk before the first record\n" +
	">sp|P1 Hemoglobin subunit alpha\n" +
	"MVLS\n" +
	"PADK\n" +
	">P2  Kinase, beta-2 (kinase)\n" +
	"ACGT\n" +
	">P3"

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sample.fa")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	return path
}

func TestScanner(t *testing.T) {
	s := NewScanner(strings.NewReader(sample), 3)

	var recs []Record
	for {
		rec, ok := s.Next()
		if !ok {
			break
		}
		recs = append(recs, rec)
	}
	require.NoError(t, s.Err())
	require.Len(t, recs, 3)

	assert.Equal(t, "sp|P1", recs[0].ID)
	assert.Equal(t, "Hemoglobin subunit alpha", recs[0].Description)
	assert.Equal(t, []string{"hemoglobin", "subunit", "alpha"}, recs[0].Words)
	assert.Equal(t, int64(strings.Index(sample, ">sp|P1")), recs[0].Offset)
	assert.Equal(t, int64(strings.Index(sample, "MVLS")), recs[0].SeqOffset)
	assert.Equal(t, int32(3), recs[0].DBNo)

	assert.Equal(t, "P2", recs[1].ID)
	assert.Equal(t, []string{"kinase", "beta"}, recs[1].Words)
	assert.Equal(t, int64(strings.Index(sample, ">P2")), recs[1].Offset)

	assert.Equal(t, "P3", recs[2].ID)
	assert.Empty(t, recs[2].Words)
	assert.Equal(t, int64(len(sample)), recs[2].SeqOffset)
	assert.Equal(t, int64(len(sample)), s.Offset())

	_, ok := s.Next()
	assert.False(t, ok)
}

func TestScannerEmpty(t *testing.T) {
	s := NewScanner(strings.NewReader("no headers\nat all\n"), 0)
	_, ok := s.Next()
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"abc", "x1"}, Words("ABC; abc x1 y"))
	assert.Empty(t, Words(""))
}

func TestReadRecordAt(t *testing.T) {
	dir := t.TempDir()
	hf, err := OpenHeapFile(writeSample(t, dir), 1)
	require.NoError(t, err)
	defer hf.Close()
	assert.Equal(t, int64(len(sample)), hf.Size())

	text, err := hf.ReadRecordAt(int64(strings.Index(sample, ">P2")))
	require.NoError(t, err)
	assert.Equal(t, ">P2  Kinase, beta-2 (kinase)\nACGT\n", text)

	text, err = hf.ReadRecordAt(int64(strings.Index(sample, ">P3")))
	require.NoError(t, err)
	assert.Equal(t, ">P3", text)

	_, err = hf.ReadRecordAt(0)
	assert.Error(t, err, "not a header line")
	_, err = hf.ReadRecordAt(hf.Size())
	assert.Error(t, err)

	// the file scanner agrees with the reader
	s, err := hf.Scanner()
	require.NoError(t, err)
	rec, ok := s.Next()
	require.True(t, ok)
	text, err = hf.ReadRecordAt(rec.Offset)
	require.NoError(t, err)
	assert.Equal(t, ">sp|P1 Hemoglobin subunit alpha\nMVLS\nPADK\n", text)

	require.NoError(t, hf.Close())
	_, err = hf.ReadRecordAt(rec.Offset)
	assert.Error(t, err)
}

func TestHeapFileManager(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir)
	hfm := NewHeapFileManager(dir)

	hf, err := hfm.LoadHeapFile("sample.fa", 0)
	require.NoError(t, err)
	again, err := hfm.LoadHeapFile(filepath.Join(dir, "sample.fa"), 0)
	require.NoError(t, err)
	assert.Same(t, hf, again)

	_, err = hfm.LoadHeapFile("sample.fa", 1)
	assert.Error(t, err, "same path under another number")
	_, err = hfm.LoadHeapFile("other.fa", 0)
	assert.Error(t, err, "number in use")

	got, err := hfm.GetHeapFileByID(0)
	require.NoError(t, err)
	assert.Same(t, hf, got)
	_, err = hfm.GetHeapFileByID(9)
	assert.Error(t, err)

	text, err := hfm.ReadRecordAt(0, int64(strings.Index(sample, ">P3")))
	require.NoError(t, err)
	assert.Equal(t, ">P3", text)

	require.NoError(t, hfm.CloseAll())
	_, err = hfm.GetHeapFileByID(0)
	assert.Error(t, err)
}
