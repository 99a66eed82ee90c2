package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.pxid")
	cm := NewCheckpointManager(path)

	cp := Checkpoint{
		Order: 32, Fill: 16, Pagesize: 2048, Level: 3, Cachesize: 200,
		Order2: 12, Fill2: 8, Count: 123456789, Kwlimit: 15, Kind: "keyword", Totsize: 1 << 33,
	}
	require.NoError(t, cm.SaveCheckpoint(cp))

	got, err := cm.LoadCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, cp, *got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Order     32\n")
	assert.Contains(t, string(data), "Order2    12\n")

	require.NoError(t, cm.DeleteCheckpoint())
	_, err = cm.LoadCheckpoint()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestDecodeIgnoresUnknownLines(t *testing.T) {
	cp, err := Decode([]byte("# built by seqindex\nOrder 7\nFill2\t3\nColour blue\n\nCount   -1\nLevel 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cp.Order)
	assert.Equal(t, 3, cp.Fill2)
	assert.Equal(t, 0, cp.Fill)
	assert.Equal(t, int64(-1), cp.Count)
	assert.Equal(t, 2, cp.Level)
	assert.Equal(t, "", cp.Kind)
}

func TestDecodeBadValue(t *testing.T) {
	_, err := Decode([]byte("Order x\n"))
	assert.Error(t, err)

	_, err = Decode([]byte("Count\n"))
	assert.Error(t, err)
}

func TestTornMarker(t *testing.T) {
	cp := Checkpoint{Order: 5, Fill: 4, Kind: "id", Totsize: 1024, Torn: "corrupt index:\n page 512 bad type"}
	data := Encode(cp)
	assert.Contains(t, string(data), "Torn      corrupt index: page 512 bad type\n")
	assert.Contains(t, string(data), "Totsize   1024\n")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "corrupt index: page 512 bad type", got.Torn)
	assert.Equal(t, int64(1024), got.Totsize)

	got, err = Decode(Encode(Checkpoint{Order: 5}))
	require.NoError(t, err)
	assert.Empty(t, got.Torn)
}
