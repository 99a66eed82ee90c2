// Inspect an index file (.xid or .xkw) page by page.
// Usage: go run ./cmd/inspect_idx [-entries] <path-to-index>
// Example: go run ./cmd/inspect_idx -entries db/id.xid
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	indexfile "SeqIndex/storage_engine/access/indexfile_manager"

	"github.com/dustin/go-humanize"
)

func main() {
	args := os.Args[1:]
	withEntries := false
	if len(args) > 0 && args[0] == "-entries" {
		withEntries = true
		args = args[1:]
	}
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-entries] <index.xid|index.xkw>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s -entries db/id.xid\n", os.Args[0])
		os.Exit(1)
	}
	if err := inspect(args[0], withEntries); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(path string, withEntries bool) error {
	dir := filepath.Dir(path)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	name := strings.TrimSuffix(filepath.Base(path), "."+ext)

	switch ext {
	case indexfile.IDExt:
		ix, err := indexfile.OpenIDIndex(dir, name, indexfile.ModeRead, indexfile.Options{})
		if err != nil {
			return err
		}
		defer ix.Close()
		header(ix.Stats())
		return ix.Tree().Inspect(os.Stdout, withEntries)
	case indexfile.KeywordExt:
		kx, err := indexfile.OpenKeywordIndex(dir, name, indexfile.ModeRead, indexfile.Options{})
		if err != nil {
			return err
		}
		defer kx.Close()
		header(kx.Stats())
		return kx.Tree().Inspect(os.Stdout, withEntries)
	default:
		return fmt.Errorf("unknown index extension %q", ext)
	}
}

func header(st indexfile.IndexStats) {
	fmt.Printf("Index %s (%s): %s entries, level %d, %s on disk\n",
		st.Name, st.Kind, humanize.Comma(st.Count), st.Level, humanize.IBytes(uint64(st.FileSize)))
}
