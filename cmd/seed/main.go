// Seed program: writes a synthetic flat file with repeated ids and builds
// database "sample" over it, then runs a few queries.
// Run: go run ./cmd/seed
// Then inspect: databases/sample/ (sample.fa, id.xid, des.xkw and their parameter files).
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	storageengine "SeqIndex/storage_engine"
)

const (
	baseDir = "databases/sample"
	records = 2000
)

var words = []string{
	"hemoglobin", "alpha", "beta", "kinase", "receptor", "protein", "binding",
	"domain", "transferase", "putative", "membrane", "zinc", "finger", "subunit",
}

func main() {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	flat := filepath.Join(baseDir, "sample.fa")
	if err := writeFlat(flat); err != nil {
		log.Fatalf("write flat file: %v", err)
	}

	opts := indexfile.DefaultOptions()
	opts.Order, opts.Fill = 8, 6 // small nodes so the trees get some height
	se, err := storageengine.NewStorageEngine(baseDir, storageengine.Options{Index: opts})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer se.Close()

	st, err := se.Build(context.Background(), flat)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	fmt.Printf("built dbno %d: %d records, %d keyword links\n", st.DBNo, st.Records, st.Keywords)

	recs, err := se.Lookup("SQ00042")
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	fmt.Printf("SQ00042 occurs %d times\n", len(recs))
	for _, r := range recs {
		fmt.Printf("  dbno=%d offset=%d\n", r.DBNo, r.Offset)
	}

	recs, err = se.Search("SQ0001?")
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	fmt.Printf("SQ0001? matches %d occurrences\n", len(recs))

	ids, err := se.Keyword("zinc")
	if err != nil {
		log.Fatalf("keyword: %v", err)
	}
	fmt.Printf("zinc appears with %d ids\n", len(ids))

	reports, err := se.Check()
	if err != nil {
		log.Fatalf("check: %v", err)
	}
	for name, r := range reports {
		fmt.Printf("check %s: %d trees, %d entries\n", name, r.Trees, r.Entries)
	}
}

// writeFlat writes records whose ids repeat: every id under 100 occurs
// several times so duplicate chains get built.
func writeFlat(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rng := rand.New(rand.NewPCG(1, 2))
	w := bufio.NewWriter(f)
	for i := 0; i < records; i++ {
		id := i
		if i%4 == 0 {
			id = rng.IntN(100)
		}
		desc := make([]string, 2+rng.IntN(4))
		for j := range desc {
			desc[j] = words[rng.IntN(len(words))]
		}
		fmt.Fprintf(w, ">SQ%05d %s\n", id, strings.Join(desc, " "))
		seq := make([]byte, 60)
		for j := range seq {
			seq[j] = "ACDEFGHIKLMNPQRSTVWY"[rng.IntN(20)]
		}
		fmt.Fprintf(w, "%s\n", seq)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
