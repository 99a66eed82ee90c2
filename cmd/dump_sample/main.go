// dump_sample runs the seed and dumps every index it built into one text
// file, cmd/sample_run_output.txt. Run from anywhere inside the repo:
// go run ./cmd/dump_sample
package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
)

const sampleDir = "databases/sample"

func main() {
	root, err := findModuleRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "locate module root: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(root, "cmd", "sample_run_output.txt")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	dbDir := filepath.Join(root, sampleDir)
	if err := os.RemoveAll(dbDir); err != nil {
		fmt.Fprintf(out, "clean %s: %v\n", dbDir, err)
	}

	section(out, "SEED")
	seed := exec.Command("go", "run", "./cmd/seed")
	seed.Dir = root
	seed.Stdout, seed.Stderr = out, out
	if err := seed.Run(); err != nil {
		fmt.Fprintf(out, "seed failed: %v\n", err)
	}

	paths, _ := filepath.Glob(filepath.Join(dbDir, "*."+indexfile.IDExt))
	kwPaths, _ := filepath.Glob(filepath.Join(dbDir, "*."+indexfile.KeywordExt))
	for _, p := range append(paths, kwPaths...) {
		section(out, "INSPECT "+filepath.Base(p))
		if err := dump(out, p); err != nil {
			fmt.Fprintf(out, "inspect failed: %v\n", err)
		}
	}
	fmt.Printf("Output written to %s\n", outPath)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n========== %s ==========\n", title)
}

// dump writes the page dump of one index; keyword indexes get their bucket
// entries too since those hold the secondary tree roots.
func dump(w io.Writer, path string) error {
	dir := filepath.Dir(path)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	name := strings.TrimSuffix(filepath.Base(path), "."+ext)

	if ext == indexfile.IDExt {
		ix, err := indexfile.OpenIDIndex(dir, name, indexfile.ModeRead, indexfile.Options{})
		if err != nil {
			return err
		}
		defer ix.Close()
		return ix.Tree().Inspect(w, false)
	}
	kx, err := indexfile.OpenKeywordIndex(dir, name, indexfile.ModeRead, indexfile.Options{})
	if err != nil {
		return err
	}
	defer kx.Close()
	return kx.Tree().Inspect(w, true)
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		up := filepath.Dir(dir)
		if up == dir {
			return "", fmt.Errorf("no go.mod above %s", dir)
		}
		dir = up
	}
}
