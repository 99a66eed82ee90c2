package checkpoint

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

/*
This file is the main file of the CheckpointManager
A checkpoint is the parameter file of an index, rewritten on every sync so that
a later open knows the tree shape (order, fill, pagesize), its height and the
entry count without walking the tree

Format, one field per line:

	Order     32
	Fill      16
	...

Parsing matches lines by key prefix and ignores anything it does not know.
*/

// fieldWidth pads keys so that values line up.
const fieldWidth = 10

func NewCheckpointManager(path string) *CheckpointManager {
	return &CheckpointManager{checkpointPath: path}
}

func (cm *CheckpointManager) Path() string {
	return cm.checkpointPath
}

// SaveCheckpoint atomically replaces the parameter file with cp.
func (cm *CheckpointManager) SaveCheckpoint(cp Checkpoint) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data := Encode(cp)

	// write temp, fsync, rename over the old file, fsync the directory
	tempPath := cm.checkpointPath + ".tmp"
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create temp parameter file")
	}
	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.Wrap(err, "failed to write temp parameter file")
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.Wrap(err, "failed to sync temp parameter file")
	}
	tempFile.Close()

	if err := os.Rename(tempPath, cm.checkpointPath); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "failed to rename parameter file")
	}

	dir, err := os.Open(filepath.Dir(cm.checkpointPath))
	if err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// LoadCheckpoint reads the parameter file. A missing file is reported as
// such, wrapped, so callers can test it with os.IsNotExist(errors.Cause(err)).
func (cm *CheckpointManager) LoadCheckpoint() (*Checkpoint, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := os.ReadFile(cm.checkpointPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read parameter file %s", cm.checkpointPath)
	}
	cp, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter file %s", cm.checkpointPath)
	}
	return cp, nil
}

// DeleteCheckpoint removes the parameter file
func (cm *CheckpointManager) DeleteCheckpoint() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := os.Remove(cm.checkpointPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete parameter file")
	}
	return nil
}

func Encode(cp Checkpoint) []byte {
	var b bytes.Buffer
	line := func(key string, v interface{}) {
		fmt.Fprintf(&b, "%-*s%v\n", fieldWidth, key, v)
	}
	line("Order", cp.Order)
	line("Fill", cp.Fill)
	line("Pagesize", cp.Pagesize)
	line("Level", cp.Level)
	line("Cachesize", cp.Cachesize)
	line("Order2", cp.Order2)
	line("Fill2", cp.Fill2)
	line("Count", cp.Count)
	line("Kwlimit", cp.Kwlimit)
	if cp.Kind != "" {
		line("Kind", cp.Kind)
	}
	line("Totsize", cp.Totsize)
	if cp.Torn != "" {
		line("Torn", strings.Join(strings.Fields(cp.Torn), " "))
	}
	return b.Bytes()
}

// Decode parses parameter file text. Longer keys are tried first so that
// "Order2" is not taken for "Order".
func Decode(data []byte) (*Checkpoint, error) {
	cp := &Checkpoint{}
	ints := []struct {
		key string
		dst *int
	}{
		{"Order2", &cp.Order2},
		{"Fill2", &cp.Fill2},
		{"Order", &cp.Order},
		{"Fill", &cp.Fill},
		{"Pagesize", &cp.Pagesize},
		{"Level", &cp.Level},
		{"Cachesize", &cp.Cachesize},
		{"Kwlimit", &cp.Kwlimit},
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "Count"):
			v, err := field(line, "Count", lineNo)
			if err != nil {
				return nil, err
			}
			if cp.Count, err = strconv.ParseInt(v, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			continue
		case strings.HasPrefix(line, "Totsize"):
			v, err := field(line, "Totsize", lineNo)
			if err != nil {
				return nil, err
			}
			if cp.Totsize, err = strconv.ParseInt(v, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			continue
		case strings.HasPrefix(line, "Kind"):
			v, err := field(line, "Kind", lineNo)
			if err != nil {
				return nil, err
			}
			cp.Kind = v
			continue
		case strings.HasPrefix(line, "Torn"):
			v, err := field(line, "Torn", lineNo)
			if err != nil {
				return nil, err
			}
			cp.Torn = v
			continue
		}

		for _, f := range ints {
			if !strings.HasPrefix(line, f.key) {
				continue
			}
			v, err := field(line, f.key, lineNo)
			if err != nil {
				return nil, err
			}
			if *f.dst, err = strconv.Atoi(v); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cp, nil
}

func field(line, key string, lineNo int) (string, error) {
	v := strings.TrimSpace(line[len(key):])
	if v == "" {
		return "", errors.Errorf("line %d: %s has no value", lineNo, key)
	}
	return v, nil
}
