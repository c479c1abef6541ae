package features

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

const snapshotVersion = 1

type snapshot struct {
	Version int
	IDs     []string
	Columns []Column
}

// SaveSnapshot writes t to path. The file is replaced atomically.
func SaveSnapshot(path string, t *Table) error {
	snap := snapshot{Version: snapshotVersion, IDs: t.ids, Columns: make([]Column, len(t.columns))}
	for i, c := range t.columns {
		snap.Columns[i] = *c
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSnapshot reads a table written by [SaveSnapshot].
func LoadSnapshot(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	t := &Table{ids: snap.IDs, columns: make([]*Column, len(snap.Columns))}
	for i := range snap.Columns {
		c := snap.Columns[i]
		if n := columnLen(&c); n != len(t.ids) {
			return nil, fmt.Errorf("snapshot column %q has %d rows, want %d", c.Name, n, len(t.ids))
		}
		t.columns[i] = &c
	}
	return t, nil
}

func columnLen(c *Column) int {
	switch c.Kind {
	case Numeric:
		return len(c.Floats)
	case Label:
		return len(c.Ints)
	default:
		return len(c.Strings)
	}
}
