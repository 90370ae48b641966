package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Writer validates artifacts against a registry schema and writes them
// to disk atomically. This backs the `nvst write-json` command.
type Writer struct {
	registry *Registry
	fs       afero.Fs
}

// NewWriter creates a [Writer] over the given filesystem.
func NewWriter(registry *Registry, fs afero.Fs) *Writer {
	return &Writer{registry: registry, fs: fs}
}

// Write validates data against the named schema and writes it
// pretty-printed to outPath (write to temp, then rename). Parent
// directories are created as needed. Invalid artifacts are rejected
// before anything touches disk.
func (w *Writer) Write(schemaName, outPath string, data []byte) error {
	if err := w.registry.Validate(schemaName, data); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format artifact: %w", err)
	}
	pretty.WriteByte('\n')

	if dir := filepath.Dir(outPath); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	tmpPath := outPath + ".tmp"
	if err := afero.WriteFile(w.fs, tmpPath, pretty.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := w.fs.Rename(tmpPath, outPath); err != nil {
		w.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	return nil
}
