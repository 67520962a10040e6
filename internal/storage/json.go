package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"corePools/internal/model"
)

// JSONFile writes core pools as indented JSON, replacing the file on every run.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the output path.
func (s *JSONFile) Path() string {
	return s.path
}

// PutCorePools writes the snapshot pools. The previous file stays in place until
// the new content is fully written.
func (s *JSONFile) PutCorePools(_ context.Context, snapshot model.Snapshot) error {
	data, err := EncodeCorePools(snapshot.Pools)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write output tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// EncodeCorePools renders pools with 2-space indentation and sorted keys.
func EncodeCorePools(pools model.CorePools) ([]byte, error) {
	if pools == nil {
		pools = model.CorePools{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pools); err != nil {
		return nil, fmt.Errorf("marshal core pools: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadCorePools loads a file previously written by JSONFile.
func ReadCorePools(path string) (model.CorePools, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read core pools: %w", err)
	}
	var pools model.CorePools
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("parse core pools: %w", err)
	}
	return pools, nil
}
