package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// writeJSON stores v as indented JSON at path, creating parent directories.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// readJSON decodes the file at path into v. A missing file leaves v as it
// is and reports false.
func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// mergeByID appends the entries of src whose id is not yet in dst.
func mergeByID[T any](dst, src []T, id func(T) string) []T {
	out := append([]T(nil), dst...)
	seen := make(map[string]bool, len(dst)+len(src))
	for _, v := range dst {
		seen[id(v)] = true
	}
	for _, v := range src {
		if !seen[id(v)] {
			seen[id(v)] = true
			out = append(out, v)
		}
	}
	return out
}
