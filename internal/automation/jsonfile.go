package automation

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// readJSON decodes the file at path into v. A missing file is reported with
// an error satisfying errors.Is(err, os.ErrNotExist).
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &StorageError{Op: "read", Path: path, Err: eris.Wrap(err, "read store file")}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &StorageError{Op: "decode", Path: path, Err: eris.Wrap(err, "decode store file")}
	}
	return nil
}

// writeJSON replaces the file at path with the JSON encoding of v. The data is
// written to a temporary file in the same directory and renamed into place.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: path, Err: eris.Wrap(err, "encode store file")}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "write", Path: path, Err: eris.Wrapf(err, "create directory %s", dir)}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: eris.Wrap(err, "create temp file")}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "write", Path: path, Err: eris.Wrap(err, "write temp file")}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write", Path: path, Err: eris.Wrap(err, "close temp file")}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &StorageError{Op: "write", Path: path, Err: eris.Wrap(err, "replace store file")}
	}
	return nil
}
