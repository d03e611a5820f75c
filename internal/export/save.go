package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Save writes f into dir on fs and returns the written path. The data is
// written to a temporary file first and renamed into place, so a failed
// write never leaves a partial file behind.
func Save(fs afero.Fs, dir string, f File) (string, error) {
	if f.Name == "" || strings.ContainsAny(f.Name, `/\`) {
		return "", fmt.Errorf("invalid file name %q", f.Name)
	}
	if dir == "" {
		dir = "."
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+f.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(f.Data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = fs.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", f.Name, err)
	}

	path := filepath.Join(dir, f.Name)
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return "", fmt.Errorf("rename %s: %w", f.Name, err)
	}
	if err := fs.Chmod(path, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", f.Name, err)
	}
	return path, nil
}
