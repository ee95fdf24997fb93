package consumer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileWriter writes to a temporary file next to destPath and renames it into place, so readers
// of destPath never see a partial payload.
type FileWriter struct {
	Overwrite bool
}

var _ Consumer = &FileWriter{}

func (f *FileWriter) Consume(reader io.Reader, destPath string, expectedBytes int64) error {
	if destPath == "" {
		return errors.New("error writing file: no destination")
	}
	if !f.Overwrite {
		if _, err := os.Stat(destPath); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error writing file: %s already exists", destPath)
		}
	}
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*")
	if err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	if err := checkSize(expectedBytes, written); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

func (f *FileWriter) EnableOverwrite() {
	f.Overwrite = true
}
