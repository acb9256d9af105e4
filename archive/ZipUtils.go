package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Entry is one member of an archive: a local file or an in-memory content.
type Entry struct {
	Name    string
	Path    string
	Content []byte
}

// CreateZipArchive writes entries to target in the given order and returns the archive size.
func CreateZipArchive(target string, entries []Entry) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive %s: %w", target, err)
	}
	zw := zip.NewWriter(f)
	for _, entry := range entries {
		if entry.Path != "" {
			err = AddLocalFileToZip(zw, entry.Name, entry.Path)
		} else {
			err = AddFileToZip(zw, entry.Name, entry.Content)
		}
		if err != nil {
			zw.Close()
			f.Close()
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to finalize archive %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func AddLocalFileToZip(zw *zip.Writer, name string, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for archiving: %w", path, err)
	}
	defer src.Close()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return nil
}

func AddFileToZip(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
