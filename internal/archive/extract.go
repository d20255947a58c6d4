package archive

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docsplit/internal/fileutil"
)

// Extract unpacks zipPath into destDir, preserving entry modification times.
// Entry names that would escape destDir are rejected.
func Extract(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if err := extractEntry(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target, err := sanitizePath(destDir, entry.Name)
	if err != nil {
		return err
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	if err := fileutil.WriteFrom(target, rc, 0o644); err != nil {
		return fmt.Errorf("write entry %s: %w", entry.Name, err)
	}

	// Carry the archived timestamp so output archives built from this tree
	// are byte-identical across repeated runs.
	if !entry.Modified.IsZero() {
		if err := os.Chtimes(target, entry.Modified, entry.Modified); err != nil {
			return fmt.Errorf("restore mtime for %s: %w", entry.Name, err)
		}
	}
	return nil
}

func sanitizePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return filepath.Join(destDir, cleaned), nil
}
