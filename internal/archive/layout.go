package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"docsplit/internal/manifest"
)

// Conventional names inside an export archive.
const (
	ImagesDirName = "images"
	LatestDirName = "latest"
	SchemaName    = "schema.json"
)

// Layout locates the export contents inside an extracted tree. All paths are
// absolute; Root is the extraction root relative paths are computed against.
type Layout struct {
	Root         string
	ContentDir   string
	ImagesDir    string
	LatestDir    string
	SchemaPath   string
	ManifestPath string
}

// SchemaRelPath returns the schema path relative to the extraction root.
func (l *Layout) SchemaRelPath() (string, error) {
	return filepath.Rel(l.Root, l.SchemaPath)
}

// ManifestRelPath returns the manifest path relative to the extraction root.
func (l *Layout) ManifestRelPath() (string, error) {
	return filepath.Rel(l.Root, l.ManifestPath)
}

// DiscoverLayout walks down from root until it finds the directory holding
// the images directory. Exports are sometimes wrapped in one or more levels
// of enclosing directories, so each level without an images entry descends
// into its first subdirectory.
func DiscoverLayout(root string) (*Layout, error) {
	dir := root
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scan extracted tree: %w", err)
		}

		if containsDir(entries, ImagesDirName) {
			layout := &Layout{
				Root:         root,
				ContentDir:   dir,
				ImagesDir:    filepath.Join(dir, ImagesDirName),
				LatestDir:    filepath.Join(dir, LatestDirName),
				SchemaPath:   filepath.Join(dir, SchemaName),
				ManifestPath: filepath.Join(dir, manifest.FileName),
			}
			return layout, layout.verify()
		}

		next := firstDir(entries)
		if next == "" {
			return nil, fmt.Errorf("no %s directory found under %s", ImagesDirName, root)
		}
		dir = filepath.Join(dir, next)
	}
}

func (l *Layout) verify() error {
	for _, required := range []struct {
		path string
		dir  bool
	}{
		{l.ImagesDir, true},
		{l.LatestDir, true},
		{l.SchemaPath, false},
		{l.ManifestPath, false},
	} {
		info, err := os.Stat(required.path)
		if err != nil {
			return fmt.Errorf("required archive member %s: %w", filepath.Base(required.path), err)
		}
		if info.IsDir() != required.dir {
			return fmt.Errorf("archive member %s has unexpected type", filepath.Base(required.path))
		}
	}
	return nil
}

func containsDir(entries []os.DirEntry, name string) bool {
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() == name {
			return true
		}
	}
	return false
}

func firstDir(entries []os.DirEntry) string {
	for _, entry := range entries {
		if entry.IsDir() {
			return entry.Name()
		}
	}
	return ""
}
