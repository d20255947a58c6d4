package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
)

// Job describes one output archive to assemble.
type Job struct {
	// Ordinal is the 1-based partition number, used in error reporting.
	Ordinal    int
	OutputPath string
	// Files are paths relative to the extraction root, copied verbatim at
	// the same relative location.
	Files []string
	// ManifestRelPath is where the filtered manifest is written inside the
	// archive; ManifestModTime keeps the entry deterministic across runs.
	ManifestRelPath string
	Manifest        []byte
	ManifestModTime time.Time
}

// Assemble writes one output archive. Files already present in Files that
// collide with the manifest path are skipped in favor of the filtered
// manifest bytes.
func Assemble(root string, job Job) error {
	out, err := os.Create(job.OutputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := newZipWriter(out)

	seen := make(map[string]struct{}, len(job.Files))
	for _, rel := range job.Files {
		if rel == job.ManifestRelPath {
			continue
		}
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		if err := addFile(zw, root, rel); err != nil {
			return err
		}
	}

	header := &zip.FileHeader{
		Name:     filepath.ToSlash(job.ManifestRelPath),
		Method:   zip.Deflate,
		Modified: job.ManifestModTime,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := w.Write(job.Manifest); err != nil {
		return fmt.Errorf("write manifest entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}

// Pack writes every file under root into a new archive at outputPath,
// preserving paths relative to root.
func Pack(root, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := newZipWriter(out)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addFile(zw, root, rel)
	})
	if err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}

func newZipWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return zw
}

func addFile(zw *zip.Writer, root, rel string) error {
	path := filepath.Join(root, rel)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", rel, err)
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", rel, err)
	}
	return nil
}
