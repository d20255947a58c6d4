package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// Doc describes one document in a synthetic export tree.
type Doc struct {
	// Name is the document name, including its extension (e.g. "scan1.jpg"
	// or "contract.pdf").
	Name         string
	PrimarySize  int64
	MetadataSize int64
	// PageSizes adds continuation pages <Name>_1.jpg, <Name>_2.jpg, ...
	PageSizes []int64
	// Subset defaults to TRAIN.
	Subset string
}

// WriteExportTree lays out an extracted export under root: images/, latest/,
// schema.json, and split.csv in the shape the splitter consumes.
func WriteExportTree(t testing.TB, root string, docs []Doc) {
	t.Helper()

	for _, dir := range []string{"images", "latest"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for _, doc := range docs {
		WriteFile(t, filepath.Join(root, "images", doc.Name), doc.PrimarySize)
		WriteFile(t, filepath.Join(root, "latest", doc.Name+".json"), doc.MetadataSize)
		for i, size := range doc.PageSizes {
			page := fmt.Sprintf("%s_%d.jpg", doc.Name, i+1)
			WriteFile(t, filepath.Join(root, "images", page), size)
		}
	}

	if err := os.WriteFile(filepath.Join(root, "schema.json"), []byte(`{"extraction": []}`), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	lines := []string{"files\tsubset"}
	for _, doc := range docs {
		subset := doc.Subset
		if subset == "" {
			subset = "TRAIN"
		}
		lines = append(lines, doc.Name+"\t"+subset)
	}
	manifest := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(root, "split.csv"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}
