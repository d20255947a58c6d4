package splitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docsplit/internal/logging"
	"docsplit/internal/manifest"
	"docsplit/internal/testsupport"
)

func writeExportZip(t *testing.T, docs []testsupport.Doc) string {
	t.Helper()
	tree := t.TempDir()
	testsupport.WriteExportTree(t, tree, docs)
	zipPath := filepath.Join(t.TempDir(), "export.zip")
	testsupport.ZipDirectory(t, tree, zipPath)
	return zipPath
}

func TestSplitProducesBoundedArchives(t *testing.T) {
	// schema.json is 18 bytes and split.csv is 13 + 15*3 bytes, so the shared
	// overhead is small against a 4000-byte ceiling.
	zipPath := writeExportZip(t, []testsupport.Doc{
		{Name: "one.jpg", PrimarySize: 1500, MetadataSize: 100},
		{Name: "three.jpg", PrimarySize: 1500, MetadataSize: 100},
		{Name: "two.jpg", PrimarySize: 1500, MetadataSize: 100},
	})
	outDir := t.TempDir()

	res, err := Split(context.Background(), logging.NewNop(), zipPath, Options{
		ByteCeiling:     4000,
		DocumentCeiling: 100,
		OutputDir:       outDir,
		Workers:         2,
		Strict:          true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.Documents != 3 {
		t.Fatalf("documents: got %d, want 3", res.Documents)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("outputs: got %d, want 2: %+v", len(res.Outputs), res.Outputs)
	}
	if res.Outputs[0].Documents != 2 || res.Outputs[1].Documents != 1 {
		t.Fatalf("document distribution: %+v", res.Outputs)
	}
	for i, out := range res.Outputs {
		if out.Ordinal != i+1 {
			t.Fatalf("ordinals: %+v", res.Outputs)
		}
		want := filepath.Join(outDir, fmt.Sprintf("export_%d.zip", i+1))
		if out.Path != want {
			t.Fatalf("path: got %s, want %s", out.Path, want)
		}
		if _, err := os.Stat(out.Path); err != nil {
			t.Fatalf("missing output: %v", err)
		}
	}
}

func TestSplitArchiveContentsAreSelfContained(t *testing.T) {
	zipPath := writeExportZip(t, []testsupport.Doc{
		{Name: "big.pdf", PrimarySize: 3000, MetadataSize: 100, PageSizes: []int64{200, 200}},
		{Name: "small.jpg", PrimarySize: 100, MetadataSize: 50, Subset: "TEST"},
	})
	outDir := t.TempDir()

	res, err := Split(context.Background(), logging.NewNop(), zipPath, Options{
		ByteCeiling:     2000,
		DocumentCeiling: 100,
		OutputDir:       outDir,
		Workers:         1,
		Strict:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("outputs: %+v", res.Outputs)
	}

	// Inventory order is lexical on the metadata directory: big.pdf first.
	first := testsupport.ZipEntryNames(t, res.Outputs[0].Path)
	wantFirst := []string{
		"schema.json",
		"images/big.pdf",
		"images/big.pdf_1.jpg",
		"images/big.pdf_2.jpg",
		"latest/big.pdf.json",
		"split.csv",
	}
	assertSameEntries(t, first, wantFirst)

	second := testsupport.ZipEntryNames(t, res.Outputs[1].Path)
	wantSecond := []string{
		"schema.json",
		"images/small.jpg",
		"latest/small.jpg.json",
		"split.csv",
	}
	assertSameEntries(t, second, wantSecond)

	man, err := manifest.Parse(strings.NewReader(string(testsupport.ReadZipEntry(t, res.Outputs[1].Path, "split.csv"))))
	if err != nil {
		t.Fatal(err)
	}
	if len(man.Rows) != 1 || man.Rows[0].Document != "small.jpg" || man.Rows[0].Subset != "TEST" {
		t.Fatalf("filtered manifest rows: %+v", man.Rows)
	}
}

func TestSplitIsIdempotent(t *testing.T) {
	zipPath := writeExportZip(t, []testsupport.Doc{
		{Name: "a.jpg", PrimarySize: 500, MetadataSize: 50},
		{Name: "b.jpg", PrimarySize: 500, MetadataSize: 50},
	})

	opts := Options{ByteCeiling: 700, DocumentCeiling: 100, Workers: 2, Strict: true}

	opts.OutputDir = t.TempDir()
	first, err := Split(context.Background(), logging.NewNop(), zipPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.OutputDir = t.TempDir()
	second, err := Split(context.Background(), logging.NewNop(), zipPath, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Outputs) != len(second.Outputs) {
		t.Fatalf("output counts differ: %d vs %d", len(first.Outputs), len(second.Outputs))
	}
	for i := range first.Outputs {
		a, err := os.ReadFile(first.Outputs[i].Path)
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(second.Outputs[i].Path)
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Fatalf("archive %d differs between runs", first.Outputs[i].Ordinal)
		}
	}
}

func TestSplitLenientReportsSkippedDocuments(t *testing.T) {
	tree := t.TempDir()
	testsupport.WriteExportTree(t, tree, []testsupport.Doc{
		{Name: "ok.jpg", PrimarySize: 100, MetadataSize: 10},
	})
	testsupport.WriteFile(t, filepath.Join(tree, "latest", "ghost.jpg.json"), 9)
	zipPath := filepath.Join(t.TempDir(), "export.zip")
	testsupport.ZipDirectory(t, tree, zipPath)

	opts := Options{ByteCeiling: 10_000, DocumentCeiling: 100, Workers: 1}

	opts.OutputDir = t.TempDir()
	opts.Strict = true
	if _, err := Split(context.Background(), logging.NewNop(), zipPath, opts); err == nil {
		t.Fatal("strict run should fail on metadata without a primary file")
	}

	opts.OutputDir = t.TempDir()
	opts.Strict = false
	res, err := Split(context.Background(), logging.NewNop(), zipPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "ghost.jpg" {
		t.Fatalf("skipped: %v", res.Skipped)
	}
	if res.Documents != 1 {
		t.Fatalf("documents: got %d, want 1", res.Documents)
	}
}

func TestSplitRejectsInvalidOptions(t *testing.T) {
	zipPath := writeExportZip(t, []testsupport.Doc{
		{Name: "a.jpg", PrimarySize: 1, MetadataSize: 1},
	})

	cases := []Options{
		{ByteCeiling: 0, DocumentCeiling: 10, OutputDir: t.TempDir()},
		{ByteCeiling: 100, DocumentCeiling: 0, OutputDir: t.TempDir()},
		{ByteCeiling: 100, DocumentCeiling: 10, OutputDir: ""},
	}
	for i, opts := range cases {
		if _, err := Split(context.Background(), logging.NewNop(), zipPath, opts); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}

	if _, err := Split(context.Background(), logging.NewNop(), filepath.Join(t.TempDir(), "missing.zip"), Options{
		ByteCeiling: 100, DocumentCeiling: 10, OutputDir: t.TempDir(),
	}); err == nil {
		t.Fatal("expected error for missing source archive")
	}
}

func TestSplitEmptyExportYieldsSingleArchive(t *testing.T) {
	zipPath := writeExportZip(t, nil)
	outDir := t.TempDir()

	res, err := Split(context.Background(), logging.NewNop(), zipPath, Options{
		ByteCeiling:     1000,
		DocumentCeiling: 10,
		OutputDir:       outDir,
		Workers:         1,
		Strict:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outputs) != 1 || res.Outputs[0].Documents != 0 {
		t.Fatalf("outputs: %+v", res.Outputs)
	}

	names := testsupport.ZipEntryNames(t, res.Outputs[0].Path)
	assertSameEntries(t, names, []string{"schema.json", "split.csv"})
}

func assertSameEntries(t *testing.T, got, want []string) {
	t.Helper()
	gotSet := make(map[string]bool, len(got))
	for _, name := range got {
		gotSet[name] = true
	}
	if len(got) != len(want) {
		t.Fatalf("entries: got %v, want %v", got, want)
	}
	for _, name := range want {
		if !gotSet[name] {
			t.Fatalf("missing entry %s in %v", name, got)
		}
	}
}
