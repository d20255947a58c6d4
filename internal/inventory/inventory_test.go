package inventory

import (
	"path/filepath"
	"testing"

	"docsplit/internal/logging"
	"docsplit/internal/testsupport"
)

func buildTree(t *testing.T, docs []testsupport.Doc) string {
	t.Helper()
	root := t.TempDir()
	testsupport.WriteExportTree(t, root, docs)
	return root
}

func TestBuildSumsDocumentSizes(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "scan1.jpg", PrimarySize: 100, MetadataSize: 20},
		{Name: "contract.pdf", PrimarySize: 50, MetadataSize: 10, PageSizes: []int64{30, 40}},
	})

	inv, skipped, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: true}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped: %v", skipped)
	}
	if len(inv.Documents) != 2 {
		t.Fatalf("documents: got %d, want 2", len(inv.Documents))
	}

	byName := make(map[string]Document)
	for _, doc := range inv.Documents {
		byName[doc.Name] = doc
	}

	if got := byName["scan1.jpg"].TotalSize(); got != 120 {
		t.Fatalf("scan1.jpg total: got %d, want 120", got)
	}
	pdf := byName["contract.pdf"]
	if got := pdf.TotalSize(); got != 130 {
		t.Fatalf("contract.pdf total: got %d, want 130", got)
	}
	if len(pdf.Pages) != 2 {
		t.Fatalf("contract.pdf pages: %v", pdf.Pages)
	}
	if pdf.Pages[0].Number != 1 || pdf.Pages[1].Number != 2 {
		t.Fatalf("page order: %v", pdf.Pages)
	}
}

func TestBuildOrderFollowsMetadataDirectory(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "b.jpg", PrimarySize: 1, MetadataSize: 1},
		{Name: "a.jpg", PrimarySize: 1, MetadataSize: 1},
		{Name: "c.jpg", PrimarySize: 1, MetadataSize: 1},
	})

	inv, _, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: true}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	// Directory enumeration is lexical, so the order is stable across runs.
	names := inv.Names()
	want := []string{"a.jpg", "b.jpg", "c.jpg"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order: got %v, want %v", names, want)
		}
	}
}

func TestBuildSinglePageDocumentsGetNoPages(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "photo.jpg", PrimarySize: 10, MetadataSize: 5},
	})
	// A file matching the page pattern for a non-multi-page document must not
	// be grouped.
	testsupport.WriteFile(t, filepath.Join(root, "images", "photo.jpg_1.jpg"), 7)

	inv, _, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: true}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(inv.Documents[0].Pages) != 0 {
		t.Fatalf("unexpected pages: %v", inv.Documents[0].Pages)
	}
	if inv.Documents[0].TotalSize() != 15 {
		t.Fatalf("total: got %d, want 15", inv.Documents[0].TotalSize())
	}
}

func TestBuildPageMatchingAnchorsOnFullName(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "abc.pdf", PrimarySize: 10, MetadataSize: 5, PageSizes: []int64{1}},
		{Name: "abc2.pdf", PrimarySize: 10, MetadataSize: 5, PageSizes: []int64{2, 3}},
	})

	inv, _, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: true}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	byName := make(map[string]Document)
	for _, doc := range inv.Documents {
		byName[doc.Name] = doc
	}
	if got := len(byName["abc.pdf"].Pages); got != 1 {
		t.Fatalf("abc.pdf swallowed pages: %v", byName["abc.pdf"].Pages)
	}
	if got := len(byName["abc2.pdf"].Pages); got != 2 {
		t.Fatalf("abc2.pdf pages: %v", byName["abc2.pdf"].Pages)
	}
}

func TestBuildStrictFailsOnMissingPrimary(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "present.jpg", PrimarySize: 1, MetadataSize: 1},
	})
	testsupport.WriteFile(t, filepath.Join(root, "latest", "orphan.jpg.json"), 9)

	_, _, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: true}, logging.NewNop())
	if err == nil {
		t.Fatal("expected error for metadata without primary file")
	}
}

func TestBuildLenientSkipsAndReports(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "present.jpg", PrimarySize: 1, MetadataSize: 1},
	})
	testsupport.WriteFile(t, filepath.Join(root, "latest", "orphan.jpg.json"), 9)

	inv, skipped, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: false}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(inv.Documents) != 1 || inv.Documents[0].Name != "present.jpg" {
		t.Fatalf("documents: %v", inv.Names())
	}
	if len(skipped) != 1 || skipped[0] != "orphan.jpg" {
		t.Fatalf("skipped: %v", skipped)
	}
}

func TestSiblingPathsUseSubstringContainment(t *testing.T) {
	root := buildTree(t, []testsupport.Doc{
		{Name: "doc.pdf", PrimarySize: 10, MetadataSize: 5, PageSizes: []int64{1}},
	})
	// A sibling file sharing the document name substring travels with it.
	testsupport.WriteFile(t, filepath.Join(root, "images", "doc.pdf.thumb"), 3)

	inv, _, err := Build(root, filepath.Join(root, "images"), filepath.Join(root, "latest"), BuildOptions{Strict: true}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	paths := inv.SiblingPaths("doc.pdf")
	got := make(map[string]bool, len(paths))
	for _, p := range paths {
		got[p] = true
	}
	want := []string{
		filepath.Join("images", "doc.pdf"),
		filepath.Join("images", "doc.pdf_1.jpg"),
		filepath.Join("images", "doc.pdf.thumb"),
		filepath.Join("latest", "doc.pdf.json"),
	}
	for _, p := range want {
		if !got[p] {
			t.Fatalf("missing sibling %s in %v", p, paths)
		}
	}
}
