package inventory

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docsplit/internal/logging"
)

// Page is one continuation page of a multi-page document.
type Page struct {
	// RelPath is relative to the extraction root.
	RelPath string
	Number  int
	Size    int64
}

// Document is one logical unit of assignment: a primary page file, its
// metadata record, and any continuation pages. Constructed once per run and
// immutable afterwards.
type Document struct {
	// Name is the metadata file stem, e.g. "invoice1.jpg" or "contract.pdf".
	Name            string
	PrimaryRelPath  string
	PrimarySize     int64
	MetadataRelPath string
	MetadataSize    int64
	Pages           []Page
}

// TotalSize sums the primary, metadata, and continuation page sizes.
func (d Document) TotalSize() int64 {
	total := d.PrimarySize + d.MetadataSize
	for _, page := range d.Pages {
		total += page.Size
	}
	return total
}

// Inventory is the ordered sequence of documents plus the sibling-path index
// used at assembly time. Order is the enumeration order of the metadata
// directory and is preserved into partition assignment.
type Inventory struct {
	Documents []Document

	siblings map[string][]string
}

// Names returns document names in inventory order.
func (inv *Inventory) Names() []string {
	names := make([]string, len(inv.Documents))
	for i, doc := range inv.Documents {
		names[i] = doc.Name
	}
	return names
}

// SiblingPaths returns every file in the source tree whose base name contains
// the document name, relative to the extraction root. This deliberately loose
// containment match mirrors the export naming convention: it picks up the
// primary file, the metadata file, continuation pages, and any sibling files
// that share the document name.
func (inv *Inventory) SiblingPaths(name string) []string {
	return inv.siblings[name]
}

// BuildOptions controls integrity handling during discovery.
type BuildOptions struct {
	// Strict makes a metadata entry without a matching primary file fatal.
	// When false the document is skipped and reported.
	Strict bool
}

// multiPageExtensions is the allow-list of document extensions that may have
// continuation pages. Other documents get an empty page list even when files
// happen to match the page naming pattern.
var multiPageExtensions = map[string]struct{}{
	".pdf":  {},
	".tif":  {},
	".tiff": {},
}

// Build scans the extracted tree and produces the inventory. root is the
// extraction root all relative paths are computed against; imagesDir and
// latestDir are the primary-file and metadata directories beneath it. The
// returned slice lists documents skipped in lenient mode.
func Build(root, imagesDir, latestDir string, opts BuildOptions, logger *slog.Logger) (*Inventory, []string, error) {
	logger = logging.NewComponentLogger(logger, "inventory")

	images, err := readSizes(imagesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan images directory: %w", err)
	}

	metadataEntries, err := os.ReadDir(latestDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan metadata directory: %w", err)
	}

	inv := &Inventory{}
	var skipped []string
	for _, entry := range metadataEntries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, nil, fmt.Errorf("stat metadata file %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		metadataRel, err := filepath.Rel(root, filepath.Join(latestDir, entry.Name()))
		if err != nil {
			return nil, nil, err
		}

		primarySize, ok := images[name]
		if !ok {
			if opts.Strict {
				return nil, nil, fmt.Errorf("no primary file for document %q in %s", name, imagesDir)
			}
			logger.Warn("skipping document without primary file", logging.String(logging.FieldDocument, name))
			skipped = append(skipped, name)
			continue
		}
		primaryRel, err := filepath.Rel(root, filepath.Join(imagesDir, name))
		if err != nil {
			return nil, nil, err
		}

		doc := Document{
			Name:            name,
			PrimaryRelPath:  primaryRel,
			PrimarySize:     primarySize,
			MetadataRelPath: metadataRel,
			MetadataSize:    info.Size(),
			Pages:           groupPages(root, imagesDir, name, images),
		}
		inv.Documents = append(inv.Documents, doc)
	}

	if err := inv.indexSiblings(root); err != nil {
		return nil, nil, err
	}

	logger.Debug("inventory built",
		logging.Int("documents", len(inv.Documents)),
		logging.Int("skipped", len(skipped)))
	return inv, skipped, nil
}

// groupPages attaches continuation pages for multi-page documents. Matching
// anchors on the literal document name followed by an underscore so "abc"
// never swallows pages belonging to "abc2".
func groupPages(root, imagesDir, name string, images map[string]int64) []Page {
	if _, ok := multiPageExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
		return nil
	}

	var pages []Page
	prefix := name + "_"
	for imageName, size := range images {
		rest, ok := strings.CutPrefix(imageName, prefix)
		if !ok {
			continue
		}
		number, ok := pageNumber(rest)
		if !ok {
			continue
		}
		rel, err := filepath.Rel(root, filepath.Join(imagesDir, imageName))
		if err != nil {
			continue
		}
		pages = append(pages, Page{RelPath: rel, Number: number, Size: size})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages
}

// pageNumber parses the "<digits>.jpg" tail of a continuation page name.
func pageNumber(rest string) (int, bool) {
	digits, ok := strings.CutSuffix(rest, ".jpg")
	if !ok || digits == "" {
		return 0, false
	}
	number := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
		number = number*10 + int(r-'0')
	}
	return number, true
}

func (inv *Inventory) indexSiblings(root string) error {
	inv.siblings = make(map[string][]string, len(inv.Documents))
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
		base := filepath.Base(path)
		for _, doc := range inv.Documents {
			if strings.Contains(base, doc.Name) {
				inv.siblings[doc.Name] = append(inv.siblings[doc.Name], rel)
			}
		}
		return nil
	})
}

func readSizes(dir string) (map[string]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int64, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		sizes[entry.Name()] = info.Size()
	}
	return sizes, nil
}
