// Package subset rewrites an export archive so each metadata record carries
// its dataset subset label inline. Standalone tooling reads the label from the
// metadata record instead of the split manifest, so exported archives need the
// label copied in before they can be imported there.
package subset

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docsplit/internal/archive"
	"docsplit/internal/fileutil"
	"docsplit/internal/logging"
	"docsplit/internal/manifest"
	"docsplit/internal/services"
)

// labelledMarker is dropped from metadata records during patching; the
// standalone importer rejects records that still carry it.
const labelledMarker = "vs_labelled"

// Result summarizes a completed subset rewrite.
type Result struct {
	OutputPath string
	// Patched counts the metadata records rewritten with a subset label.
	Patched int
}

// Process rewrites archivePath into <base>_with_subset.zip next to it. Every
// latest/*.json record loses its labelled marker and gains the subset label
// from the split manifest; a record without a manifest row is fatal.
func Process(logger *slog.Logger, archivePath string) (*Result, error) {
	logger = logging.NewComponentLogger(logger, "subset")

	if _, err := os.Stat(archivePath); err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "subset", "validate", "source archive", err)
	}

	workDir, err := os.MkdirTemp("", "docsplit-subset-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "subset", "prepare workspace", "create temp directory", err)
	}
	defer os.RemoveAll(workDir)

	if err := archive.Extract(archivePath, workDir); err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "subset", "extract", "unpack source archive", err)
	}

	manifestPath, err := findManifest(workDir)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "subset", "locate manifest", "find split manifest", err)
	}
	man, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "subset", "manifest", "parse split manifest", err)
	}
	subsets := man.SubsetByDocument()

	records, err := findMetadataRecords(workDir)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "subset", "locate metadata", "scan metadata records", err)
	}
	logger.Info("patching metadata records",
		logging.Int("records", len(records)),
		logging.String("source", archivePath))

	for _, record := range records {
		if err := patchRecord(record, subsets); err != nil {
			return nil, err
		}
	}

	outputPath := strings.TrimSuffix(archivePath, ".zip") + "_with_subset.zip"
	if err := archive.Pack(workDir, outputPath); err != nil {
		return nil, services.Wrap(services.ErrPartialWrite, "subset", "repack", "write output archive", err)
	}

	logger.Info("archive rewritten",
		logging.String("path", outputPath),
		logging.Int("patched", len(records)))
	return &Result{OutputPath: outputPath, Patched: len(records)}, nil
}

// findManifest returns the first split manifest found anywhere in the tree.
func findManifest(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found != "" {
			return fs.SkipAll
		}
		if !d.IsDir() && d.Name() == manifest.FileName {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no %s found under %s", manifest.FileName, root)
	}
	return found, nil
}

// findMetadataRecords returns every .json file directly inside a directory
// named latest, anywhere in the tree.
func findMetadataRecords(root string) ([]string, error) {
	var records []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) != archive.LatestDirName {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			records = append(records, path)
		}
		return nil
	})
	return records, err
}

func patchRecord(path string, subsets map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrMissingInput, "subset", "patch", "read metadata record", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return services.Wrap(services.ErrIntegrity, "subset", "patch", fmt.Sprintf("decode %s", filepath.Base(path)), err)
	}
	delete(record, labelledMarker)

	name := strings.TrimSuffix(filepath.Base(path), ".json")
	subset, ok := subsets[name]
	if !ok {
		return services.Wrap(services.ErrIntegrity, "subset", "patch", fmt.Sprintf("document %q has no row in the split manifest", name), nil)
	}
	record["subset"] = subset

	// The standalone importer expects three-space indentation.
	out, err := json.MarshalIndent(record, "", "   ")
	if err != nil {
		return services.Wrap(services.ErrIntegrity, "subset", "patch", fmt.Sprintf("encode %s", filepath.Base(path)), err)
	}
	if err := fileutil.WriteFrom(path, strings.NewReader(string(out)), 0o644); err != nil {
		return services.Wrap(services.ErrPartialWrite, "subset", "patch", fmt.Sprintf("rewrite %s", filepath.Base(path)), err)
	}
	return nil
}
