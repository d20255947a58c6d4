package recovery

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docsplit/internal/archive"
	"docsplit/internal/fileutil"
	"docsplit/internal/logging"
	"docsplit/internal/services"
)

// Result summarizes a completed recovery export.
type Result struct {
	OutputPath string
	Documents  int
	// Skipped lists documents whose annotation state could not be read.
	Skipped []string
}

var imageExtensions = []string{".jpg", ".png"}

// Export rebuilds an export archive from the legacy workspace at datasetDir.
// outputPath defaults to backup.zip inside datasetDir. Documents with
// unreadable annotation state are skipped and reported, not fatal.
func Export(logger *slog.Logger, datasetDir, outputPath string) (*Result, error) {
	logger = logging.NewComponentLogger(logger, "recovery")

	inputDir := filepath.Join(datasetDir, "input")
	if _, err := os.Stat(inputDir); err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "recover", "validate", "input directory", err)
	}
	if strings.TrimSpace(outputPath) == "" {
		outputPath = filepath.Join(datasetDir, "backup.zip")
	}

	names, err := imageNames(inputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "recover", "scan", "list input images", err)
	}
	logger.Info("recovering documents", logging.Int("candidates", len(names)))

	staging, err := os.MkdirTemp("", "docsplit-recover-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "recover", "prepare workspace", "create temp directory", err)
	}
	defer os.RemoveAll(staging)

	manifestLines := []string{"files\tsubset"}
	var skipped []string
	exported := 0
	for _, name := range names {
		doc, err := loadDocument(logger, datasetDir, name)
		if err == nil {
			doc, err = normalize(doc)
		}
		if err != nil {
			logger.Warn("skipping invalid document",
				logging.String(logging.FieldDocument, name),
				logging.Error(err))
			skipped = append(skipped, name)
			continue
		}
		doc["fname"] = name

		subset := subsetLabel(doc["subset"])
		doc["subset"] = subset
		manifestLines = append(manifestLines, name+"\t"+subset)

		if lang, ok := doc["language"]; ok {
			if _, isString := lang.(string); !isString {
				doc["language"] = ""
			}
		}

		if err := stageDocument(staging, datasetDir, name, doc); err != nil {
			return nil, err
		}
		exported++
	}

	schema, err := schemaData(logger, datasetDir)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(staging, archive.SchemaName), schema); err != nil {
		return nil, services.Wrap(services.ErrPartialWrite, "recover", "schema", "stage schema", err)
	}
	manifest := strings.Join(manifestLines, "\n")
	if err := os.WriteFile(filepath.Join(staging, "split.csv"), []byte(manifest), 0o644); err != nil {
		return nil, services.Wrap(services.ErrPartialWrite, "recover", "manifest", "stage split manifest", err)
	}

	// Pack to a temp name first so an interrupted run never leaves a
	// truncated backup.zip behind.
	tmpPath := outputPath + ".tmp"
	if err := archive.Pack(staging, tmpPath); err != nil {
		return nil, services.Wrap(services.ErrPartialWrite, "recover", "pack", "write backup archive", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, services.Wrap(services.ErrPartialWrite, "recover", "pack", "finalize backup archive", err)
	}

	logger.Info("recovery export complete",
		logging.String("path", outputPath),
		logging.Int("documents", exported),
		logging.Int("skipped", len(skipped)))
	return &Result{OutputPath: outputPath, Documents: exported, Skipped: skipped}, nil
}

// imageNames lists input images grouped by extension, each group sorted, so
// repeated runs enumerate identically.
func imageNames(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ext := range imageExtensions {
		var group []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
				group = append(group, entry.Name())
			}
		}
		sort.Strings(group)
		names = append(names, group...)
	}
	return names, nil
}

// loadDocument reads the annotation state for one image: the processed
// output/<name>.json when present, otherwise the raw input/<name>.box.json.
// A document with neither recovers as an empty record.
func loadDocument(logger *slog.Logger, datasetDir, name string) (map[string]any, error) {
	outputJSON := filepath.Join(datasetDir, "output", name+".json")
	boxJSON := filepath.Join(datasetDir, "input", name+".box.json")

	if data, err := os.ReadFile(outputJSON); err == nil {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(outputJSON), err)
		}
		return doc, nil
	}

	doc := map[string]any{}
	if data, err := os.ReadFile(boxJSON); err == nil {
		words, attrs, err := parseBoxFile(data)
		if err != nil {
			// Legacy raw files are sometimes truncated; recover the image
			// without its words rather than dropping the document.
			logger.Warn("unreadable raw annotation file",
				logging.String(logging.FieldDocument, name),
				logging.Error(err))
		} else {
			for key, value := range attrs {
				doc[key] = value
			}
			doc["words"] = words
		}
	}
	return doc, nil
}

// parseBoxFile decodes a raw annotation file. Document-level attributes are
// stored on the first word and are hoisted out; the newer per-line layout is
// flattened back into a word list.
func parseBoxFile(data []byte) ([]any, map[string]any, error) {
	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, err
	}
	attrs := map[string]any{}
	if len(entries) == 0 {
		return entries, attrs, nil
	}

	first, ok := entries[0].(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("first entry is not an object")
	}
	for src, dst := range map[string]string{
		"angle":        "angle",
		"ocr_language": "ocr_language",
		"batch_name":   "batch",
	} {
		if value, ok := first[src]; ok {
			attrs[dst] = value
			delete(first, src)
		}
	}
	if _, ok := first["text"]; ok {
		words, err := flattenLines(entries)
		return words, attrs, err
	}
	return entries, attrs, nil
}

// flattenLines converts the per-line layout (each entry holds a words list)
// into a flat word list with explicit line numbers.
func flattenLines(lines []any) ([]any, error) {
	var words []any
	for i, entry := range lines {
		line, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("line %d is not an object", i)
		}
		lineWords, ok := line["words"].([]any)
		if !ok {
			return nil, fmt.Errorf("line %d has no words list", i)
		}
		for _, raw := range lineWords {
			word, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("line %d holds a non-object word", i)
			}
			word["line"] = i
			words = append(words, word)
		}
	}
	return words, nil
}

// normalize rewrites a recovered document into the export shape: contiguous
// line numbers, scaled coordinates dropped, words grouped per line and
// ordered left to right.
func normalize(doc map[string]any) (map[string]any, error) {
	words, err := wordList(doc["words"])
	if err != nil {
		return nil, err
	}
	renumberLines(words)

	for _, word := range words {
		delete(word, "vert_scaled")
		delete(word, "x_scaled")
		delete(word, "y_scaled")
		delete(word, "height_scaled")
		if _, ok := word["tag"]; !ok {
			word["tag"] = ""
		}
	}

	byLine := map[int][]map[string]any{}
	var lineIDs []int
	for _, word := range words {
		id := intValue(word["line"])
		if _, seen := byLine[id]; !seen {
			lineIDs = append(lineIDs, id)
		}
		byLine[id] = append(byLine[id], word)
	}
	sort.Ints(lineIDs)

	var lines []string
	grouped := make([][]map[string]any, 0, len(lineIDs))
	for _, id := range lineIDs {
		line := byLine[id]
		sort.SliceStable(line, func(i, j int) bool {
			return firstVertexX(line[i]) < firstVertexX(line[j])
		})
		texts := make([]string, len(line))
		for i, word := range line {
			text, _ := word["description"].(string)
			texts[i] = text
		}
		lines = append(lines, strings.Join(texts, " "))
		grouped = append(grouped, line)
	}

	out := map[string]any{
		"fields": valueOr(doc["fields"], map[string]any{}),
		"items":  valueOr(doc["items"], []any{}),
		"fname":  doc["fname"],
		"lines":  lines,
		"words":  grouped,
		"schema": valueOr(doc["schema"], []any{}),
		"subset": doc["subset"],
	}
	if manualEdit, ok := doc["manual_edit"]; ok {
		out["manual_edit"] = manualEdit
	}
	return out, nil
}

// renumberLines makes line assignment contiguous. Words without a line number
// inherit the previous word's.
func renumberLines(words []map[string]any) {
	prev := 0
	seen := map[int]struct{}{}
	var ids []int
	for _, word := range words {
		if _, ok := word["line"]; !ok {
			word["line"] = prev
		}
		id := intValue(word["line"])
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		prev = id
	}
	sort.Ints(ids)
	remap := make(map[int]int, len(ids))
	for i, id := range ids {
		remap[id] = i
	}
	for _, word := range words {
		word["line"] = remap[intValue(word["line"])]
	}
}

// schemaData loads and strips the legacy schema. A corrupt schema recovers as
// an empty object so the rest of the export still completes.
func schemaData(logger *slog.Logger, datasetDir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(datasetDir, archive.SchemaName))
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "recover", "schema", "read schema", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		logger.Warn("schema file is invalid or corrupted", logging.Error(err))
		return map[string]any{}, nil
	}

	extraction, _ := schema["extraction"].([]any)
	kept := make([]any, 0, len(extraction))
	for _, raw := range extraction {
		field, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if hidden, _ := field["hidden"].(bool); hidden {
			continue
		}
		delete(field, "color")
		delete(field, "hotkey")
		if section, ok := field["section"]; ok && section != "items" {
			delete(field, "section")
		}
		kept = append(kept, field)
	}
	schema["extraction"] = kept
	return schema, nil
}

func stageDocument(staging, datasetDir, name string, doc map[string]any) error {
	src := filepath.Join(datasetDir, "input", name)
	dst := filepath.Join(staging, archive.ImagesDirName, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return services.Wrap(services.ErrPartialWrite, "recover", "stage", "create images directory", err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return services.Wrap(services.ErrPartialWrite, "recover", "stage", fmt.Sprintf("copy image %s", name), err)
	}
	if err := writeJSON(filepath.Join(staging, archive.LatestDirName, name+".json"), doc); err != nil {
		return services.Wrap(services.ErrPartialWrite, "recover", "stage", fmt.Sprintf("stage metadata for %s", name), err)
	}
	return nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "   ")
	if err != nil {
		return err
	}
	return fileutil.WriteFrom(path, strings.NewReader(string(data)), 0o644)
}

func wordList(value any) ([]map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("words is not a list")
	}
	words := make([]map[string]any, len(raw))
	for i, entry := range raw {
		word, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("word %d is not an object", i)
		}
		words[i] = word
	}
	return words, nil
}

func subsetLabel(value any) string {
	label, ok := value.(string)
	if !ok {
		return "TRAIN"
	}
	switch label {
	case "", "none", "None":
		return "TRAIN"
	}
	return label
}

func firstVertexX(word map[string]any) float64 {
	poly, ok := word["boundingPoly"].(map[string]any)
	if !ok {
		return 0
	}
	vertices, ok := poly["vertices"].([]any)
	if !ok || len(vertices) == 0 {
		return 0
	}
	vertex, ok := vertices[0].(map[string]any)
	if !ok {
		return 0
	}
	x, _ := vertex["x"].(float64)
	return x
}

func intValue(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func valueOr(value, fallback any) any {
	if value == nil {
		return fallback
	}
	return value
}
