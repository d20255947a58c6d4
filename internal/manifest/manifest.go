// Package manifest reads and filters the tab-separated split manifest that
// maps document names to dataset subset labels.
package manifest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// FileName is the conventional manifest name inside an export archive.
const FileName = "split.csv"

// Row pairs a document name with its subset label. The label is opaque to
// the pipeline (commonly TRAIN, VAL, or TEST) and never validated.
type Row struct {
	Document string
	Subset   string
}

// Manifest is the parsed split file: the header row re-emitted verbatim plus
// the data rows in file order.
type Manifest struct {
	Header []string
	Rows   []Row
}

// Load parses a tab-separated manifest. The first row is the header and is
// required; a file without it is an error.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads manifest rows from r. See Load.
func Parse(r io.Reader) (*Manifest, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("manifest has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	m := &Manifest{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest row: %w", err)
		}
		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("manifest row %d has %d fields, want 2", len(m.Rows)+2, len(record))
		}
		m.Rows = append(m.Rows, Row{Document: record[0], Subset: record[1]})
	}
	return m, nil
}

// Filter returns a new manifest with the same header and only the rows whose
// document is in names, preserving the original row order. Rows naming
// documents outside the set are dropped; the manifest is allowed to be a
// superset of the inventory.
func (m *Manifest) Filter(names map[string]struct{}) *Manifest {
	out := &Manifest{Header: m.Header}
	for _, row := range m.Rows {
		if _, ok := names[row.Document]; ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// SubsetByDocument returns the subset label keyed by document name.
func (m *Manifest) SubsetByDocument() map[string]string {
	out := make(map[string]string, len(m.Rows))
	for _, row := range m.Rows {
		out[row.Document] = row.Subset
	}
	return out
}

// Encode renders the manifest back to tab-separated bytes, header first.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = '\t'

	if err := writer.Write(m.Header); err != nil {
		return nil, fmt.Errorf("write manifest header: %w", err)
	}
	for _, row := range m.Rows {
		if err := writer.Write([]string{row.Document, row.Subset}); err != nil {
			return nil, fmt.Errorf("write manifest row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
