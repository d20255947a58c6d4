// Package partition assigns documents to ordinally numbered output archives.
//
// The assignment is greedy first-fit in scan order: documents are never
// reordered, so a reviewer can predict which archive holds a document from
// the manifest's row order alone. The byte ceiling is a soft target — a
// single document larger than the ceiling still receives its own partition —
// while the document-count ceiling is always honored.
package partition
