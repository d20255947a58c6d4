// Package inventory discovers the documents inside an extracted export tree.
//
// Documents are keyed by the file stem of their metadata file. Each document
// carries its primary page file, its metadata file, and any continuation
// pages discovered by naming convention, along with the summed byte size of
// all of them. The package also builds the document-to-sibling-paths index
// the archive assembler uses, so the substring matching inherited from the
// export naming convention happens once, not per output archive.
package inventory
