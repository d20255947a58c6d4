// Package archive handles the zip container side of the pipeline: extracting
// the input export archive, locating the conventional export layout inside
// the extracted tree, and assembling the numbered output archives.
//
// Deflate compression is provided by github.com/klauspost/compress; entry
// modification times are carried through from the source files so repeated
// runs over the same input produce identical archives.
package archive
