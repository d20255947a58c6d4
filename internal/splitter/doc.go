// Package splitter drives the repackaging pipeline: extract the source
// archive, inventory its documents, assign them to bounded partitions, and
// assemble one output archive per partition.
//
// A run holds an advisory lock on the output directory so concurrent
// invocations cannot interleave writes to the same destination.
package splitter
