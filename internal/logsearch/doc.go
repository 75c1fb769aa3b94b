// Package logsearch provides utilities for cutting time ranges out of large,
// append-only text logs whose records start with a "YYMMDD HH:MM:SS<TAB>" header.
//
// It includes a record locator that resolves an arbitrary byte offset to the
// next well formed record, and a searcher that uses binary search over byte
// offsets to find the records bounding a start and stop time without reading
// the whole file. The extractor ties both together and copies the bytes in
// between to a writer.
package logsearch
