// Package sink opens the destination of an extracted range: standard output
// or a file, optionally compressed.
package sink
