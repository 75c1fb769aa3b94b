// Package source opens the log being searched as a read-only, positioned
// reader with a known size.
package source
