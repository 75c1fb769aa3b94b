package logsearch

import "github.com/pingcap/errors"

var (
	// ErrNoRecord is returned by the locator when no well formed record exists
	// at or after the requested position.
	ErrNoRecord = errors.New("no timestamped record found")
	// ErrReadFailure wraps an OS level error from a positioned read.
	ErrReadFailure = errors.New("positioned read failed")
	// ErrMalformedHeader is returned when bytes shaped like a header fail the
	// strict timestamp grammar.
	ErrMalformedHeader = errors.New("malformed record header")
	// ErrInvalidTimestamp is returned for operator supplied timestamps that do
	// not match the header grammar.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrStartNotFound means no record matched the start time, so there is no
	// well defined range to copy.
	ErrStartNotFound = errors.New("start not found")
	// ErrStopBeforeStart is returned when the requested range is inverted.
	ErrStopBeforeStart = errors.New("stop is less than start")
)
