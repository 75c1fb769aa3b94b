package logsearch

import (
	"io"
	"sync"

	"github.com/pingcap/errors"
)

const (
	// DefaultBufferSize is a compromise between over-reading and system calls.
	DefaultBufferSize = 32 * 1024

	// markerSpan is the distance from the newline that ends the previous
	// record to the tab that ends the header.
	markerSpan = HeaderWidth + 1

	// Margin is how many trailing bytes of a chunk are left unscanned and
	// therefore re-read by the next chunk, so a header cut by the chunk
	// boundary is seen whole on the following read.
	Margin = markerSpan

	minBufferSize = 4 * markerSpan
)

// Advance selects how far the locator moves after a chunk without a record.
type Advance int

const (
	// AdvanceScanned moves by the number of bytes actually scanned in the
	// chunk. Correct for short reads and variable length records.
	AdvanceScanned Advance = iota
	// AdvanceStride always moves by the buffer size minus the margin.
	AdvanceStride
)

// ParseAdvance maps a config value to an Advance policy.
func ParseAdvance(s string) (Advance, error) {
	switch s {
	case "", "scanned":
		return AdvanceScanned, nil
	case "stride":
		return AdvanceStride, nil
	default:
		return 0, errors.Errorf("unknown advance policy %q", s)
	}
}

// Record is a located record header.
type Record struct {
	// Offset of the first header byte.
	Offset int64
	// Timestamp in epoch seconds.
	Timestamp int64
	// Scanned counts every byte read to find the record, overlaps included.
	Scanned int64
}

// Locator finds the next timestamped record at or after a byte offset using
// positioned reads only. It is safe for concurrent use if the underlying
// reader is.
type Locator struct {
	r       io.ReaderAt
	format  Format
	bufSize int
	advance Advance
	pool    sync.Pool
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithBufferSize sets the chunk size of each positioned read.
func WithBufferSize(n int) LocatorOption {
	return func(l *Locator) {
		if n < minBufferSize {
			n = minBufferSize
		}
		l.bufSize = n
	}
}

// WithFormat sets the header grammar settings.
func WithFormat(f Format) LocatorOption {
	return func(l *Locator) {
		l.format = f
	}
}

// WithAdvance sets the advance-on-miss policy.
func WithAdvance(a Advance) LocatorOption {
	return func(l *Locator) {
		l.advance = a
	}
}

// NewLocator returns a Locator reading from r.
func NewLocator(r io.ReaderAt, opts ...LocatorOption) *Locator {
	l := &Locator{
		r:       r,
		format:  DefaultFormat(),
		bufSize: DefaultBufferSize,
		advance: AdvanceScanned,
	}
	for _, opt := range opts {
		opt(l)
	}
	size := l.bufSize
	l.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return l
}

// Format returns the header grammar the locator parses with.
func (l *Locator) Format() Format {
	return l.format
}

// Locate returns the first record whose header starts after a newline at or
// after pos. It fails with ErrNoRecord at end of file and ErrReadFailure when
// the read itself fails.
func (l *Locator) Locate(pos int64) (Record, error) {
	bufp := l.pool.Get().(*[]byte)
	defer l.pool.Put(bufp)
	buf := *bufp

	var scanned int64
	for from := pos; ; {
		n, err := l.r.ReadAt(buf, from)
		if err != nil && err != io.EOF {
			return Record{}, errors.Annotatef(ErrReadFailure, "offset %d: %v", from, err)
		}
		if n <= 0 {
			return Record{}, errors.Annotatef(ErrNoRecord, "searching from offset %d", pos)
		}
		scanned += int64(n)

		limit := n - markerSpan
		for i := 0; i < limit; i++ {
			if buf[i] != '\n' || buf[i+1] == '\t' || buf[i+markerSpan] != '\t' {
				continue
			}
			ts, width, bad := l.format.scan(buf[i+1 : i+markerSpan])
			if bad >= 0 || width != HeaderWidth {
				continue
			}
			return Record{
				Offset:    from + int64(i) + 1,
				Timestamp: ts,
				Scanned:   scanned,
			}, nil
		}

		step := limit
		if l.advance == AdvanceStride && limit > 0 {
			step = l.bufSize - Margin
		}
		if step <= 0 {
			return Record{}, errors.Annotatef(ErrNoRecord, "searching from offset %d", pos)
		}
		from += int64(step)
	}
}
