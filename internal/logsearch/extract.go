package logsearch

import (
	"io"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// FromBeginning as a start time copies from the first byte of the file.
const FromBeginning int64 = 0

// StartPolicy decides what happens when no record matches the start time.
type StartPolicy int

const (
	// StartExact aborts the extraction.
	StartExact StartPolicy = iota
	// StartNearest begins at the closest record above the start time.
	StartNearest
)

// ParseStartPolicy maps a config value to a StartPolicy.
func ParseStartPolicy(s string) (StartPolicy, error) {
	switch s {
	case "", "exact":
		return StartExact, nil
	case "nearest":
		return StartNearest, nil
	default:
		return 0, errors.Errorf("unknown start policy %q", s)
	}
}

// Fallback records how the end boundary was chosen when the stop time had no
// exact match.
type Fallback int

const (
	FallbackNone Fallback = iota
	FallbackNearest
	FallbackEndOfFile
)

func (f Fallback) String() string {
	switch f {
	case FallbackNearest:
		return "nearest"
	case FallbackEndOfFile:
		return "end_of_file"
	default:
		return "none"
	}
}

// Result describes a finished extraction.
type Result struct {
	StartOffset int64
	EndOffset   int64
	Written     int64
	Start       Outcome
	Stop        Outcome
	Fallback    Fallback
}

// Extractor copies the bytes between two timestamps out of a log.
type Extractor struct {
	src      io.ReaderAt
	size     int64
	logger   *zap.Logger
	policy   StartPolicy
	copySize int
	locOpts  []LocatorOption

	searcher *Searcher
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithStartPolicy sets the start fallback policy.
func WithStartPolicy(p StartPolicy) ExtractorOption {
	return func(e *Extractor) {
		e.policy = p
	}
}

// WithCopyBufferSize sets the buffer size of the copy-out step.
func WithCopyBufferSize(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.copySize = n
		}
	}
}

// WithLocatorOptions passes options through to the record locator.
func WithLocatorOptions(opts ...LocatorOption) ExtractorOption {
	return func(e *Extractor) {
		e.locOpts = append(e.locOpts, opts...)
	}
}

// NewExtractor returns an Extractor over size bytes of src.
func NewExtractor(src io.ReaderAt, size int64, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		src:      src,
		size:     size,
		copySize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.searcher = NewSearcher(NewLocator(src, e.locOpts...), e.logger)
	return e
}

// Searcher exposes the searcher so callers can read its Stats.
func (e *Extractor) Searcher() *Searcher {
	return e.searcher
}

// Extract writes the bytes from the record at start up to, but excluding,
// the record at stop. A missing stop falls back to the nearest record above
// it or to end of file; a missing start is an error and nothing is written.
func (e *Extractor) Extract(w io.Writer, start, stop int64) (Result, error) {
	var res Result

	if stop < start {
		return res, errors.Annotatef(ErrStopBeforeStart, "start %d, stop %d", start, stop)
	}

	if start > FromBeginning {
		res.Start = e.searcher.Search(start, 0, e.size)
		switch {
		case res.Start.Status == Found:
			res.StartOffset = res.Start.Offset
		case res.Start.Status == Nearest && e.policy == StartNearest:
			res.StartOffset = res.Start.Offset
			e.logger.Warn("start not found, using nearest record",
				zap.String("ts", e.format().FormatTime(res.Start.Timestamp)),
				zap.Int64("offset", res.Start.Offset),
			)
		default:
			e.logger.Error("start not found", zap.String("start", e.format().FormatTime(start)))
			return res, errors.Annotatef(ErrStartNotFound, "%s", e.format().FormatTime(start))
		}
	}

	res.Stop = e.searcher.Search(stop, res.StartOffset, e.size)
	if res.Stop.Status == Found {
		res.EndOffset = res.Stop.Offset
	} else if res.Stop.Status == Nearest && res.Stop.Offset > 0 && res.Stop.Offset < e.size {
		res.EndOffset = res.Stop.Offset
		res.Fallback = FallbackNearest
		e.logger.Warn("stop not found, using nearest record",
			zap.String("ts", e.format().FormatTime(res.Stop.Timestamp)),
			zap.Int64("offset", res.Stop.Offset),
		)
	} else {
		res.EndOffset = e.size
		res.Fallback = FallbackEndOfFile
		e.logger.Warn("stop not found, using end of file", zap.Int64("offset", e.size))
	}

	e.logger.Info("extracting range",
		zap.Int64("start_offset", res.StartOffset),
		zap.Int64("end_offset", res.EndOffset),
		zap.Int64("total_bytes", res.EndOffset-res.StartOffset),
	)

	n, err := e.copyRange(w, res.StartOffset, res.EndOffset)
	res.Written = n
	if err != nil {
		return res, errors.Trace(err)
	}
	return res, nil
}

// copyRange streams [from, to) to w. A short or empty read ends the copy
// early without an error.
func (e *Extractor) copyRange(w io.Writer, from, to int64) (int64, error) {
	buf := make([]byte, e.copySize)

	var written int64
	for offset := from; offset < to; {
		want := to - offset
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, err := e.src.ReadAt(buf[:want], offset)
		if n <= 0 {
			if err != nil && err != io.EOF {
				e.logger.Warn("copy ended early", zap.Int64("offset", offset), zap.Error(err))
			}
			break
		}
		m, werr := w.Write(buf[:n])
		written += int64(m)
		if werr != nil {
			return written, errors.Annotatef(werr, "writing output at offset %d", offset)
		}
		offset += int64(n)
	}
	return written, nil
}

func (e *Extractor) format() Format {
	return e.searcher.loc.Format()
}
