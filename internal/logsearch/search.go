package logsearch

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Status is the kind of result a search produced.
type Status int

const (
	// NotFound means the interval collapsed, or a probe failed, without an
	// exact match and no record above the target was seen.
	NotFound Status = iota
	// Found means a record with exactly the target timestamp was located.
	Found
	// Nearest means there was no exact match, but Offset and Timestamp hold
	// the closest record seen whose timestamp is above the target.
	Nearest
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Nearest:
		return "nearest"
	default:
		return "not found"
	}
}

// Outcome is the result of one binary search.
type Outcome struct {
	Status    Status
	Offset    int64
	Timestamp int64
	// Probes is the number of locator calls made.
	Probes int
	// BytesScanned is the sum of bytes read by all probes.
	BytesScanned int64
}

// Stats are cumulative counters over every search a Searcher ran.
type Stats struct {
	Searches     int64
	Probes       int64
	BytesScanned int64
}

// Searcher runs binary searches over the byte offsets of a log. Each search
// keeps its interval on the stack, so a Searcher can serve concurrent
// searches.
type Searcher struct {
	loc    *Locator
	logger *zap.Logger

	searches atomic.Int64
	probes   atomic.Int64
	scanned  atomic.Int64
}

// NewSearcher returns a Searcher probing through loc.
func NewSearcher(loc *Locator, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{loc: loc, logger: logger}
}

// Search looks for a record with the target timestamp between byte offsets
// low and high. Any probe whose timestamp equals target ends the search, so
// among duplicates the returned record is not necessarily the first.
func (s *Searcher) Search(target, low, high int64) Outcome {
	var out Outcome
	var nearest *Record

	defer func() {
		s.searches.Inc()
		s.probes.Add(int64(out.Probes))
		s.scanned.Add(out.BytesScanned)
	}()

	for {
		mid := (low + high) / 2
		if mid == low || mid == high {
			break
		}

		rec, err := s.loc.Locate(mid)
		out.Probes++
		if err != nil {
			s.logger.Debug("probe failed", zap.Int64("mid", mid), zap.Error(err))
			break
		}
		out.BytesScanned += rec.Scanned

		if ce := s.logger.Check(zap.DebugLevel, "probe"); ce != nil {
			ce.Write(
				zap.Int64("mid", mid),
				zap.Int64("offset", rec.Offset),
				zap.String("ts", s.loc.format.FormatTime(rec.Timestamp)),
				zap.Int64("scanned", rec.Scanned),
			)
		}

		switch {
		case rec.Timestamp > target:
			high = mid
			r := rec
			nearest = &r
		case rec.Timestamp < target:
			low = mid
		default:
			out.Status = Found
			out.Offset = rec.Offset
			out.Timestamp = rec.Timestamp
			s.logger.Debug("found timestamp",
				zap.Int64("offset", rec.Offset),
				zap.Int64("bytes_scanned", out.BytesScanned),
			)
			return out
		}
	}

	if nearest != nil {
		out.Status = Nearest
		out.Offset = nearest.Offset
		out.Timestamp = nearest.Timestamp
	}
	return out
}

// Stats returns the counters accumulated so far.
func (s *Searcher) Stats() Stats {
	return Stats{
		Searches:     s.searches.Load(),
		Probes:       s.probes.Load(),
		BytesScanned: s.scanned.Load(),
	}
}
