package logsearch

import (
	"strings"
	"time"

	"github.com/pingcap/errors"
)

// HeaderWidth is the number of bytes the timestamp prefix of a record occupies,
// e.g. "240115 09:30:00".
const HeaderWidth = 15

// DefaultCenturyPivot matches the POSIX %y convention: 69-99 map to the 1900s
// and 00-68 map to the 2000s. Headers written in 2069 or later will sort wrong.
const DefaultCenturyPivot = 69

// Format describes how record headers are turned into epoch seconds.
type Format struct {
	// Location the header clock is written in. Nil means time.Local.
	Location *time.Location
	// CenturyPivot is the first two-digit year that belongs to the 1900s.
	CenturyPivot int
}

// DefaultFormat returns local time with the POSIX century pivot.
func DefaultFormat() Format {
	return Format{Location: time.Local, CenturyPivot: DefaultCenturyPivot}
}

// Parse reads a YYMMDD<whitespace>HH:MM:SS timestamp from the start of b and
// returns it in epoch seconds together with the number of bytes consumed.
// Numeric fields take one or two digits and the separator is any run of
// whitespace, so callers that need a fixed width must check the byte count.
func (f Format) Parse(b []byte) (int64, int, error) {
	ts, n, bad := f.scan(b)
	if bad >= 0 {
		return 0, n, errors.Annotatef(ErrMalformedHeader, "bad %s at byte %d", fieldBounds[bad].name, n)
	}
	return ts, n, nil
}

// scan is Parse without the error allocation. It returns the index of the
// offending field, or -1 on success.
func (f Format) scan(b []byte) (int64, int, int) {
	var (
		p      = parser{b: b}
		fields [6]int
	)

	for i, bound := range fieldBounds {
		switch i {
		case 3:
			p.skipSpace()
		case 4, 5:
			if !p.expect(':') {
				return 0, p.pos, i
			}
		}
		v, ok := p.number()
		if !ok || v < bound.min || v > bound.max {
			return 0, p.pos, i
		}
		fields[i] = v
	}

	return f.epoch(fields), p.pos, -1
}

// ParseTime parses an operator supplied timestamp. The whole string must match.
func (f Format) ParseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	ts, n, err := f.Parse([]byte(s))
	if err != nil {
		return 0, errors.Annotatef(ErrInvalidTimestamp, "%q: %v", s, err)
	}
	if n != len(s) {
		return 0, errors.Annotatef(ErrInvalidTimestamp, "%q: trailing data after byte %d", s, n)
	}
	return ts, nil
}

// FormatTime renders epoch seconds in the header layout.
func (f Format) FormatTime(ts int64) string {
	return time.Unix(ts, 0).In(f.location()).Format("060102 15:04:05")
}

func (f Format) epoch(fields [6]int) int64 {
	year := fields[0] + 2000
	if fields[0] >= f.pivot() {
		year = fields[0] + 1900
	}
	t := time.Date(year, time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, f.location())
	return t.Unix()
}

func (f Format) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Format) pivot() int {
	if f.CenturyPivot <= 0 || f.CenturyPivot > 100 {
		return DefaultCenturyPivot
	}
	return f.CenturyPivot
}

var fieldBounds = [6]struct {
	name     string
	min, max int
}{
	{"year", 0, 99},
	{"month", 1, 12},
	{"day", 1, 31},
	{"hour", 0, 23},
	{"minute", 0, 59},
	{"second", 0, 60},
}

type parser struct {
	b   []byte
	pos int
}

// number consumes one or two decimal digits.
func (p *parser) number() (int, bool) {
	v, n := 0, 0
	for n < 2 && p.pos < len(p.b) && p.b[p.pos] >= '0' && p.b[p.pos] <= '9' {
		v = v*10 + int(p.b[p.pos]-'0')
		p.pos++
		n++
	}
	return v, n > 0
}

func (p *parser) skipSpace() {
	for p.pos < len(p.b) {
		switch p.b[p.pos] {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) bool {
	if p.pos < len(p.b) && p.b[p.pos] == c {
		p.pos++
		return true
	}
	return false
}
