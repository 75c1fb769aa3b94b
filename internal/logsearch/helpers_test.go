package logsearch

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	utcFormat = Format{Location: time.UTC, CenturyPivot: DefaultCenturyPivot}
	baseTime  = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC).Unix()
)

// buildLog renders one fixed length record per stamp (seconds after
// baseTime) and returns the file contents and each record's start offset.
func buildLog(t testing.TB, stamps []int64, recLen int) ([]byte, []int64) {
	t.Helper()
	require.Greater(t, recLen, markerSpan+1)

	var (
		buf     bytes.Buffer
		offsets = make([]int64, 0, len(stamps))
	)
	for i, s := range stamps {
		offsets = append(offsets, int64(buf.Len()))
		line := utcFormat.FormatTime(baseTime+s) + "\t" + "msg" + strings.Repeat("x", recLen)
		line = line[:recLen-1] + "\n"
		require.Len(t, line, recLen, "record %d", i)
		buf.WriteString(line)
	}
	return buf.Bytes(), offsets
}

func newTestLocator(data []byte, opts ...LocatorOption) *Locator {
	opts = append([]LocatorOption{WithFormat(utcFormat)}, opts...)
	return NewLocator(bytes.NewReader(data), opts...)
}
