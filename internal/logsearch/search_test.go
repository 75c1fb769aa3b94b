package logsearch

import (
	"math"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioRecLen = 40

// scenarioStamps are the record times, in seconds after baseTime, of the
// log used throughout the searcher and extractor tests.
var scenarioStamps = []int64{100, 100, 200, 300, 300, 400}

func TestSearch(t *testing.T) {
	data, offsets := buildLog(t, scenarioStamps, scenarioRecLen)
	s := NewSearcher(newTestLocator(data), nil)
	size := int64(len(data))

	tests := []struct {
		name      string
		target    int64
		status    Status
		offset    int64
		timestamp int64
	}{
		{
			name:      "Single exact match",
			target:    200,
			status:    Found,
			offset:    offsets[2],
			timestamp: 200,
		},
		{
			name:      "Between records reports nearest above",
			target:    250,
			status:    Nearest,
			offset:    offsets[3],
			timestamp: 300,
		},
		{
			name:      "Last record",
			target:    400,
			status:    Found,
			offset:    offsets[5],
			timestamp: 400,
		},
		{
			name:   "After every record",
			target: 500,
			status: NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Search(baseTime+tt.target, 0, size)
			assert.Equal(t, tt.status, out.Status)
			if tt.status == NotFound {
				return
			}
			assert.Equal(t, tt.offset, out.Offset)
			assert.Equal(t, baseTime+tt.timestamp, out.Timestamp)
			assert.Positive(t, out.Probes)
			assert.Positive(t, out.BytesScanned)
		})
	}
}

func TestSearchDuplicates(t *testing.T) {
	data, offsets := buildLog(t, scenarioStamps, scenarioRecLen)
	s := NewSearcher(newTestLocator(data), nil)

	out := s.Search(baseTime+300, 0, int64(len(data)))
	require.Equal(t, Found, out.Status)
	assert.Contains(t, []int64{offsets[3], offsets[4]}, out.Offset)
	assert.Equal(t, baseTime+300, out.Timestamp)
}

func TestSearchCollapsedInterval(t *testing.T) {
	data, _ := buildLog(t, scenarioStamps, scenarioRecLen)
	s := NewSearcher(newTestLocator(data), nil)

	out := s.Search(baseTime+200, 10, 11)
	assert.Equal(t, NotFound, out.Status)
	assert.Zero(t, out.Probes)

	out = s.Search(baseTime+200, 10, 10)
	assert.Equal(t, NotFound, out.Status)
	assert.Zero(t, out.Probes)
}

func TestSearcherStats(t *testing.T) {
	stamps := make([]int64, 200)
	for i := range stamps {
		stamps[i] = int64(i * 10)
	}
	data, offsets := buildLog(t, stamps, 48)
	s := NewSearcher(newTestLocator(data), nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		outs = make(map[int]Outcome)
	)
	for k := 1; k < len(stamps)-1; k += 7 {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			out := s.Search(baseTime+stamps[k], 0, int64(len(data)))
			mu.Lock()
			outs[k] = out
			mu.Unlock()
		}(k)
	}
	wg.Wait()

	var probes, scanned int64
	for k, out := range outs {
		require.Equal(t, Found, out.Status, "record %d", k)
		assert.Equal(t, offsets[k], out.Offset, "record %d", k)
		probes += int64(out.Probes)
		scanned += out.BytesScanned
	}

	stats := s.Stats()
	assert.Equal(t, int64(len(outs)), stats.Searches)
	assert.Equal(t, probes, stats.Probes)
	assert.Equal(t, scanned, stats.BytesScanned)
}

func TestSearchProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Equal length records keep every probe inside the file's last record
	// boundary for any target that is not the final record.
	const recLen = 48

	properties.Property("exact timestamps are always found", prop.ForAll(
		func(gaps []int64, pick int) bool {
			stamps := stampsFromGaps(gaps)
			data, offsets := buildLog(t, stamps, recLen)
			k := 1 + pick%(len(stamps)-2)

			out := NewSearcher(newTestLocator(data), nil).Search(baseTime+stamps[k], 0, int64(len(data)))
			if out.Status != Found {
				return false
			}
			for i, off := range offsets {
				if off == out.Offset {
					return stamps[i] == stamps[k]
				}
			}
			return false
		},
		gen.SliceOfN(40, gen.Int64Range(0, 3)).SuchThat(func(g []int64) bool { return len(g) >= 3 }),
		gen.IntRange(0, 1000),
	))

	properties.Property("probes are bounded by log2 of the file size", prop.ForAll(
		func(gaps []int64, target int64) bool {
			stamps := stampsFromGaps(gaps)
			data, _ := buildLog(t, stamps, recLen)

			out := NewSearcher(newTestLocator(data), nil).Search(baseTime+target, 0, int64(len(data)))
			limit := int(math.Ceil(math.Log2(float64(len(data))))) + 1
			return out.Probes <= limit
		},
		gen.SliceOfN(60, gen.Int64Range(1, 20)).SuchThat(func(g []int64) bool { return len(g) >= 3 }),
		gen.Int64Range(-10, 1500),
	))

	properties.TestingRun(t)
}

func stampsFromGaps(gaps []int64) []int64 {
	stamps := make([]int64, len(gaps))
	var cur int64
	for i, g := range gaps {
		cur += g
		stamps[i] = cur
	}
	return stamps
}
