package transfer

import (
	"io"
	"math"
)

// ProgressFunc receives transfer progress as an integer percentage. Within
// one transfer the reported values never decrease and reach 100 on success.
// There is no guarantee on call frequency beyond that.
type ProgressFunc func(percent int)

// monotonic wraps a progress callback so that values are clamped to 0..100
// and never decrease, whatever the underlying byte accounting does. A nil
// callback becomes a no-op.
func monotonic(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(int) {}
	}

	last := -1
	return func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		if percent <= last {
			return
		}
		last = percent
		fn(percent)
	}
}

// percentOf is round(100 * transferred / total), with a zero total reported
// as fully transferred.
func percentOf(transferred, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(transferred) * 100 / float64(total)))
}

// partPercent normalizes per-part progress to the whole transfer: completed
// parts contribute their full share, the in-flight part contributes
// proportionally to its bytes sent.
func partPercent(part, totalParts int, sent, partLength int64) int {
	if totalParts <= 0 {
		return 0
	}
	completed := float64(part) / float64(totalParts) * 100
	var inFlight float64
	if partLength > 0 {
		inFlight = float64(sent) / float64(partLength) / float64(totalParts) * 100
	}
	return int(math.Round(completed + inFlight))
}

// countingReader reports the cumulative number of bytes read through it.
type countingReader struct {
	reader io.Reader
	read   int64
	report func(read int64)
}

func newCountingReader(reader io.Reader, report func(read int64)) *countingReader {
	return &countingReader{reader: reader, report: report}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if n > 0 {
		c.read += int64(n)
		c.report(c.read)
	}
	return n, err
}
