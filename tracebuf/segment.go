// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tracebuf

const (
	// DefaultMaxSamples is the default maximum number of samples per packet.
	DefaultMaxSamples = 100

	// MinSampleInterval is the smallest sample interval, in seconds, that can
	// be segmented.
	MinSampleInterval = 0.001
)

// Segment is a run of consecutive samples and the times of its first and
// last samples.
type Segment struct {
	// Samples references the source waveform; it is not a copy.
	Samples []float32

	Start float64
	End   float64
}

// Segmenter splits a waveform into Segments of at most MaxSamples samples.
//
// Segments are contiguous: each Segment starts one sample interval after the
// previous Segment's End.
//
// Segmenter is used like a bufio.Scanner:
//
//	s := NewSegmenter(data, start, interval, 0)
//	for s.Next() {
//		seg := s.Segment()
//		...
//	}
//
// A Segmenter is consumed by iteration. To iterate again, create a new one.
type Segmenter struct {
	data     []float32
	interval float64
	max      int

	// cursor is the index of the next unsegmented sample.
	cursor int
	// start is the start time of the next Segment.
	start float64

	cur Segment
}

// NewSegmenter creates a Segmenter over data, whose first sample was recorded
// at start (epoch seconds) and whose samples are interval seconds apart.
//
// If max <= 0, DefaultMaxSamples is used.
func NewSegmenter(data []float32, start, interval float64, max int) *Segmenter {
	if max <= 0 {
		max = DefaultMaxSamples
	}
	return &Segmenter{
		data:     data,
		interval: interval,
		max:      max,
		start:    start,
	}
}

// Next advances to the next Segment. It returns false when no samples
// remain.
func (s *Segmenter) Next() bool {
	remaining := len(s.data) - s.cursor
	if remaining <= 0 {
		return false
	}

	n := remaining
	if n > s.max {
		n = s.max
	}

	// End is one interval before the next Segment's start.
	next := s.start + s.interval*float64(n)
	s.cur = Segment{
		Samples: s.data[s.cursor : s.cursor+n],
		Start:   s.start,
		End:     next - s.interval,
	}

	s.start = next
	s.cursor += n
	return true
}

// Segment returns the current Segment. It is only valid after Next returns
// true.
func (s *Segmenter) Segment() *Segment { return &s.cur }

// Remaining returns the number of samples not yet segmented.
func (s *Segmenter) Remaining() int { return len(s.data) - s.cursor }

// SegmentCount returns the number of Segments a waveform of npts samples
// splits into with at most max samples each.
func SegmentCount(npts, max int) int {
	if max <= 0 {
		max = DefaultMaxSamples
	}
	if npts <= 0 {
		return 0
	}
	return (npts + max - 1) / max
}
