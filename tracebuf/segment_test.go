// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tracebuf

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

func makeWaveform(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i)
	}
	return data
}

func collectSegments(s *Segmenter) []Segment {
	var segs []Segment
	for s.Next() {
		segs = append(segs, *s.Segment())
	}
	return segs
}

var _ = Describe("Segmenter", func() {
	DescribeTable("splits waveforms into bounded segments",
		func(npts, max int, expectedCounts []int) {
			data := makeWaveform(npts)
			segs := collectSegments(NewSegmenter(data, 0, 0.01, max))

			var counts []int
			total := 0
			for _, seg := range segs {
				counts = append(counts, len(seg.Samples))
				total += len(seg.Samples)
			}
			Expect(counts).To(Equal(expectedCounts))
			Expect(total).To(Equal(npts))
			Expect(len(segs)).To(Equal(SegmentCount(npts, max)))
		},
		Entry("empty waveform", 0, 100, []int(nil)),
		Entry("single sample", 1, 100, []int{1}),
		Entry("fewer samples than the cap", 99, 100, []int{99}),
		Entry("exactly the cap", 100, 100, []int{100}),
		Entry("one past the cap", 101, 100, []int{100, 1}),
		Entry("250 samples", 250, 100, []int{100, 100, 50}),
		Entry("evenly divisible", 300, 100, []int{100, 100, 100}),
		Entry("small cap", 7, 3, []int{3, 3, 1}),
		Entry("default cap", 150, 0, []int{100, 50}),
	)

	It("advances the data cursor by the true segment size", func() {
		data := makeWaveform(250)
		segs := collectSegments(NewSegmenter(data, 0, 0.01, 100))

		Expect(segs).To(HaveLen(3))
		Expect(segs[0].Samples[0]).To(Equal(float32(0)))
		Expect(segs[1].Samples[0]).To(Equal(float32(100)))
		Expect(segs[2].Samples[0]).To(Equal(float32(200)))
		Expect(segs[2].Samples[49]).To(Equal(float32(249)))
	})

	It("produces time-contiguous segments", func() {
		const (
			start    = 1577836800.0
			interval = 0.01
		)
		segs := collectSegments(NewSegmenter(makeWaveform(250), start, interval, 100))

		Expect(segs[0].Start).To(Equal(start))
		Expect(segs[0].End).To(BeNumerically("~", start+0.99, 1e-6))
		Expect(segs[1].Start).To(BeNumerically("~", start+1.00, 1e-6))
		Expect(segs[2].Start).To(BeNumerically("~", start+2.00, 1e-6))
		Expect(segs[2].End).To(BeNumerically("~", start+2.49, 1e-6))

		for i := 1; i < len(segs); i++ {
			Expect(segs[i].Start - interval).To(Equal(segs[i-1].End))
		}
	})

	It("reports the remaining sample count", func() {
		s := NewSegmenter(makeWaveform(150), 0, 1, 100)
		Expect(s.Remaining()).To(Equal(150))
		Expect(s.Next()).To(BeTrue())
		Expect(s.Remaining()).To(Equal(50))
		Expect(s.Next()).To(BeTrue())
		Expect(s.Remaining()).To(Equal(0))
		Expect(s.Next()).To(BeFalse())
		Expect(s.Next()).To(BeFalse())
	})
})
