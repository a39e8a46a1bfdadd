// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package convert

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/danjacques/gotracebuf/sac"
	"github.com/danjacques/gotracebuf/tracebuf"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// makeSAC builds a SAC file with npts samples, where sample i is i+0.5.
func makeSAC(npts int, delta float32) *sac.File {
	f := sac.File{
		Header: *sac.NewHeader(npts, delta),
		Data:   make([]float32, npts),
	}
	for i := range f.Data {
		f.Data[i] = float32(i) + 0.5
	}
	f.NzYear = 2020
	f.NzJDay = 1
	f.NzHour = 0
	f.NzMin = 0
	f.NzSec = 0
	f.NzMSec = 0
	f.KStNm = sac.MakeText("KMNB")
	f.KCmpNm = sac.MakeText("BHZ")
	f.KNetwk = sac.MakeText("TW")
	return &f
}

func readPackets(path string) []*tracebuf.Packet {
	fd, err := os.Open(path)
	Expect(err).ToNot(HaveOccurred())
	defer fd.Close()

	var packets []*tracebuf.Packet
	r := tracebuf.NewReader(fd)
	for {
		p, err := r.Next()
		if err == io.EOF {
			return packets
		}
		Expect(err).ToNot(HaveOccurred())
		packets = append(packets, p)
	}
}

var _ = Describe("Converter", func() {
	var (
		tdir string
		src  string
		dst  string
		c    *Converter
	)

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "convert_test")
		Expect(err).ToNot(HaveOccurred())

		src = filepath.Join(tdir, "input.sac")
		dst = filepath.Join(tdir, "tracebuf")
		c = &Converter{}
	})

	AfterEach(func() {
		if tdir != "" {
			os.RemoveAll(tdir)
		}
	})

	It("splits 250 samples into 100, 100, and 50 sample packets", func() {
		Expect(makeSAC(250, 0.01).WriteFile(src)).To(Succeed())

		res, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Skipped).To(BeFalse())
		Expect(res.Packets).To(Equal(3))
		Expect(res.Samples).To(Equal(250))
		Expect(res.Station).To(Equal("KMNB"))
		Expect(res.Channel).To(Equal("BHZ"))
		Expect(res.Network).To(Equal("TW"))
		Expect(res.Location).To(BeEmpty())

		packets := readPackets(dst)
		Expect(packets).To(HaveLen(3))

		var counts []int32
		for _, p := range packets {
			counts = append(counts, p.NumSamples)
			Expect(p.SCNL()).To(Equal("KMNB.BHZ.TW.--"))
		}
		Expect(counts).To(Equal([]int32{100, 100, 50}))

		st, err := os.Stat(dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(st.Size()).To(BeEquivalentTo(res.Bytes))
		Expect(res.Bytes).To(Equal(3*tracebuf.HeaderSize + 250*tracebuf.SampleSize))
	})

	It("reconstructs packet times from the reference time", func() {
		Expect(makeSAC(250, 0.01).WriteFile(src)).To(Succeed())

		_, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())

		packets := readPackets(dst)
		Expect(packets).To(HaveLen(3))

		const epoch = 1577836800.0
		Expect(packets[0].StartTime).To(Equal(epoch))
		Expect(packets[1].StartTime).To(BeNumerically("~", epoch+1.0, 1e-6))
		Expect(packets[2].StartTime).To(BeNumerically("~", epoch+2.0, 1e-6))

		for i := 1; i < len(packets); i++ {
			Expect(packets[i].StartTime - 0.01).To(BeNumerically("~", packets[i-1].EndTime, 1e-6))
		}
		for _, p := range packets {
			Expect(p.SampleRate).To(BeNumerically("~", 100.0, 1e-3))
		}
	})

	It("truncates samples toward zero", func() {
		f := makeSAC(3, 0.01)
		f.Data = []float32{3.9, -3.9, 0.2}
		Expect(f.WriteFile(src)).To(Succeed())

		_, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())

		packets := readPackets(dst)
		Expect(packets).To(HaveLen(1))
		Expect(packets[0].Samples).To(Equal([]int32{3, -3, 0}))
	})

	It("carries a defined location code", func() {
		f := makeSAC(10, 0.01)
		f.KHole = sac.MakeText("00")
		Expect(f.WriteFile(src)).To(Succeed())

		res, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Location).To(Equal("00"))
		Expect(readPackets(dst)[0].LocationName()).To(Equal("00"))
	})

	It("skips files with a sample interval below the minimum", func() {
		Expect(makeSAC(250, 0.0005).WriteFile(src)).To(Succeed())

		res, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Skipped).To(BeTrue())
		Expect(res.SkipReason).To(MatchError(ContainSubstring(ErrInvalidSampleRate.Error())))
		Expect(res.Packets).To(BeZero())

		_, err = os.Stat(dst)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("honors a custom packet size", func() {
		c.MaxSamples = 40
		Expect(makeSAC(100, 0.01).WriteFile(src)).To(Succeed())

		res, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Packets).To(Equal(3))
	})

	It("clamps the packet size to what a packet can hold", func() {
		c.MaxSamples = 2000
		Expect(makeSAC(2500, 0.01).WriteFile(src)).To(Succeed())

		res, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Packets).To(Equal(3))

		packets := readPackets(dst)
		Expect(packets).To(HaveLen(3))
		Expect(packets[0].NumSamples).To(BeEquivalentTo(tracebuf.MaxPacketSamples))
		Expect(packets[1].NumSamples).To(BeEquivalentTo(tracebuf.MaxPacketSamples))
		Expect(packets[2].NumSamples).To(BeEquivalentTo(2500 - 2*tracebuf.MaxPacketSamples))
	})

	It("produces no packets for an empty waveform", func() {
		Expect(makeSAC(0, 0.01).WriteFile(src)).To(Succeed())

		res, err := c.Convert(src, dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Packets).To(BeZero())

		_, err = os.Stat(dst)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("accumulates packets from multiple sources", func() {
		Expect(makeSAC(150, 0.01).WriteFile(src)).To(Succeed())

		for i := 0; i < 2; i++ {
			_, err := c.Convert(src, dst)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(readPackets(dst)).To(HaveLen(4))
	})

	Context("with an existing destination", func() {
		var existing []byte

		BeforeEach(func() {
			Expect(makeSAC(50, 0.01).WriteFile(src)).To(Succeed())
			_, err := c.Convert(src, dst)
			Expect(err).ToNot(HaveOccurred())

			existing, err = ioutil.ReadFile(dst)
			Expect(err).ToNot(HaveOccurred())
		})

		It("leaves the destination untouched when the source size is inconsistent", func() {
			data, err := makeSAC(250, 0.01).Encode()
			Expect(err).ToNot(HaveOccurred())
			Expect(ioutil.WriteFile(src, data[:len(data)-8], 0644)).To(Succeed())

			_, err = c.Convert(src, dst)
			Expect(sac.IsConsistencyError(err)).To(BeTrue())

			after, err := ioutil.ReadFile(dst)
			Expect(err).ToNot(HaveOccurred())
			Expect(bytes.Equal(after, existing)).To(BeTrue())
		})

		It("leaves the destination untouched when the source header is truncated", func() {
			Expect(ioutil.WriteFile(src, make([]byte, 100), 0644)).To(Succeed())

			_, err := c.Convert(src, dst)
			Expect(sac.IsFormatError(err)).To(BeTrue())

			after, err := ioutil.ReadFile(dst)
			Expect(err).ToNot(HaveOccurred())
			Expect(bytes.Equal(after, existing)).To(BeTrue())
		})
	})

	It("returns an error for a missing source", func() {
		_, err := c.Convert(filepath.Join(tdir, "missing.sac"), dst)
		Expect(err).To(HaveOccurred())
		Expect(failureType(err)).To(Equal("missing"))
	})
})
