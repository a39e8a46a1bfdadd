// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package sac

import (
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("File", func() {
	var f *File

	BeforeEach(func() {
		f = &File{
			Header: *NewHeader(0, 0.05),
			Data:   []float32{0, 1.5, -2.5, 3.9, -3.9},
		}
	})

	It("encodes a header followed by samples", func() {
		data, err := f.Encode()
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(HaveLen(HeaderSize + 5*SampleSize))

		parsed, err := Parse(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(parsed.NPts).To(Equal(int32(5)))
		Expect(parsed.Data).To(Equal(f.Data))
	})

	It("rejects trailing bytes as inconsistent", func() {
		data, err := f.Encode()
		Expect(err).ToNot(HaveOccurred())

		_, err = Parse(append(data, 0, 0, 0, 0))
		Expect(IsConsistencyError(err)).To(BeTrue())
	})

	It("rejects missing samples as inconsistent", func() {
		data, err := f.Encode()
		Expect(err).ToNot(HaveOccurred())

		_, err = Parse(data[:len(data)-SampleSize])
		Expect(IsConsistencyError(err)).To(BeTrue())
	})

	It("rejects a truncated header as malformed", func() {
		data, err := f.Encode()
		Expect(err).ToNot(HaveOccurred())

		_, err = Parse(data[:100])
		Expect(IsFormatError(err)).To(BeTrue())
	})

	Context("on disk", func() {
		var tdir string

		BeforeEach(func() {
			var err error
			tdir, err = ioutil.TempDir("", "sac_file_test")
			Expect(err).ToNot(HaveOccurred())
		})

		AfterEach(func() {
			Expect(os.RemoveAll(tdir)).To(Succeed())
		})

		It("can write and read a file", func() {
			path := filepath.Join(tdir, "KMNB.sac")
			Expect(f.WriteFile(path)).To(Succeed())

			read, err := ReadFile(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(read.Data).To(Equal(f.Data))
			Expect(read.Delta).To(Equal(float32(0.05)))
		})

		It("wraps consistency errors with the file path", func() {
			path := filepath.Join(tdir, "bad.sac")
			data, err := f.Encode()
			Expect(err).ToNot(HaveOccurred())
			Expect(ioutil.WriteFile(path, data[:len(data)-1], 0644)).To(Succeed())

			_, err = ReadFile(path)
			Expect(err).To(MatchError(ContainSubstring(path)))
			Expect(IsConsistencyError(err)).To(BeTrue())
		})
	})
})
