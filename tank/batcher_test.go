// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/danjacques/gotracebuf/convert"
	"github.com/danjacques/gotracebuf/ledger"
	"github.com/danjacques/gotracebuf/tracebuf"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type fakeArchive struct {
	uploads []string
	err     error
}

func (fa *fakeArchive) Upload(ctx context.Context, name, path string) error {
	if fa.err != nil {
		return fa.err
	}
	fa.uploads = append(fa.uploads, name)
	return nil
}

func countPackets(path string) int {
	fd, err := os.Open(path)
	Expect(err).ToNot(HaveOccurred())
	defer fd.Close()

	r := tracebuf.NewReader(fd)
	count := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			return count
		}
		Expect(err).ToNot(HaveOccurred())
		count++
	}
}

var _ = Describe("Batcher", func() {
	var (
		ctx     context.Context
		tdir    string
		tankDir string
		b       *Batcher
	)

	addFile := func(name string, npts int) (*convert.Result, error) {
		path := filepath.Join(tdir, "sac", name)
		writeSAC(path, npts)
		return b.Add(ctx, path)
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tdir, err = ioutil.TempDir("", "tank_batcher_test")
		Expect(err).ToNot(HaveOccurred())
		Expect(os.MkdirAll(filepath.Join(tdir, "sac"), 0755)).To(Succeed())

		tankDir = filepath.Join(tdir, "tank")
		b = &Batcher{
			Converter:  &convert.Converter{},
			StreamPath: filepath.Join(tankDir, "tracebuf"),
			TankDir:    tankDir,
			BatchSize:  2,
			Remuxer:    &ArchiveRemuxer{},
		}
	})

	AfterEach(func() {
		os.RemoveAll(tdir)
	})

	It("rotates the stream after a full batch", func() {
		_, err := addFile("a.sac", 150)
		Expect(err).ToNot(HaveOccurred())
		Expect(b.Pending()).To(Equal(1))
		Expect(countPackets(b.StreamPath)).To(Equal(2))

		_, err = addFile("b.sac", 50)
		Expect(err).ToNot(HaveOccurred())
		Expect(b.Pending()).To(Equal(0))

		_, err = os.Stat(b.StreamPath)
		Expect(os.IsNotExist(err)).To(BeTrue())
		Expect(countPackets(filepath.Join(tankDir, "0.tnk"))).To(Equal(3))
	})

	It("numbers successive tank files", func() {
		for i := 0; i < 4; i++ {
			_, err := addFile(fmt.Sprintf("%d.sac", i), 10)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(filepath.Join(tankDir, "0.tnk")).To(BeARegularFile())
		Expect(filepath.Join(tankDir, "1.tnk")).To(BeARegularFile())
	})

	It("resumes numbering after existing tank files", func() {
		Expect(os.MkdirAll(tankDir, 0755)).To(Succeed())
		Expect(ioutil.WriteFile(filepath.Join(tankDir, "5.tnk"), nil, 0644)).To(Succeed())

		_, err := addFile("a.sac", 10)
		Expect(err).ToNot(HaveOccurred())

		path, err := b.Rotate(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(tankDir, "6.tnk")))
	})

	It("does not rotate an empty stream", func() {
		path, err := b.Rotate(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(path).To(BeEmpty())

		_, err = os.Stat(filepath.Join(tankDir, "0.tnk"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("counts skipped files toward the batch", func() {
		path := filepath.Join(tdir, "sac", "fast.sac")
		writeSAC(path, 10)

		b.Converter.MinSampleInterval = 1
		res, err := b.Add(ctx, path)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Skipped).To(BeTrue())
		Expect(b.Pending()).To(Equal(1))
	})

	It("does not count failed conversions", func() {
		path := filepath.Join(tdir, "sac", "bad.sac")
		Expect(ioutil.WriteFile(path, []byte("not a sac file"), 0644)).To(Succeed())

		_, err := b.Add(ctx, path)
		Expect(err).To(HaveOccurred())
		Expect(b.Pending()).To(Equal(0))
	})

	It("preserves the stream when remuxing fails", func() {
		b.Remuxer = &CommandRemuxer{Command: "false"}

		_, err := addFile("a.sac", 10)
		Expect(err).ToNot(HaveOccurred())

		_, err = b.Rotate(ctx)
		Expect(err).To(HaveOccurred())
		Expect(countPackets(filepath.Join(tankDir, "0.tracebuf"))).To(Equal(1))

		// The preserved stream's number is not reused.
		b.Remuxer = &ArchiveRemuxer{}
		_, err = addFile("b.sac", 10)
		Expect(err).ToNot(HaveOccurred())
		path, err := b.Rotate(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(tankDir, "1.tnk")))
	})

	Context("with an archive", func() {
		var fa *fakeArchive

		BeforeEach(func() {
			fa = &fakeArchive{}
			b.Archive = fa
		})

		It("uploads each tank file", func() {
			_, err := addFile("a.sac", 10)
			Expect(err).ToNot(HaveOccurred())
			_, err = addFile("b.sac", 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(fa.uploads).To(Equal([]string{"0.tnk"}))
		})

		It("keeps the tank file when the upload fails", func() {
			fa.err = errors.New("offline")
			_, err := addFile("a.sac", 10)
			Expect(err).ToNot(HaveOccurred())

			path, err := b.Rotate(ctx)
			Expect(err).To(MatchError(ContainSubstring("offline")))
			Expect(path).To(BeARegularFile())
		})
	})

	Context("with a ledger", func() {
		var l *ledger.Ledger

		BeforeEach(func() {
			var err error
			l, err = ledger.Open(ledger.Options{InMemory: true})
			Expect(err).ToNot(HaveOccurred())
			b.Ledger = l
			b.BatchSize = 10
		})

		AfterEach(func() {
			Expect(l.Close()).To(Succeed())
		})

		It("records converted files", func() {
			_, err := addFile("a.sac", 150)
			Expect(err).ToNot(HaveOccurred())

			rec, err := l.Get("a.sac")
			Expect(err).ToNot(HaveOccurred())
			Expect(rec.Station).To(Equal("ABC"))
			Expect(rec.Packets).To(Equal(2))
			Expect(rec.Samples).To(Equal(150))
		})

		It("skips a file that was already converted", func() {
			_, err := addFile("a.sac", 10)
			Expect(err).ToNot(HaveOccurred())

			res, err := addFile("a.sac", 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Skipped).To(BeTrue())
			Expect(errors.Cause(res.SkipReason)).To(Equal(ErrDuplicate))
			Expect(b.Pending()).To(Equal(1))
			Expect(countPackets(b.StreamPath)).To(Equal(1))
		})

		It("converts a file with the same name but a different size", func() {
			_, err := addFile("a.sac", 10)
			Expect(err).ToNot(HaveOccurred())

			res, err := addFile("a.sac", 20)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Skipped).To(BeFalse())
			Expect(countPackets(b.StreamPath)).To(Equal(2))
		})
	})
})

var _ = Describe("NextTankNumber", func() {
	var tdir string

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "tank_number_test")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tdir)
	})

	It("returns 0 for a missing directory", func() {
		n, err := NextTankNumber(filepath.Join(tdir, "missing"))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(0))
	})

	It("ignores unrelated files", func() {
		for _, name := range []string{"3.tnk", "tracebuf", "x.tnk", "10.tracebuf", "7.txt"} {
			Expect(ioutil.WriteFile(filepath.Join(tdir, name), nil, 0644)).To(Succeed())
		}
		n, err := NextTankNumber(tdir)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(11))
	})
})
