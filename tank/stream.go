// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// streamBufferSize is the buffer size used when reading and writing tank
// files (4MB).
const streamBufferSize = 1024 * 1024 * 4

// streamWriter writes a tank file, applying compression.
type streamWriter struct {
	io.Writer

	closer  io.Closer
	bw      *bufio.Writer
	snappyW *snappy.Writer
	gzipW   *gzip.Writer
}

func newStreamWriter(base io.WriteCloser, comp Compression, level int) (*streamWriter, error) {
	w := streamWriter{
		bw:     bufio.NewWriterSize(base, streamBufferSize),
		closer: base,
	}

	switch comp {
	case CompressionSnappy:
		w.snappyW = snappy.NewBufferedWriter(w.bw)
		w.Writer = w.snappyW

	case CompressionGzip:
		if level < 0 {
			level = gzip.DefaultCompression
		}

		gw, err := gzip.NewWriterLevel(w.bw, level)
		if err != nil {
			return nil, errors.Wrap(err, "creating gzip writer")
		}
		w.gzipW = gw
		w.Writer = w.gzipW

	case CompressionNone:
		w.Writer = w.bw

	default:
		return nil, errors.Errorf("unknown compression: %s", comp)
	}
	return &w, nil
}

func (w *streamWriter) Close() (err error) {
	// Always close our underlying base.
	defer func() {
		closeErr := w.closer.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if w.snappyW != nil {
		if err = w.snappyW.Close(); err != nil {
			return
		}
	}
	if w.gzipW != nil {
		if err = w.gzipW.Close(); err != nil {
			return
		}
	}
	err = w.bw.Flush()
	return
}

type streamReader struct {
	io.Reader

	fd    *os.File
	gzipR *gzip.Reader
}

// OpenStream opens the tank file at path, which was written with comp, and
// returns a reader for its decompressed tracebuf stream.
func OpenStream(path string, comp Compression) (io.ReadCloser, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := streamReader{fd: fd}
	br := bufio.NewReaderSize(fd, streamBufferSize)
	switch comp {
	case CompressionSnappy:
		r.Reader = snappy.NewReader(br)

	case CompressionGzip:
		if r.gzipR, err = gzip.NewReader(br); err != nil {
			_ = fd.Close()
			return nil, errors.Wrapf(err, "creating gzip reader for %q", path)
		}
		r.Reader = r.gzipR

	case CompressionNone:
		r.Reader = br

	default:
		_ = fd.Close()
		return nil, errors.Errorf("unknown compression: %s", comp)
	}
	return &r, nil
}

func (r *streamReader) Close() error {
	if r.gzipR != nil {
		_ = r.gzipR.Close()
	}
	return r.fd.Close()
}
