// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package sac

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"

	"github.com/pkg/errors"
)

// File is a decoded SAC file: its header and its waveform samples.
type File struct {
	Header

	// Data is the waveform, NPts samples long.
	Data []float32
}

// Parse decodes a complete SAC file from data.
//
// Parse fails with an ErrFormat cause if the header cannot be decoded, and
// with an ErrConsistency cause if len(data) disagrees with the header's NPts.
//
// The returned File does not reference data.
func Parse(data []byte) (*File, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if err := h.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	f := File{
		Header: *h,
		Data:   make([]float32, h.NPts),
	}
	if err := binary.Read(bytes.NewReader(data[HeaderSize:]), byteOrder, f.Data); err != nil {
		return nil, errors.Wrapf(ErrFormat, "could not read %d sample(s): %s", h.NPts, err)
	}
	return &f, nil
}

// ReadFile reads and parses the SAC file at path.
func ReadFile(path string) (*File, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", path)
	}
	return f, nil
}

// Encode encodes f into a complete SAC file. The header's NPts is updated to
// match len(f.Data).
func (f *File) Encode() ([]byte, error) {
	f.NPts = int32(len(f.Data))

	hdr, err := f.Header.Encode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(hdr) + len(f.Data)*SampleSize)
	buf.Write(hdr)
	if err := binary.Write(&buf, byteOrder, f.Data); err != nil {
		return nil, errors.Wrap(err, "could not write samples")
	}
	return buf.Bytes(), nil
}

// WriteFile encodes f and writes it to path, replacing any existing file.
func (f *File) WriteFile(path string) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}
