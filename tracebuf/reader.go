// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tracebuf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// MaxPacketSize is the largest TRACEBUF2 packet Earthworm will carry.
const MaxPacketSize = 4096

// MaxPacketSamples is the largest sample count that fits in MaxPacketSize.
const MaxPacketSamples = (MaxPacketSize - HeaderSize) / SampleSize

// Reader reads packets from a tracebuf stream.
//
// Reader is not safe for concurrent use.
type Reader struct {
	r      io.Reader
	hdrBuf [HeaderSize]byte
}

// NewReader creates a Reader that reads packets from r.
//
// Reader performs many small reads; r should be buffered.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next reads the next packet from the stream.
//
// At a clean packet boundary with no more data, Next returns io.EOF. If the
// stream ends partway through a packet, Next returns io.ErrUnexpectedEOF.
func (r *Reader) Next() (*Packet, error) {
	switch amt, err := io.ReadFull(r.r, r.hdrBuf[:]); {
	case err == io.EOF && amt == 0:
		return nil, io.EOF
	case err == io.EOF, err == io.ErrUnexpectedEOF:
		return nil, io.ErrUnexpectedEOF
	case err != nil:
		return nil, err
	}

	var p Packet
	if err := struc.UnpackWithOptions(bytes.NewReader(r.hdrBuf[:]), &p.Header, &strucOptions); err != nil {
		return nil, errors.Wrap(err, "could not unpack tracebuf header")
	}

	if p.NumSamples < 0 || p.NumSamples > MaxPacketSamples {
		return nil, errors.Errorf("invalid sample count %d", p.NumSamples)
	}
	if p.DataType != DataTypeInt32 {
		return nil, errors.Errorf("unsupported datatype %q", trimField(p.DataType[:]))
	}

	p.Samples = make([]int32, p.NumSamples)
	if err := binary.Read(r.r, byteOrder, p.Samples); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &p, nil
}
