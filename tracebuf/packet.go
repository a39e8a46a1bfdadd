// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tracebuf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/danjacques/gotracebuf/support/fmtutil"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size of an encoded packet header.
	HeaderSize = 64

	// SampleSize is the size of a single encoded "i4" sample.
	SampleSize = 4

	// StationLen, NetworkLen, ChannelLen, and LocationLen are the on-wire
	// widths of the identifier fields. Longer values are truncated.
	StationLen  = 7
	NetworkLen  = 9
	ChannelLen  = 4
	LocationLen = 3
)

var (
	// Version is the TRACEBUF2 version tag (2.0).
	Version = [2]byte{'2', '0'}

	// DataTypeInt32 is the datatype tag for little-endian int32 samples.
	DataTypeInt32 = [3]byte{'i', '4', 0}
)

var byteOrder binary.ByteOrder = binary.LittleEndian

var strucOptions = struc.Options{Order: byteOrder}

// Header is a TRACEBUF2 packet header.
type Header struct {
	// PinNumber is always 0 for converted data.
	PinNumber int32
	// NumSamples is the number of samples following the header.
	NumSamples int32

	// StartTime and EndTime are the epoch times, in seconds, of the first and
	// last samples in the packet.
	StartTime float64
	EndTime   float64

	// SampleRate is the number of samples per second.
	SampleRate float64

	Station  [StationLen]byte
	Network  [NetworkLen]byte
	Channel  [ChannelLen]byte
	Location [LocationLen]byte

	Version  [2]byte
	DataType [3]byte
	Quality  [2]byte
	Pad      []byte `struc:"[2]pad"`
}

// StationName returns the station identifier without NUL padding.
func (h *Header) StationName() string { return trimField(h.Station[:]) }

// NetworkName returns the network identifier without NUL padding.
func (h *Header) NetworkName() string { return trimField(h.Network[:]) }

// ChannelName returns the channel identifier without NUL padding.
func (h *Header) ChannelName() string { return trimField(h.Channel[:]) }

// LocationName returns the location identifier without NUL padding.
func (h *Header) LocationName() string { return trimField(h.Location[:]) }

// SCNL returns the "station.channel.network.location" identifier of the
// packet. An empty location is rendered as "--".
func (h *Header) SCNL() string {
	loc := h.LocationName()
	if loc == "" {
		loc = "--"
	}
	return fmt.Sprintf("%s.%s.%s.%s", h.StationName(), h.ChannelName(), h.NetworkName(), loc)
}

// Packet is a single TRACEBUF2 packet.
type Packet struct {
	Header

	// Samples holds NumSamples values.
	Samples []int32
}

// Size returns the encoded size of p.
func (p *Packet) Size() int { return HeaderSize + len(p.Samples)*SampleSize }

// Encode returns the binary form of p. The header's NumSamples is taken from
// len(p.Samples).
func (p *Packet) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(p.Size())
	if err := p.encodeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the encoded packet to w in a single Write call.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	data, err := p.Encode()
	if err != nil {
		return 0, err
	}
	amt, err := w.Write(data)
	return int64(amt), err
}

func (p *Packet) encodeTo(buf *bytes.Buffer) error {
	p.NumSamples = int32(len(p.Samples))
	if err := struc.PackWithOptions(buf, &p.Header, &strucOptions); err != nil {
		return errors.Wrap(err, "could not pack tracebuf header")
	}
	return binary.Write(buf, byteOrder, p.Samples)
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s nsamp=%d start=%s end=%s rate=%g",
		p.SCNL(), p.NumSamples, fmtutil.Epoch(p.StartTime), fmtutil.Epoch(p.EndTime), p.SampleRate)
}

// Trace describes the channel that a series of packets belongs to.
type Trace struct {
	Station  string
	Network  string
	Channel  string
	Location string

	// SampleRate is the number of samples per second.
	SampleRate float64
}

// Header builds the packet header for seg.
func (t *Trace) Header(seg *Segment) Header {
	h := Header{
		NumSamples: int32(len(seg.Samples)),
		StartTime:  seg.Start,
		EndTime:    seg.End,
		SampleRate: t.SampleRate,
		Version:    Version,
		DataType:   DataTypeInt32,
	}
	copy(h.Station[:], t.Station)
	copy(h.Network[:], t.Network)
	copy(h.Channel[:], t.Channel)
	copy(h.Location[:], t.Location)
	return h
}

// Packet builds the packet for seg, converting its samples with
// TruncateSample.
func (t *Trace) Packet(seg *Segment) *Packet {
	p := Packet{
		Header:  t.Header(seg),
		Samples: make([]int32, len(seg.Samples)),
	}
	for i, v := range seg.Samples {
		p.Samples[i] = TruncateSample(v)
	}
	return &p
}

// TruncateSample converts v to an integer sample by truncating toward zero.
//
// Values outside the int32 range saturate. NaN becomes 0.
func TruncateSample(v float32) int32 {
	switch f := float64(v); {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(f)
	}
}

func trimField(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	return string(b)
}
