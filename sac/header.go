// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package sac

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size, in bytes, of an encoded SAC header.
	HeaderSize = 632

	// SampleSize is the size, in bytes, of a single encoded sample.
	SampleSize = 4

	// NumFloats is the number of float32 values in the header.
	NumFloats = 70
	// NumInts is the number of 32-bit integer values in the header.
	NumInts = 40
	// NumTexts is the number of 8-byte string slots in the header.
	NumTexts = 24
)

// byteOrder is the order SAC values are read and written in. It must match
// the order of the host that produced the file.
var byteOrder binary.ByteOrder = binary.LittleEndian

var strucOptions = struc.Options{Order: byteOrder}

// Header is the fixed SAC binary header.
//
// Field order and widths mirror sachead.h exactly; struc packs the struct
// with no alignment padding:
//
//	float   [70]  delta ... cmpinc, blank4[11]
//	int32_t [40]  nzyear ... isynth, blank7[10], leven ... lblank1
//	char    [24*8] kstnm, kevnm[16], khole ... kinst
type Header struct {
	// Delta is the nominal sample interval, in seconds.
	Delta  float32
	DepMin float32
	DepMax float32
	Scale  float32
	ODelta float32
	// B and E are the begin and end values of the independent variable.
	B         float32
	E         float32
	O         float32
	A         float32
	Internal1 float32
	// T holds the user-defined time picks t0..t9.
	T    [10]float32
	F    float32
	Resp [10]float32
	// Station latitude, longitude, elevation and depth.
	StLa float32
	StLo float32
	StEl float32
	StDp float32
	// Event latitude, longitude, elevation and depth.
	EvLa      float32
	EvLo      float32
	EvEl      float32
	EvDp      float32
	Blank1    float32
	User      [10]float32
	Dist      float32
	Az        float32
	BAz       float32
	GCArc     float32
	Internal2 float32
	Internal3 float32
	DepMen    float32
	CmpAz     float32
	CmpInc    float32
	Blank4    [11]float32

	// Reference time. NzJDay is the day of the year, starting at 1.
	NzYear int32
	NzJDay int32
	NzHour int32
	NzMin  int32
	NzSec  int32
	NzMSec int32

	Internal4 int32
	Internal5 int32
	Internal6 int32
	// NPts is the number of samples following the header.
	NPts      int32
	Internal7 int32
	Internal8 int32
	Blank6    [3]int32
	IfType    int32
	IDep      int32
	IzType    int32
	IBlank6a  int32
	IInst     int32
	IStReg    int32
	IEvReg    int32
	IEvTyp    int32
	IQual     int32
	ISynth    int32
	Blank7    [10]int32
	LEven     uint32
	LPSPol    uint32
	LOvrOK    uint32
	LCalDA    uint32
	LBlank1   uint32

	// KStNm is the station name.
	KStNm  Text
	KEvNm  EventName
	// KHole is the SEED location code.
	KHole  Text
	KO     Text
	KA     Text
	KT0    Text
	KT1    Text
	KT2    Text
	KT3    Text
	KT4    Text
	KT5    Text
	KT6    Text
	KT7    Text
	KT8    Text
	KT9    Text
	KF     Text
	KUser0 Text
	KUser1 Text
	KUser2 Text
	// KCmpNm is the component (channel) name.
	KCmpNm Text
	// KNetwk is the network name.
	KNetwk Text
	KDatRd Text
	KInst  Text
}

// DecodeHeader decodes a Header from the beginning of data.
//
// If data is too short to contain a header, or its contents could not be
// unpacked, an error caused by ErrFormat is returned.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, errors.Wrapf(ErrFormat, "header requires %d bytes, have %d", HeaderSize, len(data))
	}

	var h Header
	if err := struc.UnpackWithOptions(bytes.NewReader(data[:HeaderSize]), &h, &strucOptions); err != nil {
		return nil, errors.Wrapf(ErrFormat, "could not unpack header: %s", err)
	}
	return &h, nil
}

// ReadHeader reads and decodes a Header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrFormat, "short header: %s", err)
		}
		return nil, err
	}
	return DecodeHeader(buf[:])
}

// Encode encodes h into its HeaderSize-byte binary form.
func (h *Header) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	if err := struc.PackWithOptions(&buf, h, &strucOptions); err != nil {
		return nil, errors.Wrap(err, "could not pack header")
	}
	if buf.Len() != HeaderSize {
		return nil, errors.Errorf("packed header is %d bytes, expected %d", buf.Len(), HeaderSize)
	}
	return buf.Bytes(), nil
}

// DataSize returns the number of sample bytes h declares.
func (h *Header) DataSize() int64 { return int64(h.NPts) * SampleSize }

// FileSize returns the total file size h declares.
func (h *Header) FileSize() int64 { return HeaderSize + h.DataSize() }

// CheckSize verifies that a file of size bytes is consistent with h.
//
// A mismatch returns an error caused by ErrConsistency.
func (h *Header) CheckSize(size int64) error {
	if h.NPts < 0 || h.FileSize() != size {
		return errors.Wrapf(ErrConsistency, "header declares %d point(s) (%d bytes), file has %d bytes",
			h.NPts, h.FileSize(), size)
	}
	return nil
}

// NewHeader returns a Header with every value set to its undefined sentinel,
// the reference time zeroed, and the given sample layout.
//
// This matches the blank header SAC tools produce for new files.
func NewHeader(npts int, delta float32) *Header {
	h := Header{
		NzYear: 1970,
		NzJDay: 1,
		IfType: 1, // ITIME: time series file.
		IzType: 9, // IB: reference time is the begin time.
		LEven:  1,
	}
	undefineFloats(&h)
	undefineInts(&h)
	undefineTexts(&h)

	h.Delta = delta
	h.E = delta * float32(npts-1)
	h.NPts = int32(npts)
	return &h
}

func undefineFloats(h *Header) {
	for _, p := range []*float32{
		&h.DepMin, &h.DepMax, &h.Scale, &h.ODelta, &h.O, &h.A, &h.Internal1, &h.F,
		&h.StLa, &h.StLo, &h.StEl, &h.StDp, &h.EvLa, &h.EvLo, &h.EvEl, &h.EvDp, &h.Blank1,
		&h.Dist, &h.Az, &h.BAz, &h.GCArc, &h.Internal2, &h.Internal3, &h.DepMen, &h.CmpAz, &h.CmpInc,
	} {
		*p = UndefinedFloat
	}
	for _, arr := range [][]float32{h.T[:], h.Resp[:], h.User[:], h.Blank4[:]} {
		for i := range arr {
			arr[i] = UndefinedFloat
		}
	}
}

func undefineInts(h *Header) {
	for _, p := range []*int32{
		&h.Internal4, &h.Internal5, &h.Internal6, &h.Internal7, &h.Internal8,
		&h.IDep, &h.IBlank6a, &h.IInst, &h.IStReg, &h.IEvReg, &h.IEvTyp, &h.IQual, &h.ISynth,
	} {
		*p = UndefinedInt
	}
	for _, arr := range [][]int32{h.Blank6[:], h.Blank7[:]} {
		for i := range arr {
			arr[i] = UndefinedInt
		}
	}
}

func undefineTexts(h *Header) {
	for _, p := range []*Text{
		&h.KStNm, &h.KHole, &h.KO, &h.KA,
		&h.KT0, &h.KT1, &h.KT2, &h.KT3, &h.KT4, &h.KT5, &h.KT6, &h.KT7, &h.KT8, &h.KT9,
		&h.KF, &h.KUser0, &h.KUser1, &h.KUser2, &h.KCmpNm, &h.KNetwk, &h.KDatRd, &h.KInst,
	} {
		*p = UndefinedTextValue()
	}
	h.KEvNm = MakeEventName(UndefinedText)
}
