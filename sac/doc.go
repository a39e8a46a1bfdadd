// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package sac decodes and encodes SAC ("Seismic Analysis Code") binary
// waveform files.
//
// A SAC file is a fixed 632-byte header followed immediately by NPts
// single-precision samples:
//
//	[  0:280] 70 float32 header values (Delta, station/event geometry, ...)
//	[280:440] 40 int32 header values (reference time, NPts, enumerations, ...)
//	[440:632] 24 8-byte ASCII slots (the event name occupies two)
//	[632:   ] NPts float32 samples
//
// The header is read in the byte order of the host that produced it, which
// is assumed to be little-endian. No byte swapping is attempted: a file whose
// size disagrees with its declared NPts is rejected as inconsistent, since
// that is the usual symptom of foreign byte order.
package sac
