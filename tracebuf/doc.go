// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package tracebuf encodes waveform data as Earthworm TRACEBUF2 packets.
//
// A tracebuf stream is a sequence of packets with no file-level header or
// trailer. Each packet is a fixed 64-byte header followed immediately by its
// samples as little-endian ("i4") signed 32-bit integers:
//
//	int32    pinno       always 0
//	int32    nsamp       samples in this packet
//	float64  starttime   epoch seconds of the first sample
//	float64  endtime     epoch seconds of the last sample
//	float64  samprate    samples per second
//	char[7]  sta
//	char[9]  net
//	char[4]  chan
//	char[3]  loc
//	char[2]  version     "20"
//	char[3]  datatype    "i4"
//	char[2]  quality
//	char[2]  pad
//
// A stream is valid after any whole number of packets, which allows many
// conversions to append to the same stream.
package tracebuf
