// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package fmtutil contains formatting helpers.
package fmtutil

import (
	"encoding/hex"
	"math"
	"time"
)

// Hex is a byte slice that renders as a hex-dumped string.
//
// It can be used for easy lazy hex dumping.
type Hex []byte

func (h Hex) String() string { return hex.Dump([]byte(h)) }

// EpochLayout is the layout used to render an Epoch.
const EpochLayout = "2006-01-02T15:04:05.000Z"

// Epoch is a time in fractional seconds since the Unix epoch. It renders as
// a UTC timestamp rounded to the millisecond.
type Epoch float64

// Time returns e as a UTC time.Time, rounded to the millisecond.
func (e Epoch) Time() time.Time {
	secs := math.Floor(float64(e))
	msecs := math.Round((float64(e) - secs) * 1000)
	return time.Unix(int64(secs), int64(msecs)*int64(time.Millisecond)).UTC()
}

func (e Epoch) String() string {
	if math.IsNaN(float64(e)) || math.IsInf(float64(e), 0) {
		return "invalid"
	}
	return e.Time().Format(EpochLayout)
}
