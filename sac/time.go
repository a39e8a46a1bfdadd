// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package sac

import (
	"math"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// ReferenceEpoch returns the reference time described by h as fractional
// seconds since the Unix epoch (UTC).
//
// The reference time is January 1 of NzYear, advanced by NzJDay-1 days and
// the time-of-day fields. NzMSec is added as a fractional second.
func (h *Header) ReferenceEpoch() float64 {
	secs := yearEpoch(int(h.NzYear)) +
		int64(h.NzJDay-1)*secondsPerDay +
		int64(h.NzHour)*60*60 +
		int64(h.NzMin)*60 +
		int64(h.NzSec)
	return float64(secs) + float64(h.NzMSec)/1000.0
}

// ReferenceTime returns ReferenceEpoch as a UTC time.Time, with millisecond
// precision.
func (h *Header) ReferenceTime() time.Time {
	epoch := h.ReferenceEpoch()
	secs := math.Floor(epoch)
	msecs := math.Round((epoch - secs) * 1000)
	return time.Unix(int64(secs), int64(msecs)*int64(time.Millisecond)).UTC()
}

// SetReferenceTime sets h's reference time fields from t, truncated to the
// millisecond.
func (h *Header) SetReferenceTime(t time.Time) {
	t = t.UTC()
	h.NzYear = int32(t.Year())
	h.NzJDay = int32(t.YearDay())
	h.NzHour = int32(t.Hour())
	h.NzMin = int32(t.Minute())
	h.NzSec = int32(t.Second())
	h.NzMSec = int32(t.Nanosecond() / int(time.Millisecond))
}

// yearEpoch returns the Unix time of January 1, 00:00:00 UTC of year, using
// the proleptic Gregorian calendar.
func yearEpoch(year int) int64 {
	// Days since 0001-01-01 under the Gregorian leap-year rules.
	y := int64(year) - 1
	days := 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400)
	return (days - daysBefore1970) * secondsPerDay
}

// daysBefore1970 is the number of days from 0001-01-01 to 1970-01-01.
const daysBefore1970 = 719162

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
