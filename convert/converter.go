// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package convert translates SAC files into TRACEBUF2 packet streams.
package convert

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/danjacques/gotracebuf/sac"
	"github.com/danjacques/gotracebuf/support/appendfile"
	"github.com/danjacques/gotracebuf/support/logging"
	"github.com/danjacques/gotracebuf/tracebuf"

	"github.com/pkg/errors"
)

// ErrInvalidSampleRate is the SkipReason of a Result whose source declared a
// sample interval below the Converter's minimum.
var ErrInvalidSampleRate = errors.New("sample interval too small")

// Result describes the outcome of a single conversion.
type Result struct {
	// Source and Destination are the paths used for the conversion.
	Source      string
	Destination string

	Station  string
	Network  string
	Channel  string
	Location string

	// Start is the reference time of the first sample.
	Start time.Time
	// SampleRate is the derived number of samples per second.
	SampleRate float64

	// Packets is the number of packets appended to Destination.
	Packets int
	// Samples is the total number of samples appended.
	Samples int
	// Bytes is the number of bytes appended.
	Bytes int

	// Skipped is true if the source was valid but produced no output. If so,
	// SkipReason explains why.
	Skipped    bool
	SkipReason error
}

func (r *Result) String() string {
	if r.Skipped {
		return fmt.Sprintf("%s: skipped (%s)", r.Source, r.SkipReason)
	}
	return fmt.Sprintf("%s: %s.%s.%s %d packet(s), %d sample(s) => %s",
		r.Source, r.Station, r.Channel, r.Network, r.Packets, r.Samples, r.Destination)
}

// Converter converts SAC files into TRACEBUF2 packets appended to a
// destination stream.
//
// A Converter is safe for concurrent use. Conversions that share a
// destination are serialized through Locker.
type Converter struct {
	// Logger, if not nil, is used to log conversion details.
	Logger logging.L

	// MaxSamples is the maximum number of samples in a packet. If <= 0,
	// tracebuf.DefaultMaxSamples is used. Values above
	// tracebuf.MaxPacketSamples are clamped.
	MaxSamples int

	// MinSampleInterval is the smallest sample interval, in seconds, that
	// will be converted. If <= 0, tracebuf.MinSampleInterval is used.
	MinSampleInterval float64

	// Locker serializes appends to a destination. If nil, appendfile.DefaultLocker
	// is used.
	Locker *appendfile.Locker
}

// Convert reads the SAC file at src and appends its packets to dst.
//
// A source whose sample interval is too small is skipped: Convert returns a
// Result with Skipped set and a nil error, and nothing is written.
//
// Format, consistency and I/O errors are returned as errors. A failed
// conversion never leaves a partial record in dst.
func (c *Converter) Convert(src, dst string) (*Result, error) {
	res, err := c.convert(src, dst)
	switch {
	case err != nil:
		filesFailed.WithLabelValues(failureType(err)).Inc()
	case res.Skipped:
		filesSkipped.Inc()
	default:
		filesConverted.Inc()
		packetsWritten.Add(float64(res.Packets))
		samplesWritten.Add(float64(res.Samples))
		bytesWritten.Add(float64(res.Bytes))
	}
	return res, err
}

func (c *Converter) convert(src, dst string) (*Result, error) {
	logger := logging.Must(c.Logger)

	f, err := sac.ReadFile(src)
	if err != nil {
		return nil, err
	}

	res := Result{
		Source:      src,
		Destination: dst,
		Station:     f.KStNm.Trimmed(),
		Network:     f.KNetwk.Trimmed(),
		Channel:     f.KCmpNm.Trimmed(),
	}
	if loc, ok := f.KHole.Value(); ok {
		res.Location = loc
	}

	interval := float64(f.Delta)
	if interval < c.minSampleInterval() {
		res.Skipped = true
		res.SkipReason = errors.Wrapf(ErrInvalidSampleRate, "interval %gs is below %gs", interval, c.minSampleInterval())
		logger.Warnf("Skipping %q (%s.%s.%s): %s", src, res.Station, res.Channel, res.Network, res.SkipReason)
		return &res, nil
	}

	start := f.ReferenceEpoch()
	res.Start = f.ReferenceTime()
	res.SampleRate = 1.0 / interval

	logger.Debugf("Converting %q: %s.%s.%s.%s, start %s, %d sample(s) at %gHz.",
		src, res.Station, res.Channel, res.Network, res.Location, res.Start, len(f.Data), res.SampleRate)

	trace := tracebuf.Trace{
		Station:    res.Station,
		Network:    res.Network,
		Channel:    res.Channel,
		Location:   res.Location,
		SampleRate: res.SampleRate,
	}

	// Encode everything up front so the destination receives all of this
	// file's packets in a single append, or none of them.
	var buf bytes.Buffer
	buf.Grow(len(f.Data)*tracebuf.SampleSize +
		tracebuf.SegmentCount(len(f.Data), c.maxSamples())*tracebuf.HeaderSize)

	seg := tracebuf.NewSegmenter(f.Data, start, interval, c.maxSamples())
	for seg.Next() {
		s := seg.Segment()
		if _, err := trace.Packet(s).WriteTo(&buf); err != nil {
			return nil, errors.Wrapf(err, "encoding packet %d of %q", res.Packets, src)
		}
		res.Packets++
		res.Samples += len(s.Samples)
	}

	if buf.Len() == 0 {
		return &res, nil
	}
	if err := c.locker().Append(dst, buf.Bytes()); err != nil {
		return nil, err
	}
	res.Bytes = buf.Len()

	logger.Debugf("Appended %d packet(s) (%d byte(s)) to %q.", res.Packets, res.Bytes, dst)
	return &res, nil
}

func (c *Converter) maxSamples() int {
	switch {
	case c.MaxSamples <= 0:
		return tracebuf.DefaultMaxSamples
	case c.MaxSamples > tracebuf.MaxPacketSamples:
		return tracebuf.MaxPacketSamples
	default:
		return c.MaxSamples
	}
}

func (c *Converter) minSampleInterval() float64 {
	if c.MinSampleInterval > 0 {
		return c.MinSampleInterval
	}
	return tracebuf.MinSampleInterval
}

func (c *Converter) locker() *appendfile.Locker {
	if c.Locker != nil {
		return c.Locker
	}
	return &appendfile.DefaultLocker
}

func failureType(err error) string {
	switch {
	case sac.IsFormatError(err):
		return "format"
	case sac.IsConsistencyError(err):
		return "consistency"
	case os.IsNotExist(errors.Cause(err)):
		return "missing"
	default:
		return "io"
	}
}
