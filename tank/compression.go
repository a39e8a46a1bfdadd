// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Compression is the compression applied to an archived tank file.
type Compression int

const (
	// CompressionNone stores the tracebuf stream as-is.
	CompressionNone Compression = iota
	// CompressionSnappy uses framed snappy compression.
	CompressionSnappy
	// CompressionGzip uses gzip compression.
	CompressionGzip
)

var compressionNames = []string{
	CompressionNone:   "NONE",
	CompressionSnappy: "SNAPPY",
	CompressionGzip:   "GZIP",
}

func (c Compression) String() string {
	if c >= 0 && int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return "UNKNOWN"
}

// ParseCompression parses a compression name. Names are not case-sensitive.
func ParseCompression(v string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(v, name) {
			return Compression(i), nil
		}
	}
	return CompressionNone, errors.Errorf("unknown compression type: %q (expected one of %s)",
		v, CompressionValues())
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(v []byte) (err error) {
	*c, err = ParseCompression(string(v))
	return
}

// CompressionValues returns the list of possible Compression names.
func CompressionValues() string { return strings.Join(compressionNames, ", ") }

// CompressionFlag is a pflag.Value implementation that stores a compression
// value.
type CompressionFlag Compression

var _ pflag.Value = (*CompressionFlag)(nil)

func (cf *CompressionFlag) String() string { return Compression(*cf).String() }

// Set implements pflag.Value.
func (cf *CompressionFlag) Set(v string) error {
	cv, err := ParseCompression(v)
	if err != nil {
		return err
	}
	*cf = CompressionFlag(cv)
	return nil
}

// Type implements pflag.Value.
func (cf *CompressionFlag) Type() string { return "tank.Compression" }

// Value returns the compression value held by this flag.
func (cf CompressionFlag) Value() Compression { return Compression(cf) }
