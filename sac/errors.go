// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package sac

import (
	"github.com/pkg/errors"
)

var (
	// ErrFormat is the cause of errors returned when a SAC header cannot be
	// decoded, usually because the input is truncated.
	ErrFormat = errors.New("malformed SAC data")

	// ErrConsistency is the cause of errors returned when a SAC file's size
	// does not match the size its header declares. This typically means the
	// file was written with a foreign byte order, which is not supported.
	ErrConsistency = errors.New("SAC size mismatch (byte-swapped files are not supported)")
)

// IsFormatError returns true if err was caused by ErrFormat.
func IsFormatError(err error) bool { return errors.Cause(err) == ErrFormat }

// IsConsistencyError returns true if err was caused by ErrConsistency.
func IsConsistencyError(err error) bool { return errors.Cause(err) == ErrConsistency }
