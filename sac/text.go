// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package sac

import (
	"strings"
)

const (
	// UndefinedText is the exact 8-byte value SAC stores in a string slot that
	// holds no value.
	UndefinedText = "-12345  "

	// UndefinedFloat is the value SAC stores in an undefined float slot.
	UndefinedFloat float32 = -12345.0

	// UndefinedInt is the value SAC stores in an undefined integer slot.
	UndefinedInt int32 = -12345

	// TextLen is the width of a standard SAC string slot.
	TextLen = 8
)

// Text is a single fixed-width SAC string slot.
//
// Text values are blank-padded on the wire. A slot may hold the undefined
// sentinel, which must be compared verbatim: "-12345" followed by two blanks.
type Text [TextLen]byte

// MakeText builds a blank-padded Text from s. Bytes beyond TextLen are
// dropped.
func MakeText(s string) (t Text) {
	fillText(t[:], s)
	return
}

// UndefinedTextValue returns a Text holding the undefined sentinel.
func UndefinedTextValue() Text { return MakeText(UndefinedText) }

// IsUndefined returns true if t holds the undefined sentinel.
func (t Text) IsUndefined() bool { return string(t[:]) == UndefinedText }

// Value returns the trimmed content of t. If t is undefined, Value returns
// false.
func (t Text) Value() (string, bool) {
	if t.IsUndefined() {
		return "", false
	}
	return trimText(t[:]), true
}

// Trimmed returns t with surrounding blanks and NULs removed, without any
// interpretation of the undefined sentinel.
func (t Text) Trimmed() string { return trimText(t[:]) }

func (t Text) String() string {
	if v, ok := t.Value(); ok {
		return v
	}
	return "<undefined>"
}

// EventName is the two-slot (16-byte) SAC event name field.
type EventName [2 * TextLen]byte

// MakeEventName builds a blank-padded EventName from s.
func MakeEventName(s string) (n EventName) {
	fillText(n[:], s)
	return
}

// IsUndefined returns true if n holds the undefined sentinel in its first
// slot and nothing in its second.
func (n EventName) IsUndefined() bool {
	return string(n[:TextLen]) == UndefinedText && trimText(n[TextLen:]) == ""
}

// Value returns the trimmed event name. If it is undefined, Value returns
// false.
func (n EventName) Value() (string, bool) {
	if n.IsUndefined() {
		return "", false
	}
	return trimText(n[:]), true
}

func (n EventName) String() string {
	if v, ok := n.Value(); ok {
		return v
	}
	return "<undefined>"
}

func fillText(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}

func trimText(b []byte) string { return strings.Trim(string(b), " \x00") }
