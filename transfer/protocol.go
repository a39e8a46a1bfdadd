// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package transfer moves SAC files from a client to a server over TCP.
//
// The server drives each connection with four commands, each sent as ASCII
// text terminated by a newline:
//
//	getName  client replies with a BlockSize-byte, NUL-padded file name.
//	getSize  client replies with the file size as a BlockSize-byte big-endian
//	         unsigned integer.
//	getFile  client replies with exactly that many raw file bytes.
//	end      the transfer is complete; both sides close the connection.
//
// One file is transferred per connection.
package transfer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultPort is the default TCP port of the transfer server.
	DefaultPort = 8888

	// BlockSize is the size of the name and size reply blocks.
	BlockSize = 1024

	// maxCommandSize bounds the length of a single command line.
	maxCommandSize = 64
)

// Command is a request sent by the server.
type Command string

const (
	// CommandGetName requests the file name.
	CommandGetName Command = "getName"
	// CommandGetSize requests the file size.
	CommandGetSize Command = "getSize"
	// CommandGetFile requests the file contents.
	CommandGetFile Command = "getFile"
	// CommandEnd ends the transfer.
	CommandEnd Command = "end"
)

func (c Command) valid() bool {
	switch c {
	case CommandGetName, CommandGetSize, CommandGetFile, CommandEnd:
		return true
	default:
		return false
	}
}

func writeCommand(w io.Writer, c Command) error {
	_, err := io.WriteString(w, string(c)+"\n")
	return err
}

// readCommand reads the next command from br.
//
// If the connection closes cleanly before a command begins, io.EOF is
// returned.
func readCommand(br *bufio.Reader) (Command, error) {
	var line []byte
	for {
		b, err := br.ReadByte()
		switch {
		case err == io.EOF && len(line) == 0:
			return "", io.EOF
		case err == io.EOF:
			return "", io.ErrUnexpectedEOF
		case err != nil:
			return "", err
		}

		if b == '\n' {
			break
		}
		if len(line) >= maxCommandSize {
			return "", errors.Errorf("command exceeds %d bytes", maxCommandSize)
		}
		line = append(line, b)
	}

	c := Command(strings.TrimSpace(string(line)))
	if !c.valid() {
		return "", errors.Errorf("unknown command %q", c)
	}
	return c, nil
}

// encodeName builds the name reply block for name.
func encodeName(name string) ([]byte, error) {
	if len(name) > BlockSize {
		return nil, errors.Errorf("file name is %d bytes, limit is %d", len(name), BlockSize)
	}
	block := make([]byte, BlockSize)
	copy(block, name)
	return block, nil
}

// decodeName extracts and validates a file name from a name reply block.
//
// Only the base name is kept, so a client cannot place files outside of the
// server's directory.
func decodeName(block []byte) (string, error) {
	if idx := bytes.IndexByte(block, 0); idx >= 0 {
		if len(bytes.Trim(block[idx:], "\x00")) != 0 {
			return "", errors.New("file name contains a NUL byte")
		}
		block = block[:idx]
	}

	name := strings.TrimSpace(string(block))
	name = path.Base(strings.Replace(name, "\\", "/", -1))
	switch name {
	case "", ".", "..", "/":
		return "", errors.Errorf("invalid file name %q", string(block))
	}
	return name, nil
}

// encodeSize builds the size reply block for size.
func encodeSize(size uint64) []byte {
	block := make([]byte, BlockSize)
	binary.BigEndian.PutUint64(block[BlockSize-8:], size)
	return block
}

// decodeSize extracts the size from a size reply block.
func decodeSize(block []byte) (uint64, error) {
	if len(block) != BlockSize {
		return 0, errors.Errorf("size block is %d bytes, expected %d", len(block), BlockSize)
	}
	for _, b := range block[:BlockSize-8] {
		if b != 0 {
			return 0, errors.New("file size exceeds 64 bits")
		}
	}
	return binary.BigEndian.Uint64(block[BlockSize-8:]), nil
}
