// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// DefaultRemuxCommand is the external tool CommandRemuxer runs by default.
const DefaultRemuxCommand = "remux_tbuf"

// Remuxer turns an accumulated tracebuf stream into a tank file.
type Remuxer interface {
	// Remux reads the tracebuf stream at in and writes a tank file to out.
	Remux(ctx context.Context, in, out string) error
}

// CommandRemuxer runs an external program as "<Command> [Args...] <in> <out>".
type CommandRemuxer struct {
	// Command is the program to run. If empty, DefaultRemuxCommand is used.
	Command string
	// Args are additional arguments placed before the input and output paths.
	Args []string
}

var _ Remuxer = (*CommandRemuxer)(nil)

// Remux implements Remuxer.
func (cr *CommandRemuxer) Remux(ctx context.Context, in, out string) error {
	name := cr.Command
	if name == "" {
		name = DefaultRemuxCommand
	}

	args := make([]string, 0, len(cr.Args)+2)
	args = append(args, cr.Args...)
	args = append(args, in, out)

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return errors.Wrapf(err, "running %s: %s", name, msg)
		}
		return errors.Wrapf(err, "running %s", name)
	}
	if _, err := os.Stat(out); err != nil {
		return errors.Wrapf(err, "%s produced no output", name)
	}
	return nil
}

// ArchiveRemuxer stores the tracebuf stream directly, optionally compressed.
type ArchiveRemuxer struct {
	Compression Compression
	// Level is the gzip compression level. If < 0, the default is used.
	Level int
}

var _ Remuxer = (*ArchiveRemuxer)(nil)

// Remux implements Remuxer.
func (ar *ArchiveRemuxer) Remux(ctx context.Context, in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	w, err := newStreamWriter(dst, ar.Compression, ar.Level)
	if err != nil {
		_ = dst.Close()
		return err
	}

	if _, err := io.Copy(w, contextReader{ctx, src}); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "archiving %q", in)
	}
	return w.Close()
}

// contextReader fails reads once its Context is done.
type contextReader struct {
	ctx context.Context
	io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.Reader.Read(p)
}
