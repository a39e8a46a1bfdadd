// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package transfer

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danjacques/gotracebuf/support/logging"

	"github.com/pkg/errors"
)

// DefaultDialTimeout is the default time allowed to connect to a server.
const DefaultDialTimeout = 10 * time.Second

// Client sends files to a transfer Server.
type Client struct {
	// Logger, if not nil, is used to log client activity.
	Logger logging.L

	// Addr is the server's address, in "host:port" form.
	Addr string

	// DialTimeout bounds the time spent connecting. If <= 0,
	// DefaultDialTimeout is used.
	DialTimeout time.Duration
}

// Send transfers the file at path to the server over a new connection.
func (c *Client) Send(ctx context.Context, path string) error {
	logger := logging.Must(c.Logger)

	dialer := net.Dialer{Timeout: c.dialTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", c.Addr)
	}

	stopC := make(chan struct{})
	defer func() {
		close(stopC)
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stopC:
		}
	}()

	logger.Debugf("Connected to %s; sending %q.", c.Addr, path)
	if err := c.answer(conn, path); err != nil {
		clientErrors.Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(err, "sending %q", path)
	}
	filesSent.Inc()
	logger.Infof("Sent %q to %s.", path, c.Addr)
	return nil
}

// answer responds to server commands until the server sends CommandEnd.
func (c *Client) answer(conn net.Conn, path string) error {
	br := bufio.NewReader(conn)
	for {
		cmd, err := readCommand(br)
		switch {
		case err == io.EOF:
			return errors.New("server closed the connection before the transfer ended")
		case err != nil:
			return err
		}

		switch cmd {
		case CommandGetName:
			block, err := encodeName(filepath.Base(path))
			if err != nil {
				return err
			}
			if _, err := conn.Write(block); err != nil {
				return errors.Wrap(err, "sending name")
			}

		case CommandGetSize:
			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			if _, err := conn.Write(encodeSize(uint64(st.Size()))); err != nil {
				return errors.Wrap(err, "sending size")
			}

		case CommandGetFile:
			if err := sendFile(conn, path); err != nil {
				return err
			}

		case CommandEnd:
			return nil
		}
	}
}

func sendFile(w io.Writer, path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = fd.Close()
	}()

	amt, err := io.Copy(w, fd)
	bytesSent.Add(float64(amt))
	if err != nil {
		return errors.Wrap(err, "sending file contents")
	}
	return nil
}

// SendList sends every file named in the list file at listPath, one
// connection per file. The list's first line is a header and is ignored.
// Blank lines are skipped. Relative names are resolved against dir, or
// against the list file's directory if dir is empty.
//
// SendList stops at the first failure, returning the number of files sent.
func (c *Client) SendList(ctx context.Context, listPath, dir string) (int, error) {
	names, err := ReadList(listPath)
	if err != nil {
		return 0, err
	}
	if dir == "" {
		dir = filepath.Dir(listPath)
	}

	for i, name := range names {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		if err := c.Send(ctx, name); err != nil {
			return i, err
		}
	}
	return len(names), nil
}

// ReadList reads the file names from a list file, skipping its header line
// and any blank lines.
func ReadList(listPath string) ([]string, error) {
	fd, err := os.Open(listPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = fd.Close()
	}()

	var names []string
	scanner := bufio.NewScanner(fd)
	for first := true; scanner.Scan(); first = false {
		if first {
			continue
		}
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading list %q", listPath)
	}
	return names, nil
}

func (c *Client) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return DefaultDialTimeout
}
