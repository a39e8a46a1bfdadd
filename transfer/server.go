// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package transfer

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/danjacques/gotracebuf/support/fmtutil"
	"github.com/danjacques/gotracebuf/support/logging"
	"github.com/danjacques/gotracebuf/support/stagingdir"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultMaxFileSize is the default limit on the size of a received file
// (1GB).
const DefaultMaxFileSize = 1024 * 1024 * 1024

// Handler processes a file once it has been received.
type Handler interface {
	HandleFile(ctx context.Context, path string) error
}

// HandlerFunc is a Handler implemented by a function.
type HandlerFunc func(ctx context.Context, path string) error

// HandleFile implements Handler.
func (fn HandlerFunc) HandleFile(ctx context.Context, path string) error { return fn(ctx, path) }

// Server receives files from transfer clients.
//
// Connections are served one at a time, in the order they are accepted.
type Server struct {
	// Logger, if not nil, is used to log server activity.
	Logger logging.L

	// Dir is the directory that received files are placed in.
	Dir string
	// TempDir is where files are staged while they are received. It must be
	// on the same filesystem as Dir. If empty, a directory underneath of Dir is
	// used.
	TempDir string

	// MaxFileSize is the largest file that will be accepted. If <= 0,
	// DefaultMaxFileSize is used.
	MaxFileSize int64

	// Timeout, if > 0, bounds the time spent on a single connection.
	Timeout time.Duration

	// Handler, if not nil, is called with the path of each received file after
	// the client has been released.
	Handler Handler
}

// Serve accepts and serves connections from l until ctx is cancelled or l
// fails.
//
// Serve takes ownership of l, and closes it before returning. If ctx is
// cancelled, Serve returns nil.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	logger := logging.Must(s.Logger)

	stopC := make(chan struct{})
	defer close(stopC)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopC:
		}
		_ = l.Close()
	}()

	logger.Infof("Receiving files on %s into %q.", l.Addr(), s.Dir)
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accepting connection")
		}

		path, err := s.serveConn(ctx, conn)
		if err != nil {
			logger.Warnf("Transfer from %s failed: %s", conn.RemoteAddr(), err)
			continue
		}

		if s.Handler != nil {
			if err := s.Handler.HandleFile(ctx, path); err != nil {
				serverErrors.WithLabelValues("handler").Inc()
				logger.Errorf("Could not handle received file %q: %s", path, err)
			}
		}
	}
}

// serveConn performs a single transfer over conn, returning the path of the
// received file. conn is closed before serveConn returns.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) (string, error) {
	session := uuid.New().String()
	logger := logging.Must(s.Logger)
	logger.Debugf("[%s] Connection from %s.", session, conn.RemoteAddr())
	connections.Inc()

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

	if s.Timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.Timeout)); err != nil {
			return "", errors.Wrap(err, "setting deadline")
		}
	}

	path, err := s.receive(conn, session)
	if err != nil {
		serverErrors.WithLabelValues(errorType(err)).Inc()
		return "", errors.Wrapf(err, "session %s", session)
	}
	logger.Infof("[%s] Received %q from %s.", session, path, conn.RemoteAddr())
	return path, nil
}

func (s *Server) receive(conn net.Conn, session string) (string, error) {
	logger := logging.Must(s.Logger)
	block := make([]byte, BlockSize)

	// Name.
	if err := writeCommand(conn, CommandGetName); err != nil {
		return "", errors.Wrap(err, "requesting name")
	}
	if _, err := io.ReadFull(conn, block); err != nil {
		return "", errors.Wrap(err, "reading name")
	}
	name, err := decodeName(block)
	if err != nil {
		logger.Debugf("[%s] Rejected name block:\n%s", session, fmtutil.Hex(bytes.TrimRight(block, "\x00")))
		return "", protocolError{err}
	}
	logger.Debugf("[%s] Name: %q", session, name)

	// Size.
	if err := writeCommand(conn, CommandGetSize); err != nil {
		return "", errors.Wrap(err, "requesting size")
	}
	if _, err := io.ReadFull(conn, block); err != nil {
		return "", errors.Wrap(err, "reading size")
	}
	size, err := decodeSize(block)
	if err != nil {
		return "", protocolError{err}
	}
	if size > uint64(s.maxFileSize()) {
		return "", protocolError{errors.Errorf("file %q is %d bytes, limit is %d", name, size, s.maxFileSize())}
	}
	logger.Debugf("[%s] Size: %d", session, size)

	// Contents.
	sd, err := stagingdir.New(s.tempDir(), "receive")
	if err != nil {
		return "", errors.Wrap(err, "creating staging directory")
	}
	defer func() {
		if err := sd.Destroy(); err != nil {
			logger.Warnf("[%s] Could not remove staging directory: %s", session, err)
		}
	}()

	if err := writeCommand(conn, CommandGetFile); err != nil {
		return "", errors.Wrap(err, "requesting file")
	}
	fd, err := sd.Create(name)
	if err != nil {
		return "", err
	}
	amt, err := io.CopyN(fd, conn, int64(size))
	if cerr := fd.Close(); err == nil {
		err = cerr
	}
	bytesReceived.Add(float64(amt))
	if err != nil {
		return "", errors.Wrapf(err, "receiving %q (%d of %d byte(s))", name, amt, size)
	}

	dest := filepath.Join(s.Dir, name)
	if err := sd.Commit(name, dest); err != nil {
		return "", err
	}
	filesReceived.Inc()

	if err := writeCommand(conn, CommandEnd); err != nil {
		// The file is complete; the client just won't hear about it.
		logger.Warnf("[%s] Could not send end: %s", session, err)
	}
	return dest, nil
}

func (s *Server) maxFileSize() int64 {
	if s.MaxFileSize > 0 {
		return s.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (s *Server) tempDir() string {
	if s.TempDir != "" {
		return s.TempDir
	}
	return filepath.Join(s.Dir, ".incoming")
}

// protocolError is an error caused by a client violating the protocol.
type protocolError struct {
	error
}

func errorType(err error) string {
	switch errors.Cause(err).(type) {
	case protocolError:
		return "protocol"
	case net.Error:
		return "network"
	case *os.PathError, *os.LinkError:
		return "filesystem"
	default:
		return "other"
	}
}
