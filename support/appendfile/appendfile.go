// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package appendfile serializes appends to shared stream files.
//
// Many conversions may target the same stream file. Locker guarantees that,
// within a process, at most one writer touches a given path at a time, and
// that a failed append never leaves a partial record behind. Writers in other
// processes must be serialized externally.
package appendfile

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// DefaultLocker is the Locker used by the package-level functions.
var DefaultLocker Locker

// Locker holds one lock per destination path.
//
// The zero value is ready to use. A Locker must not be copied after first
// use.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Append appends data to path using DefaultLocker.
func Append(path string, data []byte) error { return DefaultLocker.Append(path, data) }

// Append appends data to the file at path in a single write, creating the
// file if it does not exist.
//
// If the write fails or is short, the file is truncated back to its previous
// size so that no partial data remains.
func (l *Locker) Append(path string, data []byte) error {
	return l.Do(path, func(path string) error {
		return appendLocked(path, data)
	})
}

// Do runs fn while holding the lock for path. fn receives the cleaned
// absolute form of path.
//
// Do is used for operations, such as rotation, that must not interleave with
// appends.
func (l *Locker) Do(path string, fn func(path string) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolving %q", path)
	}

	lock := l.lockFor(abs)
	lock.Lock()
	defer lock.Unlock()
	return fn(abs)
}

func (l *Locker) lockFor(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lock := l.locks[path]
	if lock == nil {
		lock = &sync.Mutex{}
		l.locks[path] = lock
	}
	return lock
}

func appendLocked(path string, data []byte) (err error) {
	fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %q for append", path)
	}
	defer func() {
		if closeErr := fd.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "closing %q", path)
		}
	}()

	st, err := fd.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %q", path)
	}
	size := st.Size()

	amt, err := fd.Write(data)
	if err == nil && amt != len(data) {
		err = errors.Errorf("short write (%d of %d bytes)", amt, len(data))
	}
	if err != nil {
		// Roll back whatever part of the record made it out.
		if terr := fd.Truncate(size); terr != nil {
			return errors.Wrapf(err, "appending to %q (rollback also failed: %s)", path, terr)
		}
		return errors.Wrapf(err, "appending to %q", path)
	}
	return nil
}
