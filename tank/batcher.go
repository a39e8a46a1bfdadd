// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package tank accumulates converted SAC files into a tracebuf stream and
// periodically rotates that stream into numbered tank files.
package tank

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danjacques/gotracebuf/convert"
	"github.com/danjacques/gotracebuf/ledger"
	"github.com/danjacques/gotracebuf/support/appendfile"
	"github.com/danjacques/gotracebuf/support/logging"
	"github.com/danjacques/gotracebuf/support/stagingdir"

	"github.com/pkg/errors"
)

const (
	// DefaultBatchSize is the number of files accumulated before the stream
	// is rotated.
	DefaultBatchSize = 10

	// Extension is the file extension of a tank file.
	Extension = ".tnk"

	// preservedExtension is used for a stream that could not be remuxed.
	preservedExtension = ".tracebuf"

	stagedStreamName = "tracebuf"
)

// ErrDuplicate is the SkipReason of a Result for a file that the ledger
// already records.
var ErrDuplicate = errors.New("file was already converted")

// Batcher converts files into a shared tracebuf stream, rotating the stream
// into a tank file every BatchSize files.
//
// Batcher is safe for concurrent use.
type Batcher struct {
	// Logger, if not nil, is used to log batching activity.
	Logger logging.L

	// Converter converts each file. It must not be nil.
	Converter *convert.Converter

	// StreamPath is the tracebuf stream that files are appended to.
	StreamPath string
	// TankDir is the directory that tank files are written to.
	TankDir string
	// TempDir is used to stage rotations. It must be on the same filesystem
	// as StreamPath and TankDir. If empty, a directory underneath of TankDir
	// is used.
	TempDir string

	// BatchSize is the number of files accumulated per tank file. If <= 0,
	// DefaultBatchSize is used.
	BatchSize int

	// Remuxer builds tank files. If nil, a CommandRemuxer running
	// DefaultRemuxCommand is used.
	Remuxer Remuxer

	// Archive, if not nil, receives each finished tank file.
	Archive Archive

	// Ledger, if not nil, records converted files. A file whose name and size
	// are already recorded is skipped.
	Ledger *ledger.Ledger

	mu      sync.Mutex
	pending int
	// next is the number of the next tank file. It is valid once nextInit is
	// true.
	next     int
	nextInit bool
}

// Add converts the file at path into the stream. If this completes a batch,
// the stream is rotated.
//
// A conversion failure is returned and does not count toward the batch. A
// rotation failure is logged; the file itself was still converted.
func (b *Batcher) Add(ctx context.Context, path string) (*convert.Result, error) {
	logger := logging.Must(b.Logger)

	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	if b.Ledger != nil {
		seen, err := b.Ledger.Seen(name, st.Size())
		if err != nil {
			return nil, err
		}
		if seen {
			duplicateFiles.Inc()
			logger.Infof("Skipping %q: already converted.", name)
			return &convert.Result{
				Source:      path,
				Destination: b.StreamPath,
				Skipped:     true,
				SkipReason:  errors.Wrapf(ErrDuplicate, "%q (%d bytes)", name, st.Size()),
			}, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(b.StreamPath), 0755); err != nil {
		return nil, errors.Wrap(err, "creating stream directory")
	}

	res, err := b.Converter.Convert(path, b.StreamPath)
	if err != nil {
		return nil, err
	}

	if b.Ledger != nil {
		rec := ledger.Record{
			Name:        name,
			Size:        st.Size(),
			Station:     res.Station,
			Channel:     res.Channel,
			Network:     res.Network,
			Packets:     res.Packets,
			Samples:     res.Samples,
			Skipped:     res.Skipped,
			ConvertedAt: time.Now().UTC(),
		}
		if err := b.Ledger.Put(&rec); err != nil {
			logger.Warnf("Could not record %q in ledger: %s", name, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending++
	pendingFiles.Set(float64(b.pending))
	if b.pending >= b.batchSize() {
		if _, err := b.rotateLocked(ctx); err != nil {
			logger.Errorf("Could not rotate %q: %s", b.StreamPath, err)
		}
	}
	return res, nil
}

// Pending returns the number of files added since the last rotation.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Rotate moves the current stream into the next tank file and returns that
// file's path.
//
// If the stream is missing or empty, Rotate does nothing and returns an empty
// path.
func (b *Batcher) Rotate(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rotateLocked(ctx)
}

func (b *Batcher) rotateLocked(ctx context.Context) (string, error) {
	logger := logging.Must(b.Logger)

	b.pending = 0
	pendingFiles.Set(0)

	if !b.nextInit {
		next, err := NextTankNumber(b.TankDir)
		if err != nil {
			rotationErrors.WithLabelValues("scan").Inc()
			return "", err
		}
		b.next, b.nextInit = next, true
	}

	sd, err := stagingdir.New(b.tempDir(), "rotate")
	if err != nil {
		rotationErrors.WithLabelValues("stage").Inc()
		return "", errors.Wrap(err, "creating staging directory")
	}
	defer func() {
		if err := sd.Destroy(); err != nil {
			logger.Warnf("Could not remove staging directory: %s", err)
		}
	}()

	// Move the stream aside while holding its lock, so conversions can
	// resume into a fresh stream immediately.
	staged := false
	err = b.locker().Do(b.StreamPath, func(abs string) error {
		switch st, err := os.Stat(abs); {
		case os.IsNotExist(err):
			return nil
		case err != nil:
			return err
		case st.Size() == 0:
			return nil
		}

		if err := sd.Adopt(abs, stagedStreamName); err != nil {
			return err
		}
		staged = true
		return nil
	})
	if err != nil {
		rotationErrors.WithLabelValues("stage").Inc()
		return "", err
	}
	if !staged {
		logger.Debugf("Stream %q is empty; nothing to rotate.", b.StreamPath)
		return "", nil
	}

	num := b.next
	b.next++
	name := TankName(num)
	dest := filepath.Join(b.TankDir, name)

	if err := b.remuxer().Remux(ctx, sd.Path(stagedStreamName), sd.Path(name)); err != nil {
		rotationErrors.WithLabelValues("remux").Inc()

		preserved := filepath.Join(b.TankDir, strconv.Itoa(num)+preservedExtension)
		if cerr := sd.Commit(stagedStreamName, preserved); cerr != nil {
			logger.Errorf("Could not preserve stream at %q: %s", preserved, cerr)
		} else {
			logger.Warnf("Preserved unremuxed stream at %q.", preserved)
		}
		return "", errors.Wrapf(err, "building %q", name)
	}

	if err := sd.Commit(name, dest); err != nil {
		rotationErrors.WithLabelValues("commit").Inc()
		return "", err
	}
	rotations.Inc()
	logger.Infof("Rotated %q into %q.", b.StreamPath, dest)

	if b.Archive != nil {
		if err := b.Archive.Upload(ctx, name, dest); err != nil {
			rotationErrors.WithLabelValues("archive").Inc()
			return dest, errors.Wrapf(err, "archiving %q", dest)
		}
		archivedFiles.Inc()
		logger.Infof("Archived %q.", name)
	}
	return dest, nil
}

func (b *Batcher) batchSize() int {
	if b.BatchSize > 0 {
		return b.BatchSize
	}
	return DefaultBatchSize
}

func (b *Batcher) tempDir() string {
	if b.TempDir != "" {
		return b.TempDir
	}
	return filepath.Join(b.TankDir, ".staging")
}

func (b *Batcher) remuxer() Remuxer {
	if b.Remuxer != nil {
		return b.Remuxer
	}
	return &CommandRemuxer{}
}

func (b *Batcher) locker() *appendfile.Locker {
	if b.Converter.Locker != nil {
		return b.Converter.Locker
	}
	return &appendfile.DefaultLocker
}

// NextTankNumber returns the number following the highest-numbered tank file
// in dir. If dir holds no tank files, or does not exist, it returns 0.
func NextTankNumber(dir string) (int, error) {
	entries, err := ioutil.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return 0, nil
	case err != nil:
		return 0, errors.Wrapf(err, "listing %q", dir)
	}

	next := 0
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		for _, ext := range []string{Extension, preservedExtension} {
			base := strings.TrimSuffix(ent.Name(), ext)
			if base == ent.Name() {
				continue
			}
			if n, err := strconv.Atoi(base); err == nil && n >= next {
				next = n + 1
			}
		}
	}
	return next, nil
}

// TankName returns the file name of tank number n.
func TankName(n int) string { return fmt.Sprintf("%d%s", n, Extension) }
