// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package ledger records which SAC files have been converted, so that a
// file delivered twice is only appended to the tracebuf stream once.
package ledger

import (
	"strings"
	"time"

	"github.com/danjacques/gotracebuf/support/logging"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Get when no record exists for a name.
var ErrNotFound = errors.New("no ledger record")

const keyPrefix = "sac/"

// Record describes a converted SAC file.
type Record struct {
	// Name is the base name of the source file.
	Name string `msgpack:"name"`
	// Size is the size of the source file, in bytes.
	Size int64 `msgpack:"size"`

	Station string `msgpack:"station"`
	Channel string `msgpack:"channel"`
	Network string `msgpack:"network"`

	Packets int `msgpack:"packets"`
	Samples int `msgpack:"samples"`

	// Skipped is true if the file was accepted but produced no packets.
	Skipped bool `msgpack:"skipped,omitempty"`

	ConvertedAt time.Time `msgpack:"converted_at"`
}

// Options configures a Ledger.
type Options struct {
	// Dir is the directory holding the ledger database. It is required unless
	// InMemory is true.
	Dir string

	// InMemory keeps the ledger in memory only.
	InMemory bool

	// Logger, if not nil, receives database warnings and errors.
	Logger logging.L
}

// Ledger is a persistent set of Records keyed by source file name.
//
// Ledger is safe for concurrent use.
type Ledger struct {
	db *badger.DB
}

// Open opens the Ledger described by opts.
func Open(opts Options) (*Ledger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("a ledger directory is required")
	}

	dbOpts := badger.DefaultOptions(opts.Dir).
		WithLogger(badgerLogger{logging.Must(opts.Logger)})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger %q", opts.Dir)
	}
	return &Ledger{db: db}, nil
}

// Close closes the Ledger's database.
func (l *Ledger) Close() error { return l.db.Close() }

// Put stores rec, replacing any record with the same name.
func (l *Ledger) Put(rec *Record) error {
	if rec.Name == "" {
		return errors.New("record has no name")
	}

	value, err := msgpack.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encoding record for %q", rec.Name)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Name), value)
	})
}

// Get returns the record for name. If there is none, Get returns an error
// whose cause is ErrNotFound.
func (l *Ledger) Get(name string) (*Record, error) {
	var rec Record
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return msgpack.Unmarshal(v, &rec)
		})
	})
	switch {
	case err == nil:
		return &rec, nil
	case errors.Cause(err) == badger.ErrKeyNotFound:
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	default:
		return nil, errors.Wrapf(err, "reading record for %q", name)
	}
}

// Seen returns true if a record exists for name with the given size.
func (l *Ledger) Seen(name string, size int64) (bool, error) {
	rec, err := l.Get(name)
	switch {
	case err == nil:
		return rec.Size == size, nil
	case errors.Cause(err) == ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Delete removes the record for name, if one exists.
func (l *Ledger) Delete(name string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(name))
	})
}

// ForEach calls fn for every record, ordered by name. If fn returns an error,
// iteration stops and that error is returned.
func (l *Ledger) ForEach(fn func(*Record) error) error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var rec Record
			err := item.Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &rec)
			})
			if err != nil {
				return errors.Wrapf(err, "decoding record %q", strings.TrimPrefix(string(item.Key()), keyPrefix))
			}
			if err := fn(&rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func recordKey(name string) []byte { return []byte(keyPrefix + name) }

// badgerLogger routes badger's log output to a logging.L. Badger's info and
// debug chatter is dropped.
type badgerLogger struct {
	logging.L
}

func (bl badgerLogger) Errorf(f string, args ...interface{}) {
	bl.L.Errorf("ledger: "+strings.TrimSpace(f), args...)
}

func (bl badgerLogger) Warningf(f string, args ...interface{}) {
	bl.L.Warnf("ledger: "+strings.TrimSpace(f), args...)
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
