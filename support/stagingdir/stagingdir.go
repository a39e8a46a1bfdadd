// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package stagingdir stages files in a private temporary directory and moves
// them into their final location once they are complete.
package stagingdir

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// D manages a staging directory.
//
// Files are built underneath of D's temporary directory, then committed into
// their destination with an atomic rename. Destroy removes the directory and
// anything that was not committed.
//
// The temporary directory should reside on the same filesystem as commit
// destinations, or commits will fail.
type D struct {
	// path is the path of the staging directory.
	path string
}

// New creates a new staging directory underneath of tempDir.
//
// If tempDir is empty, the system temporary directory is used. The directory
// will be created with the specified prefix.
func New(tempDir, prefix string) (*D, error) {
	if tempDir != "" {
		if err := os.MkdirAll(tempDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating temporary directory %q", tempDir)
		}
	}

	stagingPath, err := ioutil.TempDir(tempDir, prefix)
	if err != nil {
		return nil, err
	}
	return &D{path: stagingPath}, nil
}

// Path returns the staging path of the file with the given name.
func (sd *D) Path(name string) string {
	if sd.path == "" {
		panic("staging directory has been destroyed")
	}
	return filepath.Join(sd.path, filepath.Base(name))
}

// Create creates a new staged file with the given name.
func (sd *D) Create(name string) (*os.File, error) {
	return os.OpenFile(sd.Path(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
}

// Adopt moves the file at path into the staging directory as name.
func (sd *D) Adopt(path, name string) error {
	if err := os.Rename(path, sd.Path(name)); err != nil {
		return errors.Wrapf(err, "staging %q", path)
	}
	return nil
}

// Commit atomically moves the staged file name to dest, replacing anything
// already there. dest's parent directory is created if needed.
func (sd *D) Commit(name, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, "creating destination directory for %q", dest)
	}

	staged := sd.Path(name)
	if err := os.Rename(staged, dest); err != nil {
		return errors.Wrapf(err, "moving staged file into place (%q => %q)", staged, dest)
	}
	return nil
}

// Destroy purges the staging directory and its contents.
func (sd *D) Destroy() error {
	if sd.path == "" {
		// There is nothing to destroy.
		return nil
	}

	if err := os.RemoveAll(sd.path); err != nil {
		return err
	}
	sd.path = "" // Destroyed.
	return nil
}
