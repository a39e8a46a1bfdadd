// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package logging defines the logger interface accepted throughout gotracebuf
// and builds the zap logger that the command-line tools use.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L accepts logging data.
//
// L is satisfied by zap's *zap.SugaredLogger.
type L interface {
	Error(args ...interface{})
	Warn(args ...interface{})
	Info(args ...interface{})
	Debug(args ...interface{})

	Errorf(fmt string, args ...interface{})
	Warnf(fmt string, args ...interface{})
	Infof(fmt string, args ...interface{})
	Debugf(fmt string, args ...interface{})
}

var _ L = (*zap.SugaredLogger)(nil)

// Nop is a L instance that does nothing.
var Nop L = nopLogger{}

// Must returns l if it is not nil, and Nop otherwise.
func Must(l L) L {
	if l != nil {
		return l
	}
	return Nop
}

// Levels lists the level names that New accepts.
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel parses a level name.
func ParseLevel(v string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(v))); err != nil {
		return lvl, errors.Errorf("unknown log level %q (expected one of %s)", v, strings.Join(Levels, ", "))
	}
	return lvl, nil
}

// New builds a console logger that writes to stderr at the given level.
//
// The caller should Sync the returned logger before exiting.
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Development = lvl == zapcore.DebugLevel
	cfg.DisableStacktrace = lvl != zapcore.DebugLevel

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger.Sugar(), nil
}

type nopLogger struct{}

func (nopLogger) Error(args ...interface{}) {}
func (nopLogger) Warn(args ...interface{})  {}
func (nopLogger) Info(args ...interface{})  {}
func (nopLogger) Debug(args ...interface{}) {}

func (nopLogger) Errorf(fmt string, args ...interface{}) {}
func (nopLogger) Warnf(fmt string, args ...interface{})  {}
func (nopLogger) Infof(fmt string, args ...interface{})  {}
func (nopLogger) Debugf(fmt string, args ...interface{}) {}
