// Package logging wraps gopkg.in/op/go-logging.v1 into the per-module
// backend pboted's subsystems (dht, batch, store, email, transport) each
// get their own *logging.Logger from, per spec.md §6's `loglevel`,
// `logfile`, `log` configuration keys.
//
// Grounded on katzenpost-katzenpost/core/log's Backend: a
// logging.LeveledBackend wrapping a single output (stdout, a file, or a
// discard writer), constructed once at startup from (file, level,
// disable) and handed out per-module via GetLogger.
package logging

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

// discardCloser adapts io.Discard to an io.WriteCloser for the
// Disable=true case, where every module logs into a sink.
type discardCloser struct{ io.Writer }

func (discardCloser) Close() error { return nil }

func newDiscardCloser() discardCloser { return discardCloser{ioutil.Discard} }

// Backend is a shared logging.LeveledBackend every module's *logging.Logger
// writes through.
type Backend struct {
	logging.LeveledBackend
	sync.RWMutex

	backend logging.LeveledBackend
	w       io.WriteCloser

	file    string
	level   string
	disable bool
}

// Log implements logging.Backend, forwarding to the current underlying
// backend under a read lock so Rotate can swap it out safely.
func (b *Backend) Log(level logging.Level, calldepth int, record *logging.Record) error {
	b.RLock()
	defer b.RUnlock()
	return b.backend.Log(level, calldepth, record)
}

// GetLevel implements logging.Leveled.
func (b *Backend) GetLevel(module string) logging.Level {
	b.RLock()
	defer b.RUnlock()
	return b.backend.GetLevel(module)
}

// SetLevel implements logging.Leveled.
func (b *Backend) SetLevel(level logging.Level, module string) {
	b.RLock()
	defer b.RUnlock()
	b.backend.SetLevel(level, module)
}

// IsEnabledFor implements logging.Leveled.
func (b *Backend) IsEnabledFor(level logging.Level, module string) bool {
	b.RLock()
	defer b.RUnlock()
	return b.backend.IsEnabledFor(level, module)
}

// GetLogger returns a per-module logger writing through this backend.
// module names one of pboted's subsystems (dht, batch, store, email,
// transport, node).
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b)
	return l
}

// Rotate closes and reopens the log file, for use on a HUP-style signal.
// A no-op when logging to stdout or discarding.
func (b *Backend) Rotate() error {
	b.Lock()
	defer b.Unlock()
	if b.disable || b.file == "" {
		return nil
	}
	if err := b.w.Close(); err != nil {
		return err
	}
	return b.open()
}

func (b *Backend) open() error {
	level, err := levelFromString(b.level)
	if err != nil {
		return err
	}

	switch {
	case b.disable:
		b.w = newDiscardCloser()
	case b.file == "":
		b.w = os.Stdout
	default:
		const fileMode = 0o600
		f, err := os.OpenFile(b.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
		if err != nil {
			return fmt.Errorf("logging: open %s: %w", b.file, err)
		}
		b.w = f
	}

	format := logging.MustStringFormatter("%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(b.w, "", 0)
	formatted := logging.NewBackendFormatter(base, format)
	b.backend = logging.AddModuleLevel(formatted)
	b.backend.SetLevel(level, "")
	return nil
}

// New builds a Backend writing to file (stdout if empty) at level,
// or discarding everything if disable is set.
func New(file, level string, disable bool) (*Backend, error) {
	b := &Backend{file: file, level: level, disable: disable}
	if err := b.open(); err != nil {
		return nil, err
	}
	return b, nil
}

func levelFromString(level string) (logging.Level, error) {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return logging.CRITICAL, nil
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE", "":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("logging: invalid level %q", level)
	}
}
