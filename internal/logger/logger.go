// Package logger provides the process-wide structured logger used across
// the prover and verifier. It mirrors gnark's own logger package: a single
// global zerolog.Logger, configurable output and level, no per-component
// loggers.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
)

// SetOutput redirects the global logger to w, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}

// SetLevel sets the global minimum log level ("debug", "info", "warn",
// "error", "disabled").
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(lvl)
}

// Logger returns the current global logger. Components should call this
// rather than caching a copy, since SetOutput/SetLevel mutate it in place.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}
