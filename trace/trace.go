/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package trace is the diagnostic surface of the VM. All messages go to
// stderr; stdout belongs to the interpreted program alone.
package trace

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Components that want structured
// fields (the instruction tracer, mainly) use it directly; everything
// else goes through the level helpers below.
var Logger zerolog.Logger

// Init sets up the logger at its default level (warnings and up).
// Must be called before any other function in this package.
func Init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMicro}
	Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.WarnLevel)
}

// SetLevel changes the minimum level that gets emitted. Accepts the
// zerolog level names: trace, debug, info, warn, error.
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("unknown log level %q", level)
	}
	Logger = Logger.Level(lvl)
	return nil
}

func Error(msg string)   { Logger.Error().Msg(msg) }
func Warning(msg string) { Logger.Warn().Msg(msg) }
func Info(msg string)    { Logger.Info().Msg(msg) }
func Fine(msg string)    { Logger.Debug().Msg(msg) }
func Finest(msg string)  { Logger.Trace().Msg(msg) }
