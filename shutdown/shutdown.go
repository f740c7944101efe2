/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package shutdown

import (
	"os"

	"javelin/trace"
)

// The exit codes passed back to the OS. Everything except OK indicates
// which stage of the run went wrong.
const (
	OK = iota
	APP_EXCEPTION
	CLASS_FORMAT_ERROR
	USAGE_ERROR
	UNKNOWN_ERROR
)

// Exit logs a warning for any code other than OK and ends the process
// with the given code.
func Exit(code int) {
	if code != OK {
		trace.Warning("shutdown with exit code " + codeName(code))
	}
	os.Exit(code)
}

func codeName(code int) string {
	switch code {
	case OK:
		return "OK"
	case APP_EXCEPTION:
		return "APP_EXCEPTION"
	case CLASS_FORMAT_ERROR:
		return "CLASS_FORMAT_ERROR"
	case USAGE_ERROR:
		return "USAGE_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
