/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package globals

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Globals contains variables that need to be globally accessible,
// such as the VM options and the name of the starting class.
type Globals struct {
	// ---- javelin version number ----
	// note: all references to the version number must come from this literal
	Version string

	// ---- command-line items ----
	VMname        string
	StartingClass string

	// ---- run options ----
	Options Options

	StartTime time.Time
}

// Options are the tunables a run can set, either from the command line
// or from the [vm] table of a TOML config file. CLI flags win.
type Options struct {
	TraceInst bool   `toml:"trace"`
	LogLevel  string `toml:"log-level"`
}

var global Globals

// InitGlobals initializes the global values that are known at start-up
func InitGlobals(progName string) *Globals {
	global = Globals{
		Version:   "0.2.0",
		VMname:    progName,
		StartTime: time.Now(),
		Options: Options{
			LogLevel: "warn",
		},
	}
	return &global
}

// GetGlobalRef returns a pointer to the singleton instance of Globals
func GetGlobalRef() *Globals {
	return &global
}

// configFile mirrors the on-disk layout: options live under a [vm] table.
type configFile struct {
	VM Options `toml:"vm"`
}

// LoadConfig reads run options from a TOML file and folds them into the
// globals. Keys absent from the file keep their current values.
func LoadConfig(path string) error {
	cfg := configFile{VM: global.Options}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return fmt.Errorf("config file %s: unknown key %s", path, undec[0].String())
	}
	global.Options = cfg.VM
	return nil
}
