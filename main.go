/*
 * Javelin VM - a minimal Java virtual machine
 * Copyright (c) 2024 by the Javelin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Javelin loads a single compiled .class file and executes its main
// method. Only the integer subset of the bytecode is supported: integer
// arithmetic, control flow, and static method dispatch.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"javelin/classloader"
	"javelin/globals"
	"javelin/jvm"
	"javelin/shutdown"
	"javelin/trace"
)

func main() {
	global := globals.InitGlobals("javelin")
	trace.Init()

	cmd := &cli.Command{
		Name:      global.VMname,
		Usage:     "run the main method of a compiled .class file",
		UsageText: "javelin [options] <file.class>",
		Version:   global.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "log every executed instruction",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "diagnostic level: trace, debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML file with a [vm] options table",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		trace.Error(err.Error())
		shutdown.Exit(shutdown.USAGE_ERROR)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	global := globals.GetGlobalRef()

	// config file first, then flags on top: flags win
	if path := cmd.String("config"); path != "" {
		if err := globals.LoadConfig(path); err != nil {
			return err
		}
	}
	if cmd.Bool("trace") {
		global.Options.TraceInst = true
	}
	if level := cmd.String("log-level"); level != "" {
		global.Options.LogLevel = level
	}
	if global.Options.TraceInst && global.Options.LogLevel == "warn" {
		// instruction tracing is emitted at trace level; make it visible
		global.Options.LogLevel = "trace"
	}
	if err := trace.SetLevel(global.Options.LogLevel); err != nil {
		return err
	}

	if cmd.Args().Len() != 1 {
		return errors.New("expected exactly one argument: the path to a .class file")
	}
	global.StartingClass = cmd.Args().First()

	cl, err := classloader.LoadClassFromFile(global.StartingClass)
	if err != nil {
		trace.Error(err.Error())
		shutdown.Exit(shutdown.CLASS_FORMAT_ERROR)
	}

	if err = jvm.StartExec(cl, os.Stdout); err != nil {
		trace.Error(err.Error())
		shutdown.Exit(shutdown.APP_EXCEPTION)
	}

	return nil
}
