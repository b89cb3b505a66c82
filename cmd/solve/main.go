// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// solve reads one daemon state message (head_joints and head_pose) and prints the
// passive joint angles.
//
//	curl -s 'http://localhost:8000/api/state/full?with_head_joints=true&with_head_pose=true' | solve
package main

import (
	"flag"
	"log"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/relabs-tech/reachy_twin/internal/app"
	"github.com/relabs-tech/reachy_twin/internal/logging"
)

func main() {
	calFile := flag.String("calibration", "", "calibration override file (JSON)")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	input := flag.String("in", "", "read the state message from this file instead of stdin")
	flag.Parse()

	// keep stdout for the result
	logCfg := logging.NewConfig(zapcore.WarnLevel)
	logCfg.OutputPaths = []string{"stderr"}
	base, err := logCfg.Build()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	logger := base.Named("solve").Sugar()
	defer func() { _ = logger.Sync() }()

	in := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	opts := app.SolveOptions{CalibrationFile: *calFile, JSON: *asJSON}
	if err := app.RunSolve(in, os.Stdout, opts, logger); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
