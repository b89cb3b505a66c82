// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/reachy_twin/internal/app"
	"github.com/relabs-tech/reachy_twin/internal/config"
)

func main() {
	log.Println("starting reachy-twin mirror (daemon -> MQTT + web)")

	// Load configuration
	if err := config.InitGlobal("reachy_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMirror(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
