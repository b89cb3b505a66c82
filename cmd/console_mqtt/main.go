package main

import (
	"log"

	"github.com/relabs-tech/reachy_twin/internal/app"
	"github.com/relabs-tech/reachy_twin/internal/config"
)

func main() {
	log.Println("starting reachy-twin console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("reachy_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
