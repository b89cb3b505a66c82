package main

import (
	"log"

	"github.com/relabs-tech/reachy_twin/internal/app"
	"github.com/relabs-tech/reachy_twin/internal/config"
)

func main() {
	log.Println("starting mock Reachy Mini daemon (synthetic motion)")

	if err := config.InitGlobal("reachy_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMockDaemon(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
