package main

import (
	"log"

	"github.com/MrSnakeDoc/pinmap/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ pinmap failed to start: %v", err)
	}
}
