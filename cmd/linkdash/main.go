package main

import (
	"log"

	"github.com/MrSnakeDoc/linkdash/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ linkdash failed to start: %v", err)
	}
}
