package main

import (
	"os"

	"github.com/joho/godotenv"

	"cross-swap/cmd"
)

func main() {
	// A .env file is a convenience for local development, not a requirement.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
