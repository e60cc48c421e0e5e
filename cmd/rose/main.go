package main

import (
	"github.com/joho/godotenv"

	"rose/internal/cli"
)

func main() {
	// Credentials may also come from the environment directly; a missing
	// .env file is fine.
	_ = godotenv.Load()

	cli.Execute()
}
