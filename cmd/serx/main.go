// Command serx checks and scaffolds serializer definitions files.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine, the environment may be set otherwise.
	_ = godotenv.Load()

	if err := New().Execute(); err != nil {
		os.Exit(1)
	}
}
