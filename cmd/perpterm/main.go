package main

import (
	"os"

	"github.com/rustyeddy/perpterm/cmd/perpterm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
