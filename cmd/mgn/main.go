// Package main is the entry point for the mgn CLI tool.
package main

import (
	"os"

	"marginalia/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
