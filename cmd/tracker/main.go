// Package main provides the entry point for the tracker CLI.
package main

import (
	"os"

	"github.com/volumod/tracker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
