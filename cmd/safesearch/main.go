// Package main provides the entry point for the safesearch CLI.
package main

import (
	"os"

	"github.com/plantops/safesearch/cmd/safesearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
