// Package main provides the labbrowse command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/labbrowse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
