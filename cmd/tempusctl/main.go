// Package main is the entry point for the tempusctl admin tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/tempus/cmd/tempusctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
