// Package main is the entry point for the firefly-sync CLI.
package main

import (
	"os"

	"github.com/pigeonworks-llc/firefly-sync/cmd/firefly-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
